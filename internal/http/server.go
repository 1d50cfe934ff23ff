// Package http exposes the business services as a JSON REST API.
package http

import (
	"context"
	"net/http"
	"time"

	"gestion/internal/cli"
	"gestion/internal/log"
	"gestion/internal/metrics"
	"gestion/internal/middleware/auth"
	"gestion/internal/middleware/ratelimit"
	"gestion/internal/middleware/security"
	"gestion/internal/middleware/trace"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the server.
type Options struct {
	Addr               string
	AuthEnabled        bool
	CORSOrigins        []string
	RateLimitPerMinute int
	Location           *time.Location
}

// Server is the API server.
type Server struct {
	http.Server
	svc      *cli.Services
	db       Pinger
	loc      *time.Location
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time
}

// NewServer registers every route and wraps the mux in the middleware chain.
func NewServer(opts Options, svc *cli.Services, db Pinger, logger *log.Logger) *Server {
	logger = logger.WithComponent(log.ComponentHTTP)
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	mux := http.NewServeMux()
	s := &Server{
		svc:      svc,
		db:       db,
		loc:      loc,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(logger.WithComponent(log.ComponentSecurity)),
		started:  time.Now(),
	}
	s.routes(mux)

	authn := auth.NewMiddleware(svc.Auth, auth.Config{
		Enabled:     opts.AuthEnabled,
		PublicPaths: auth.DefaultPublicPaths,
	}, writeError)
	tooMany := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: rateLimitedBody})
	}

	var h http.Handler = trace.Pattern(mux)
	h = authn.Middleware(h)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, tooMany)(h)
	h = security.NewCORS(security.DefaultCORSConfig(opts.CORSOrigins)).Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	admin := func(action, resource string, h http.HandlerFunc) http.HandlerFunc {
		return auth.RequireAdmin(writeError, action, resource, h)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("GET /usuarios", admin("listar", "usuarios", s.handleListUsuarios))
	mux.HandleFunc("POST /usuarios", admin("crear", "usuarios", s.handleCreateUsuario))

	mux.HandleFunc("GET /servicios", s.handleListServicios)
	mux.HandleFunc("POST /servicios", s.handleCreateServicio)
	mux.HandleFunc("GET /servicios/{id}", s.handleGetServicio)
	mux.HandleFunc("PATCH /servicios/{id}", s.handleUpdateServicio)
	mux.HandleFunc("DELETE /servicios/{id}", admin("eliminar", "servicios", s.handleDeleteServicio))

	mux.HandleFunc("GET /productos", s.handleListProductos)
	mux.HandleFunc("POST /productos", s.handleCreateProducto)
	mux.HandleFunc("GET /productos/bajo-stock", s.handleBajoStock)
	mux.HandleFunc("GET /productos/{id}", s.handleGetProducto)
	mux.HandleFunc("PATCH /productos/{id}", s.handleUpdateProducto)
	mux.HandleFunc("DELETE /productos/{id}", admin("eliminar", "productos", s.handleDeleteProducto))

	mux.HandleFunc("GET /compras", s.handleListCompras)
	mux.HandleFunc("POST /compras", s.handleCreateCompra)
	mux.HandleFunc("GET /compras/{id}", s.handleGetCompra)
	mux.HandleFunc("DELETE /compras/{id}", admin("eliminar", "compras", s.handleDeleteCompra))

	mux.HandleFunc("GET /ventas", s.handleListVentas)
	mux.HandleFunc("POST /ventas", s.handleCreateVenta)
	mux.HandleFunc("GET /ventas/{id}", s.handleGetVenta)
	mux.HandleFunc("DELETE /ventas/{id}", admin("eliminar", "ventas", s.handleDeleteVenta))

	mux.HandleFunc("GET /gastos", s.handleListGastos)
	mux.HandleFunc("POST /gastos", s.handleCreateGasto)
	mux.HandleFunc("GET /gastos/categorias", s.handleGastoCategorias)
	mux.HandleFunc("GET /gastos/{id}", s.handleGetGasto)
	mux.HandleFunc("PATCH /gastos/{id}", s.handleUpdateGasto)
	mux.HandleFunc("DELETE /gastos/{id}", admin("eliminar", "gastos", s.handleDeleteGasto))

	mux.HandleFunc("GET /personal", s.handleListPersonal)
	mux.HandleFunc("POST /personal", s.handleCreateEmpleado)
	mux.HandleFunc("GET /personal/{id}", s.handleGetEmpleado)
	mux.HandleFunc("PATCH /personal/{id}", s.handleUpdateEmpleado)
	mux.HandleFunc("DELETE /personal/{id}", admin("eliminar", "personal", s.handleDeleteEmpleado))

	mux.HandleFunc("GET /historial", s.handleListHistorial)

	mux.HandleFunc("GET /estadisticas/daily", s.handleDailyStats)
	mux.HandleFunc("GET /estadisticas/monthly", s.handleMonthlyStats)

	mux.HandleFunc("GET /tasa", s.handleGetTasa)
	mux.HandleFunc("PUT /tasa", admin("actualizar", "la tasa", s.handleSetTasa))
	mux.HandleFunc("GET /tasa/historial", s.handleTasaHistorial)
	mux.HandleFunc("GET /tasa/convertir", s.handleConvertir)

	mux.HandleFunc("GET /reportes/{tipo}", s.handleReporte)
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
