package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion/internal/cli"
	"gestion/internal/config"
	"gestion/internal/log"
	"gestion/internal/storage"
)

type testServer struct {
	srv  *Server
	svc  *cli.Services
	repo *storage.SQLiteRepository
}

func newTestServer(t *testing.T, authEnabled bool) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "gestion.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		JWTSecret:    "0123456789abcdef0123",
		TokenTTL:     time.Hour,
		RateCacheTTL: time.Minute,
		StatsTTL:     time.Minute,
		BusinessName: "Bodega Prueba",
	}
	logger := log.New(log.Config{Output: io.Discard})
	svc := cli.BuildServices(cfg, repo, nil, logger)
	srv := NewServer(Options{
		Addr:               ":0",
		AuthEnabled:        authEnabled,
		CORSOrigins:        []string{"http://localhost:5173"},
		RateLimitPerMinute: 1000,
		Location:           time.UTC,
	}, svc, repo, logger)
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testServer{srv: srv, svc: svc, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, true)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := ts.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}

	rec := ts.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gestion_http_requests_total")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsDatabaseFailure(t *testing.T) {
	ts := newTestServer(t, false)
	ts.srv.db = failingPinger{}

	rec := ts.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	created, err := ts.svc.Auth.EnsureAdmin(ctx, "admin", "clave-segura-1")
	require.NoError(t, err)
	require.True(t, created)

	rec := ts.do(t, http.MethodGet, "/ventas", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auth/login", `{"username":"admin","password":"mala"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Usuario o contraseña incorrectos", decode[errorResponse](t, rec).Error.Message)

	rec = ts.do(t, http.MethodPost, "/auth/login", `{"username":"Admin","password":"clave-segura-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[struct {
		Token string `json:"token"`
	}](t, rec)
	require.NotEmpty(t, login.Token)

	rec = ts.do(t, http.MethodGet, "/auth/me", "", login.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rol":"admin"`)

	rec = ts.do(t, http.MethodPost, "/usuarios", `{"username":"maria","nombre":"María","password":"otra-clave-1"}`, login.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = ts.do(t, http.MethodPost, "/auth/login", `{"username":"maria","password":"otra-clave-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	empleado := decode[struct {
		Token string `json:"token"`
	}](t, rec).Token

	rec = ts.do(t, http.MethodGet, "/usuarios", "", empleado)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, "/tasa", `{"tasa":"36,5"}`, empleado)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/gastos", `{"descripcion":"Luz","categoria":"servicios","monto":"20","fecha":"2025-03-01","metodo_pago":"pago_movil"}`, empleado)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[struct {
		ID int64 `json:"id"`
	}](t, rec).ID

	rec = ts.do(t, http.MethodDelete, "/gastos/"+itoa(id), "", empleado)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/gastos/"+itoa(id), "", login.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/historial?recurso=gastos", "", empleado)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[struct {
		Data []struct {
			Accion  string `json:"accion"`
			Usuario string `json:"usuario"`
		} `json:"data"`
		Total int64 `json:"total"`
	}](t, rec)
	require.Equal(t, int64(2), hist.Total)
	assert.Equal(t, "admin", hist.Data[0].Usuario)
	assert.Equal(t, "maria", hist.Data[1].Usuario)
}

func TestProductoCRUD(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/productos", `{"codigo":"HAR-01","nombre":"Harina PAN","categoria":"viveres","precio":"1.50","costo":"1.10","stock":10,"stock_minimo":3}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[struct {
		ID     int64  `json:"id"`
		Precio string `json:"precio"`
	}](t, rec)

	rec = ts.do(t, http.MethodPost, "/productos", `{"codigo":"HAR-01","nombre":"Otra","precio":"2"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/productos/"+itoa(p.ID), `{"stock":2}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"stock":2`)
	assert.Contains(t, rec.Body.String(), `"nombre":"Harina PAN"`)

	rec = ts.do(t, http.MethodGet, "/productos/bajo-stock", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "HAR-01")

	rec = ts.do(t, http.MethodGet, "/productos?q=harina&limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Total int64 `json:"total"`
		Limit int   `json:"limit"`
	}](t, rec)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.Limit)

	rec = ts.do(t, http.MethodDelete, "/productos/"+itoa(p.ID), "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/productos/"+itoa(p.ID), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).Error.Code)

	rec = ts.do(t, http.MethodGet, "/productos/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVentaWithRate(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPut, "/tasa", `{"tasa":"40,00","fuente":"BCV"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/productos", `{"codigo":"CAF-1","nombre":"Café","precio":"2.50","stock":5}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pid := decode[struct {
		ID int64 `json:"id"`
	}](t, rec).ID

	body := `{"fecha":"2025-03-01","hora":"10:30","metodo_pago":"efectivo_usd","items":[{"producto_id":` + itoa(pid) + `,"cantidad":2}]}`
	rec = ts.do(t, http.MethodPost, "/ventas", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":5.00`)
	assert.Contains(t, rec.Body.String(), `"total_bs":200.00`)

	rec = ts.do(t, http.MethodGet, "/productos/"+itoa(pid), "", "")
	assert.Contains(t, rec.Body.String(), `"stock":3`)

	body = `{"fecha":"2025-03-01","metodo_pago":"efectivo_usd","items":[{"producto_id":` + itoa(pid) + `,"cantidad":9}]}`
	rec = ts.do(t, http.MethodPost, "/ventas", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error.Message, "Stock insuficiente")

	rec = ts.do(t, http.MethodGet, "/ventas?desde=2025-03-01&hasta=2025-03-01", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = ts.do(t, http.MethodGet, "/estadisticas/daily?fecha=2025-03-01", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ventas_count":1`)
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
		field  string
	}{
		{"malformed json", http.MethodPost, "/gastos", `{"descripcion":`, http.StatusBadRequest, "BAD_REQUEST", ""},
		{"empty body", http.MethodPost, "/gastos", "", http.StatusBadRequest, "BAD_REQUEST", ""},
		{"unknown field", http.MethodPost, "/gastos", `{"importe":3}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "importe"},
		{"negative amount", http.MethodPost, "/gastos", `{"descripcion":"x","monto":"-3","fecha":"2025-03-01","metodo_pago":"zelle"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "monto"},
		{"bad payment method", http.MethodPost, "/gastos", `{"descripcion":"x","categoria":"varios","monto":"3","fecha":"2025-03-01","metodo_pago":"bitcoin"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "metodo_pago"},
		{"inverted range", http.MethodGet, "/gastos?desde=2025-03-10&hasta=2025-03-01", "", http.StatusUnprocessableEntity, "VALIDATION_ERROR", "desde"},
		{"bad activo", http.MethodGet, "/servicios?activo=quizas", "", http.StatusUnprocessableEntity, "VALIDATION_ERROR", "activo"},
		{"unknown historial resource", http.MethodGet, "/historial?recurso=planetas", "", http.StatusUnprocessableEntity, "VALIDATION_ERROR", "recurso"},
		{"bad month", http.MethodGet, "/estadisticas/monthly?year=2025&month=13", "", http.StatusUnprocessableEntity, "VALIDATION_ERROR", "month"},
		{"zero rate", http.MethodPut, "/tasa", `{"tasa":0}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tasa"},
		{"convert needs one amount", http.MethodGet, "/tasa/convertir?usd=1&bs=2", "", http.StatusBadRequest, "BAD_REQUEST", ""},
		{"no rate yet", http.MethodGet, "/tasa", "", http.StatusNotFound, "NOT_FOUND", ""},
		{"unknown report", http.MethodGet, "/reportes/nomina", "", http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tipo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.target, tt.body, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			e := decode[errorResponse](t, rec)
			assert.Equal(t, tt.code, e.Error.Code)
			assert.Equal(t, tt.field, e.Error.Field)
			assert.NotEmpty(t, e.Error.Message)
		})
	}
}

func TestTasaConvert(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodPut, "/tasa", `{"tasa":36.5}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"fuente":"manual"`)

	rec = ts.do(t, http.MethodGet, "/tasa/convertir?usd=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"bs":365.00`)

	rec = ts.do(t, http.MethodGet, "/tasa/convertir?bs=73", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"usd":2.00`)

	rec = ts.do(t, http.MethodGet, "/tasa/historial", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "36.5")
}

func TestReporteDownload(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/reportes/inventario?formato=xlsx", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	rec = ts.do(t, http.MethodGet, "/reportes/ventas?desde=2025-03-01&hasta=2025-03-31", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = ts.do(t, http.MethodGet, "/reportes/ventas?formato=csv", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCORSAndMethods(t *testing.T) {
	ts := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodOptions, "/ventas", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.do(t, http.MethodPut, "/healthz", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimitedMutations(t *testing.T) {
	ts := newTestServer(t, false)
	ts.srv.limiter.Stop()
	ts.srv = NewServer(Options{RateLimitPerMinute: 1, Location: time.UTC}, ts.svc, ts.repo, log.New(log.Config{Output: io.Discard}))
	t.Cleanup(func() { ts.srv.limiter.Stop() })

	body := `{"nombre":"Corte de cabello","precio":"5"}`
	rec := ts.do(t, http.MethodPost, "/servicios", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/servicios", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode[errorResponse](t, rec).Error.Code)

	rec = ts.do(t, http.MethodGet, "/servicios", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
