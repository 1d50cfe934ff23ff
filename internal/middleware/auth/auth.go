// Package auth authenticates API requests with bearer tokens and attaches
// the acting user to the request context.
package auth

import (
	"net/http"
	"strings"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/metrics"
	"gestion/internal/services"
)

// TokenParser validates a bearer token. *services.AuthService satisfies it.
type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

// ErrorWriter renders an authentication or permission failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Config controls which requests need a token.
type Config struct {
	// Enabled false attaches an admin system actor to every request.
	Enabled bool
	// PublicPaths are served without a token, matched exactly.
	PublicPaths []string
}

// DefaultPublicPaths are reachable without logging in.
var DefaultPublicPaths = []string{"/healthz", "/readyz", "/metrics", "/auth/login"}

// Middleware authenticates requests.
type Middleware struct {
	parser  TokenParser
	config  Config
	public  map[string]struct{}
	onError ErrorWriter
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(parser TokenParser, config Config, onError ErrorWriter) *Middleware {
	m := &Middleware{
		parser:  parser,
		config:  config,
		public:  make(map[string]struct{}, len(config.PublicPaths)),
		onError: onError,
	}
	for _, p := range config.PublicPaths {
		m.public[p] = struct{}{}
	}
	return m
}

var errMissingToken = apperr.Unauthorized("Debe iniciar sesión")

// Middleware returns the HTTP middleware function
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Enabled {
			ctx := services.WithActor(r.Context(), services.Actor{Username: services.SystemActor, Rol: core.RolAdmin})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if _, ok := m.public[r.URL.Path]; ok || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := BearerToken(r)
		if !ok {
			metrics.AuthFailures.WithLabelValues("missing").Inc()
			m.onError(w, r, errMissingToken)
			return
		}

		claims, err := m.parser.ParseToken(token)
		if err != nil {
			metrics.AuthFailures.WithLabelValues("invalid").Inc()
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected token", log.FieldError, err.Error())
			m.onError(w, r, err)
			return
		}

		ctx := services.WithActor(r.Context(), claims.Actor())
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUsuario, claims.Username))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAdmin wraps a handler so only admins reach it.
func RequireAdmin(onError ErrorWriter, action, resource string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := services.ActorFrom(r.Context())
		if !ok || !actor.IsAdmin() {
			onError(w, r, apperr.Permission(action, resource))
			return
		}
		next(w, r)
	}
}
