package http

import (
	"context"
	"net/http"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/services"
)

var rateLimitedBody = apperr.Body{
	Code:    "RATE_LIMITED",
	Message: "Demasiadas solicitudes, intente de nuevo en un momento",
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Auth.Me(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

func (s *Server) handleListUsuarios(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, users)
}

func (s *Server) handleCreateUsuario(w http.ResponseWriter, r *http.Request) {
	var in services.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.svc.Auth.CreateUser(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, u)
}
