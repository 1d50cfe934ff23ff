package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/reports"
	"gestion/internal/services"
)

func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Stats.Daily(r.Context(), r.URL.Query().Get("fecha"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, st)
}

func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := s.svc.Stats.Monthly(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, ov)
}

func (s *Server) handleGetTasa(w http.ResponseWriter, r *http.Request) {
	rate, err := s.svc.Tasas.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, rate)
}

type tasaRequest struct {
	Tasa   flexString `json:"tasa"`
	Fuente string     `json:"fuente"`
}

func (s *Server) handleSetTasa(w http.ResponseWriter, r *http.Request) {
	var req tasaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rate, err := core.ParseRate(string(req.Tasa))
	if err != nil {
		writeError(w, r, apperr.Validation("tasa", "debe ser un número mayor que cero"))
		return
	}
	out, err := s.svc.Tasas.Set(r.Context(), rate, req.Fuente)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, out)
}

func (s *Server) handleTasaHistorial(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.svc.Tasas.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, items)
}

func (s *Server) handleConvertir(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	usd, bs := strings.TrimSpace(q.Get("usd")), strings.TrimSpace(q.Get("bs"))
	if (usd == "") == (bs == "") {
		writeError(w, r, apperr.BadRequest("Indique exactamente uno de 'usd' o 'bs'"))
		return
	}

	field, raw := "usd", usd
	if bs != "" {
		field, raw = "bs", bs
	}
	cents, err := core.ParseDecimalToCentsAllowZero(raw)
	if err != nil {
		writeError(w, r, apperr.Validation(field, "monto inválido"))
		return
	}

	var conv services.Conversion
	if field == "usd" {
		conv, err = s.svc.Tasas.ConvertUSD(r.Context(), core.Money{Cents: cents})
	} else {
		conv, err = s.svc.Tasas.ConvertBs(r.Context(), core.Money{Cents: cents})
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, conv)
}

// handleReporte renders into memory first so a failure still produces a
// JSON error instead of a truncated download.
func (s *Server) handleReporte(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := services.ReportRequest{
		Tipo:    r.PathValue("tipo"),
		Formato: strings.ToLower(strings.TrimSpace(q.Get("formato"))),
		Desde:   q.Get("desde"),
		Hasta:   q.Get("hasta"),
		Fecha:   q.Get("fecha"),
	}
	if req.Formato == "" {
		req.Formato = reports.FormatPDF
	}

	var buf bytes.Buffer
	rep, err := s.svc.Reports.Generate(r.Context(), &buf, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", reports.ContentType(req.Formato))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.FileName(rep, req.Formato)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
