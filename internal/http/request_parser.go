package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

const maxBodyBytes = 1 << 20

// pathID reads the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("Identificador inválido")
	}
	return id, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and oversized bodies. Amount and rate errors surface as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.BadRequest("El cuerpo de la solicitud está vacío")
		case errors.As(err, &maxErr):
			return apperr.BadRequest("El cuerpo de la solicitud es demasiado grande")
		case errors.Is(err, core.ErrInvalidAmount):
			return apperr.Validation("monto", "monto inválido")
		case errors.Is(err, core.ErrInvalidRate):
			return apperr.Validation("tasa", "tasa de cambio inválida")
		case errors.As(err, &typeErr):
			return apperr.Validation(typeErr.Field, "tipo de dato inválido")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return apperr.Validation(field, "campo desconocido")
		default:
			return apperr.BadRequest("JSON inválido")
		}
	}
	if dec.More() {
		return apperr.BadRequest("Se esperaba un único objeto JSON")
	}
	return nil
}

// listFilter builds the listing filter from the query string.
func listFilter(r *http.Request, loc *time.Location) (core.ListFilter, error) {
	q := r.URL.Query()
	f := core.ListFilter{
		PageRequest: core.PageRequestFromQuery(q),
		Categoria:   strings.TrimSpace(q.Get("categoria")),
		Recurso:     strings.TrimSpace(q.Get("recurso")),
	}

	rg, err := core.ParseDateRange(q.Get("desde"), q.Get("hasta"), loc)
	if err != nil {
		return f, apperr.Validation("desde", err.Error())
	}
	f.Rango = rg

	if v := strings.TrimSpace(q.Get("activo")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Validation("activo", "debe ser true o false")
		}
		f.Activo = &b
	}
	return f, nil
}

// queryInt parses an optional integer query parameter, returning 0 when absent.
func queryInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(name, "debe ser un número entero")
	}
	return n, nil
}

// flexString accepts a JSON string or number, for values like "36,50" or 36.5.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	*f = flexString(s)
	return nil
}
