package core

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest carries pagination and the free-text search box value.
type PageRequest struct {
	Page  int
	Limit int
	Query string
}

// Offset returns the SQL offset for the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Normalize clamps page and limit into their valid ranges.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	p.Query = strings.TrimSpace(p.Query)
	return p
}

// PageRequestFromQuery reads page, limit and q from a URL query string.
// Unparseable numbers fall back to defaults.
func PageRequestFromQuery(q url.Values) PageRequest {
	p := PageRequest{Query: q.Get("q")}
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(q.Get("limit"))); err == nil {
		p.Limit = v
	}
	return p.Normalize()
}

// Page is one page of a listing plus the unpaginated total.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPage builds a Page, never returning a nil Data slice.
func NewPage[T any](data []T, total int64, req PageRequest) Page[T] {
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Total: total, Page: req.Page, Limit: req.Limit}
}

// ListFilter narrows a listing. Fields a resource does not support are ignored.
type ListFilter struct {
	PageRequest
	Rango     DateRange
	Categoria string
	Activo    *bool
	Recurso   string
}
