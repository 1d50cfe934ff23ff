package http

import (
	"net/http"

	"gestion/internal/core"
)

func (s *Server) handleListVentas(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Ventas.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}

func (s *Server) handleGetVenta(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.Ventas.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, v)
}

func (s *Server) handleCreateVenta(w http.ResponseWriter, r *http.Request) {
	var in core.VentaInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.svc.Ventas.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, v)
}

func (s *Server) handleDeleteVenta(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Ventas.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleListCompras(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Compras.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}

func (s *Server) handleGetCompra(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Compras.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, c)
}

func (s *Server) handleCreateCompra(w http.ResponseWriter, r *http.Request) {
	var in core.CompraInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Compras.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, c)
}

func (s *Server) handleDeleteCompra(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Compras.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleListGastos(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Gastos.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}

func (s *Server) handleGastoCategorias(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Gastos.Categorias(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, cats)
}

func (s *Server) handleGetGasto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Gastos.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, g)
}

func (s *Server) handleCreateGasto(w http.ResponseWriter, r *http.Request) {
	var in core.GastoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Gastos.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, g)
}

func (s *Server) handleUpdateGasto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.GastoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Gastos.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, g)
}

func (s *Server) handleDeleteGasto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Gastos.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}
