package http

import (
	"net/http"

	"gestion/internal/core"
)

func (s *Server) handleListServicios(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Catalog.ListServicios(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}

func (s *Server) handleGetServicio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sv, err := s.svc.Catalog.GetServicio(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, sv)
}

func (s *Server) handleCreateServicio(w http.ResponseWriter, r *http.Request) {
	sv := core.Servicio{Activo: true}
	if err := decodeJSON(w, r, &sv); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.CreateServicio(r.Context(), sv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, out)
}

func (s *Server) handleUpdateServicio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.ServicioPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.UpdateServicio(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, out)
}

func (s *Server) handleDeleteServicio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteServicio(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleListProductos(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Catalog.ListProductos(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}

func (s *Server) handleBajoStock(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.Catalog.BajoStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, items)
}

func (s *Server) handleGetProducto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Catalog.GetProducto(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, p)
}

func (s *Server) handleCreateProducto(w http.ResponseWriter, r *http.Request) {
	var p core.Producto
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.CreateProducto(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, out)
}

func (s *Server) handleUpdateProducto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.ProductoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Catalog.UpdateProducto(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, out)
}

func (s *Server) handleDeleteProducto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Catalog.DeleteProducto(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}
