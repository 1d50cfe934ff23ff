package http

import (
	"net/http"

	"gestion/internal/core"
)

func (s *Server) handleListPersonal(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Personal.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}

func (s *Server) handleGetEmpleado(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Personal.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, e)
}

func (s *Server) handleCreateEmpleado(w http.ResponseWriter, r *http.Request) {
	e := core.Empleado{Activo: true}
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Personal.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, out)
}

func (s *Server) handleUpdateEmpleado(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.EmpleadoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.svc.Personal.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, out)
}

func (s *Server) handleDeleteEmpleado(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Personal.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleListHistorial(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r, s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.Historial.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, page)
}
