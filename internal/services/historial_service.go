package services

import (
	"context"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/storage"
)

var historialRecursos = []string{
	core.RecursoServicio, core.RecursoProducto, core.RecursoCompra, core.RecursoVenta,
	core.RecursoGasto, core.RecursoPersonal, core.RecursoTasa, core.RecursoUsuario,
}

// HistorialService reads the audit trail written by every mutation.
type HistorialService struct {
	repo *storage.SQLiteRepository
}

func NewHistorialService(repo *storage.SQLiteRepository) *HistorialService {
	return &HistorialService{repo: repo}
}

func (s *HistorialService) List(ctx context.Context, f core.ListFilter) (core.Page[core.Historial], error) {
	if f.Recurso != "" && !knownRecurso(f.Recurso) {
		return core.Page[core.Historial]{}, apperr.Validation("recurso", "recurso desconocido")
	}
	data, total, err := s.repo.ListHistorial(ctx, f)
	if err != nil {
		return core.Page[core.Historial]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

func knownRecurso(r string) bool {
	for _, v := range historialRecursos {
		if v == r {
			return true
		}
	}
	return false
}
