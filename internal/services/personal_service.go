package services

import (
	"context"

	"gestion/internal/core"
	"gestion/internal/storage"
)

// PersonalService manages employee records.
type PersonalService struct {
	repo *storage.SQLiteRepository
}

func NewPersonalService(repo *storage.SQLiteRepository) *PersonalService {
	return &PersonalService{repo: repo}
}

func (s *PersonalService) List(ctx context.Context, f core.ListFilter) (core.Page[core.Empleado], error) {
	data, total, err := s.repo.ListEmpleados(ctx, f)
	if err != nil {
		return core.Page[core.Empleado]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

func (s *PersonalService) Get(ctx context.Context, id int64) (core.Empleado, error) {
	return s.repo.GetEmpleado(ctx, id)
}

func (s *PersonalService) Create(ctx context.Context, e core.Empleado) (core.Empleado, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	out, err := s.repo.CreateEmpleado(ctx, e, usuario(ctx))
	if err == nil {
		mutated(core.RecursoPersonal, core.AccionCrear)
	}
	return out, err
}

func (s *PersonalService) Update(ctx context.Context, id int64, patch core.EmpleadoPatch) (core.Empleado, error) {
	out, err := s.repo.UpdateEmpleado(ctx, id, patch, usuario(ctx))
	if err == nil {
		mutated(core.RecursoPersonal, core.AccionActualizar)
	}
	return out, err
}

func (s *PersonalService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteEmpleado(ctx, id, usuario(ctx))
	if err == nil {
		mutated(core.RecursoPersonal, core.AccionEliminar)
	}
	return err
}
