package services

import (
	"context"

	"gestion/internal/core"
	"gestion/internal/storage"
)

// CatalogService manages the sellable catalog: productos and servicios.
type CatalogService struct {
	repo *storage.SQLiteRepository
}

func NewCatalogService(repo *storage.SQLiteRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListServicios(ctx context.Context, f core.ListFilter) (core.Page[core.Servicio], error) {
	data, total, err := s.repo.ListServicios(ctx, f)
	if err != nil {
		return core.Page[core.Servicio]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

func (s *CatalogService) GetServicio(ctx context.Context, id int64) (core.Servicio, error) {
	return s.repo.GetServicio(ctx, id)
}

func (s *CatalogService) CreateServicio(ctx context.Context, sv core.Servicio) (core.Servicio, error) {
	if err := sv.Validate(); err != nil {
		return sv, err
	}
	out, err := s.repo.CreateServicio(ctx, sv, usuario(ctx))
	if err == nil {
		mutated(core.RecursoServicio, core.AccionCrear)
	}
	return out, err
}

func (s *CatalogService) UpdateServicio(ctx context.Context, id int64, patch core.ServicioPatch) (core.Servicio, error) {
	out, err := s.repo.UpdateServicio(ctx, id, patch, usuario(ctx))
	if err == nil {
		mutated(core.RecursoServicio, core.AccionActualizar)
	}
	return out, err
}

func (s *CatalogService) DeleteServicio(ctx context.Context, id int64) error {
	err := s.repo.DeleteServicio(ctx, id, usuario(ctx))
	if err == nil {
		mutated(core.RecursoServicio, core.AccionEliminar)
	}
	return err
}

func (s *CatalogService) ListProductos(ctx context.Context, f core.ListFilter) (core.Page[core.Producto], error) {
	data, total, err := s.repo.ListProductos(ctx, f)
	if err != nil {
		return core.Page[core.Producto]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

// BajoStock lists products at or below their reorder threshold.
func (s *CatalogService) BajoStock(ctx context.Context) ([]core.Producto, error) {
	out, err := s.repo.ListBajoStock(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Producto{}
	}
	return out, nil
}

func (s *CatalogService) GetProducto(ctx context.Context, id int64) (core.Producto, error) {
	return s.repo.GetProducto(ctx, id)
}

func (s *CatalogService) CreateProducto(ctx context.Context, p core.Producto) (core.Producto, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	out, err := s.repo.CreateProducto(ctx, p, usuario(ctx))
	if err == nil {
		mutated(core.RecursoProducto, core.AccionCrear)
	}
	return out, err
}

func (s *CatalogService) UpdateProducto(ctx context.Context, id int64, patch core.ProductoPatch) (core.Producto, error) {
	out, err := s.repo.UpdateProducto(ctx, id, patch, usuario(ctx))
	if err == nil {
		mutated(core.RecursoProducto, core.AccionActualizar)
	}
	return out, err
}

func (s *CatalogService) DeleteProducto(ctx context.Context, id int64) error {
	err := s.repo.DeleteProducto(ctx, id, usuario(ctx))
	if err == nil {
		mutated(core.RecursoProducto, core.AccionEliminar)
	}
	return err
}
