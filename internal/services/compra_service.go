package services

import (
	"context"
	"time"

	"gestion/internal/core"
	"gestion/internal/storage"
)

// CompraService records stock purchases.
type CompraService struct {
	repo  *storage.SQLiteRepository
	stats *StatsService
	now   clock
}

func NewCompraService(repo *storage.SQLiteRepository, stats *StatsService) *CompraService {
	return &CompraService{repo: repo, stats: stats, now: time.Now}
}

func (s *CompraService) List(ctx context.Context, f core.ListFilter) (core.Page[core.Compra], error) {
	data, total, err := s.repo.ListCompras(ctx, f)
	if err != nil {
		return core.Page[core.Compra]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

func (s *CompraService) Get(ctx context.Context, id int64) (core.Compra, error) {
	return s.repo.GetCompra(ctx, id)
}

// Create stores the purchase and adds its quantity to the product stock.
func (s *CompraService) Create(ctx context.Context, in core.CompraInput) (core.Compra, error) {
	c, err := in.ToCompra(s.repo.Location(), s.now())
	if err != nil {
		return c, err
	}
	c, err = s.repo.CreateCompra(ctx, c, usuario(ctx))
	if err != nil {
		return c, err
	}
	mutated(core.RecursoCompra, core.AccionCrear)
	s.stats.Invalidate()
	return c, nil
}

func (s *CompraService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCompra(ctx, id, usuario(ctx)); err != nil {
		return err
	}
	mutated(core.RecursoCompra, core.AccionEliminar)
	s.stats.Invalidate()
	return nil
}
