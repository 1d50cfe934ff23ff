package services

import (
	"context"
	"fmt"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/metrics"
	"gestion/internal/storage"
)

// VentaService orchestrates sale operations across SQLite and AMQP.
type VentaService struct {
	repo   *storage.SQLiteRepository
	tasas  *TasaService
	stats  *StatsService
	notify notifier
	logger *log.Logger
	now    clock
}

func NewVentaService(repo *storage.SQLiteRepository, tasas *TasaService, stats *StatsService, pub Publisher, logger *log.Logger) *VentaService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &VentaService{
		repo:   repo,
		tasas:  tasas,
		stats:  stats,
		notify: newNotifier(pub, logger),
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}
}

func (s *VentaService) List(ctx context.Context, f core.ListFilter) (core.Page[core.Venta], error) {
	data, total, err := s.repo.ListVentas(ctx, f)
	if err != nil {
		return core.Page[core.Venta]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

func (s *VentaService) Get(ctx context.Context, id int64) (core.Venta, error) {
	return s.repo.GetVenta(ctx, id)
}

// Create saves a sale locally with the current exchange rate and publishes a
// sync event. A sale is accepted without a rate; its bolívar total stays zero.
func (s *VentaService) Create(ctx context.Context, in core.VentaInput) (core.Venta, error) {
	v, err := in.ToVenta(s.repo.Location(), s.now())
	if err != nil {
		return v, err
	}

	if s.tasas != nil {
		rate, err := s.tasas.Current(ctx)
		switch {
		case err == nil:
			v.Tasa = rate.Tasa
		case apperr.IsNotFound(err):
			s.logger.WarnContext(ctx, "No exchange rate stored, saving venta without bolívar total")
		default:
			return v, err
		}
	}

	// Save to SQLite first (fast, reliable)
	v, err = s.repo.CreateVenta(ctx, v, usuario(ctx))
	if err != nil {
		return v, fmt.Errorf("save venta: %w", err)
	}

	mutated(core.RecursoVenta, core.AccionCrear)
	metrics.VentasUSD.Add(float64(v.Total.Cents))
	s.stats.Invalidate()

	// New rows start at version 1
	s.notify.synced(ctx, core.RecursoVenta, v.ID, 1)
	return v, nil
}

// Delete removes a sale, restores stock and publishes a delete event.
func (s *VentaService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteVenta(ctx, id, usuario(ctx)); err != nil {
		return fmt.Errorf("delete venta: %w", err)
	}
	mutated(core.RecursoVenta, core.AccionEliminar)
	s.stats.Invalidate()
	s.notify.deleted(ctx, core.RecursoVenta, id)
	return nil
}
