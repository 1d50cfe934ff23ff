package services

import (
	"context"
	"fmt"
	"time"

	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/storage"
)

// GastoService orchestrates expense operations across SQLite and AMQP.
type GastoService struct {
	repo   *storage.SQLiteRepository
	stats  *StatsService
	notify notifier
	logger *log.Logger
	now    clock
}

func NewGastoService(repo *storage.SQLiteRepository, stats *StatsService, pub Publisher, logger *log.Logger) *GastoService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &GastoService{
		repo:   repo,
		stats:  stats,
		notify: newNotifier(pub, logger),
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}
}

func (s *GastoService) List(ctx context.Context, f core.ListFilter) (core.Page[core.Gasto], error) {
	data, total, err := s.repo.ListGastos(ctx, f)
	if err != nil {
		return core.Page[core.Gasto]{}, err
	}
	return core.NewPage(data, total, f.PageRequest), nil
}

func (s *GastoService) Get(ctx context.Context, id int64) (core.Gasto, error) {
	return s.repo.GetGasto(ctx, id)
}

// Categorias lists the distinct categories already used, for autocompletion.
func (s *GastoService) Categorias(ctx context.Context) ([]string, error) {
	out, err := s.repo.ListCategoriasGasto(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Create composes the expense timestamp, saves it and publishes a sync event.
func (s *GastoService) Create(ctx context.Context, in core.GastoInput) (core.Gasto, error) {
	g, err := in.ToGasto(s.repo.Location(), s.now())
	if err != nil {
		return g, err
	}
	g, err = s.repo.CreateGasto(ctx, g, usuario(ctx))
	if err != nil {
		return g, fmt.Errorf("save gasto: %w", err)
	}
	mutated(core.RecursoGasto, core.AccionCrear)
	s.stats.Invalidate()
	s.notify.synced(ctx, core.RecursoGasto, g.ID, 1)
	return g, nil
}

// Update applies a partial change. The stored version is bumped so the
// mirror rewrites the row.
func (s *GastoService) Update(ctx context.Context, id int64, patch core.GastoPatch) (core.Gasto, error) {
	g, err := s.repo.UpdateGasto(ctx, id, patch, usuario(ctx))
	if err != nil {
		return g, err
	}
	mutated(core.RecursoGasto, core.AccionActualizar)
	s.stats.Invalidate()

	version, err := s.repo.SyncVersion(ctx, core.RecursoGasto, id)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read gasto version, event skipped",
			log.FieldRecursoID, id, log.FieldError, err)
		return g, nil
	}
	s.notify.synced(ctx, core.RecursoGasto, id, version)
	return g, nil
}

func (s *GastoService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteGasto(ctx, id, usuario(ctx)); err != nil {
		return fmt.Errorf("delete gasto: %w", err)
	}
	mutated(core.RecursoGasto, core.AccionEliminar)
	s.stats.Invalidate()
	s.notify.deleted(ctx, core.RecursoGasto, id)
	return nil
}
