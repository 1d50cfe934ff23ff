package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gestion/internal/apperr"
	"gestion/internal/cache"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/storage"
)

const (
	topItemsLimit  = 5
	statsCacheSize = 64
)

// StatsService computes dashboard aggregates. Results are cached without the
// exchange rate, which is attached on every read so a rate update shows at once.
type StatsService struct {
	repo    *storage.SQLiteRepository
	tasas   *TasaService
	daily   *cache.LRUCache[core.DailyStats]
	monthly *cache.LRUCache[core.MonthOverview]
	now     clock

	// gen counts invalidations; results computed under an older gen are not cached.
	mu  sync.Mutex
	gen uint64

	logger *log.Logger
}

func NewStatsService(repo *storage.SQLiteRepository, tasas *TasaService, ttl time.Duration, logger *log.Logger) *StatsService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &StatsService{
		repo:    repo,
		tasas:   tasas,
		daily:   cache.NewLRUCache[core.DailyStats](statsCacheSize, ttl),
		monthly: cache.NewLRUCache[core.MonthOverview](statsCacheSize, ttl),
		now:     time.Now,
		logger:  logger.WithComponent(log.ComponentCache),
	}
}

// Caches exposes the stats caches to the janitor.
func (s *StatsService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.daily, s.monthly}
}

// Invalidate drops every cached aggregate. Called after each write that
// changes ventas, gastos or compras.
func (s *StatsService) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.daily.Purge()
	s.monthly.Purge()
}

func (s *StatsService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// storeDaily caches st unless an invalidation happened since gen was read.
func (s *StatsService) storeDaily(key string, st core.DailyStats, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.daily.Set(key, st)
	}
}

func (s *StatsService) storeMonthly(key string, ov core.MonthOverview, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.monthly.Set(key, ov)
	}
}

// Daily returns the summary for fecha (YYYY-MM-DD). Empty means today.
func (s *StatsService) Daily(ctx context.Context, fecha string) (core.DailyStats, error) {
	loc := s.repo.Location()
	day := s.now().In(loc)
	if fecha != "" {
		d, err := core.ParseDay(fecha, loc)
		if err != nil {
			return core.DailyStats{}, apperr.Validation("fecha", "use el formato AAAA-MM-DD")
		}
		day = d
	}
	key := day.Format(core.DateLayout)

	st, ok := s.daily.Get(key)
	if !ok {
		gen := s.generation()
		var err error
		if st, err = s.computeDaily(ctx, core.DayRange(day)); err != nil {
			return st, err
		}
		st.Fecha = key
		s.storeDaily(key, st, gen)
	} else {
		s.logger.DebugContext(ctx, "Daily stats cache hit", "fecha", key)
	}

	s.attachRate(ctx, &st)
	st.ComputeBalance()
	return st, nil
}

func (s *StatsService) computeDaily(ctx context.Context, rg core.DateRange) (core.DailyStats, error) {
	var (
		st                      core.DailyStats
		ventas, gastos, compras storage.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ventas, err = s.repo.VentasTotals(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		gastos, err = s.repo.GastosTotals(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		compras, err = s.repo.ComprasTotals(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		st.PorMetodo, err = s.repo.VentasPorMetodo(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		st.TopItems, err = s.repo.TopItems(gctx, rg, topItemsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return st, fmt.Errorf("daily stats: %w", err)
	}

	st.VentasCount, st.VentasTotal, st.VentasTotalBs = ventas.Count, ventas.Total, ventas.TotalBs
	st.GastosCount, st.GastosTotal = gastos.Count, gastos.Total
	st.ComprasCount, st.ComprasTotal = compras.Count, compras.Total
	if st.PorMetodo == nil {
		st.PorMetodo = []core.MethodTotal{}
	}
	if st.TopItems == nil {
		st.TopItems = []core.TopItem{}
	}
	return st, nil
}

func (s *StatsService) attachRate(ctx context.Context, st *core.DailyStats) {
	if s.tasas == nil {
		return
	}
	r, err := s.tasas.Current(ctx)
	if err != nil {
		if !apperr.IsNotFound(err) {
			s.logger.WarnContext(ctx, "Exchange rate unavailable for stats", log.FieldError, err)
		}
		return
	}
	st.Tasa = r.Tasa
}

// Monthly returns the overview of a calendar month. Zero values mean the
// current year or month.
func (s *StatsService) Monthly(ctx context.Context, year, month int) (core.MonthOverview, error) {
	now := s.now().In(s.repo.Location())
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if year < 2000 || year > 2100 {
		return core.MonthOverview{}, apperr.Validation("year", "año fuera de rango")
	}
	if month < 1 || month > 12 {
		return core.MonthOverview{}, apperr.Validation("month", "el mes debe estar entre 1 y 12")
	}

	key := fmt.Sprintf("%04d-%02d", year, month)
	if ov, ok := s.monthly.Get(key); ok {
		return ov, nil
	}

	gen := s.generation()
	rg := core.MonthRange(year, month, s.repo.Location())
	ov := core.MonthOverview{Year: year, Month: month}
	var ventas, gastos, compras storage.Totals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ventas, err = s.repo.VentasTotals(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		gastos, err = s.repo.GastosTotals(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		compras, err = s.repo.ComprasTotals(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		ov.Dias, err = s.repo.DailySeries(gctx, rg)
		return err
	})
	g.Go(func() (err error) {
		ov.GastosPorCategoria, err = s.repo.GastosPorCategoria(gctx, rg)
		return err
	})
	if err := g.Wait(); err != nil {
		return ov, fmt.Errorf("monthly stats: %w", err)
	}

	ov.VentasTotal, ov.GastosTotal, ov.ComprasTotal = ventas.Total, gastos.Total, compras.Total
	ov.Balance = ventas.Total.Sub(gastos.Total).Sub(compras.Total)
	if ov.Dias == nil {
		ov.Dias = []core.DayTotal{}
	}
	if ov.GastosPorCategoria == nil {
		ov.GastosPorCategoria = []core.CategoryAmount{}
	}
	s.storeMonthly(key, ov, gen)
	return ov, nil
}
