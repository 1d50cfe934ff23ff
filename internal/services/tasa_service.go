package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/cache"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/storage"
)

const (
	currentRateKey     = "current"
	defaultHistorySize = 30
	maxHistorySize     = 365
	// FuenteManual is recorded when the user does not name a source.
	FuenteManual = "manual"
	// FuenteConfig marks a rate that comes from DEFAULT_RATE, not from the database.
	FuenteConfig = "config"
)

// Conversion is the result of converting an amount with the current rate.
type Conversion struct {
	USD  core.Money `json:"usd"`
	Bs   core.Money `json:"bs"`
	Tasa core.Rate  `json:"tasa"`
}

// TasaService serves the USD/Bs exchange rate. The current value is held in
// a TTL cache and refreshed from SQLite on expiry or update.
type TasaService struct {
	repo     *storage.SQLiteRepository
	cache    *cache.LRUCache[core.ExchangeRate]
	fallback core.Rate
	logger   *log.Logger
}

// NewTasaService builds the service. fallback is used while no rate was ever
// stored; a zero fallback makes Current fail with a not-found error instead.
func NewTasaService(repo *storage.SQLiteRepository, ttl time.Duration, fallback core.Rate, logger *log.Logger) *TasaService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TasaService{
		repo:     repo,
		cache:    cache.NewLRUCache[core.ExchangeRate](1, ttl),
		fallback: fallback,
		logger:   logger.WithComponent(log.ComponentCache),
	}
}

// Cache exposes the rate cache to the janitor.
func (s *TasaService) Cache() cache.Cleaner { return s.cache }

// Current returns the latest exchange rate.
func (s *TasaService) Current(ctx context.Context) (core.ExchangeRate, error) {
	if r, ok := s.cache.Get(currentRateKey); ok {
		return r, nil
	}
	r, err := s.repo.LatestTasa(ctx)
	if errors.Is(err, storage.ErrNoRate) {
		if s.fallback.IsPositive() {
			return core.ExchangeRate{Tasa: s.fallback, Fuente: FuenteConfig}, nil
		}
		return r, apperr.Missing("No hay tasa de cambio registrada")
	}
	if err != nil {
		return r, fmt.Errorf("current rate: %w", err)
	}
	s.cache.Set(currentRateKey, r)
	s.logger.DebugContext(ctx, "Exchange rate loaded", "tasa", r.Tasa.String())
	return r, nil
}

// Set stores a new rate and replaces the cached value.
func (s *TasaService) Set(ctx context.Context, rate core.Rate, fuente string) (core.ExchangeRate, error) {
	if err := rate.Validate(); err != nil {
		return core.ExchangeRate{}, apperr.Validation("tasa", "debe ser un número mayor que cero")
	}
	if fuente = strings.TrimSpace(fuente); fuente == "" {
		fuente = FuenteManual
	}
	r, err := s.repo.SaveTasa(ctx, rate, fuente, usuario(ctx))
	if err != nil {
		return r, err
	}
	s.cache.Set(currentRateKey, r)
	mutated(core.RecursoTasa, core.AccionActualizar)
	s.logger.InfoContext(ctx, "Exchange rate updated",
		"tasa", r.Tasa.String(), "fuente", r.Fuente, log.FieldUsuario, r.Usuario)
	return r, nil
}

// History returns the most recent stored rates, newest first.
func (s *TasaService) History(ctx context.Context, limit int) ([]core.ExchangeRate, error) {
	if limit <= 0 {
		limit = defaultHistorySize
	}
	if limit > maxHistorySize {
		limit = maxHistorySize
	}
	out, err := s.repo.ListTasas(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.ExchangeRate{}
	}
	return out, nil
}

// ConvertUSD converts a dollar amount to bolívares.
func (s *TasaService) ConvertUSD(ctx context.Context, usd core.Money) (Conversion, error) {
	r, err := s.Current(ctx)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{USD: usd, Bs: core.ConvertToBs(usd, r.Tasa), Tasa: r.Tasa}, nil
}

// ConvertBs converts a bolívar amount to dollars.
func (s *TasaService) ConvertBs(ctx context.Context, bs core.Money) (Conversion, error) {
	r, err := s.Current(ctx)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{USD: core.ConvertToUSD(bs, r.Tasa), Bs: bs, Tasa: r.Tasa}, nil
}
