// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/gestion, cmd/gestion-worker and cmd/gestionctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gestion/internal/cache"
	"gestion/internal/config"
	"gestion/internal/log"
	"gestion/internal/services"
	"gestion/internal/storage"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the process default.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository in the configured time zone, running
// pending migrations. Exits the process on failure.
func InitSQLite(logger *log.Logger, cfg *config.Config) *storage.SQLiteRepository {
	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, loc)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}

// Services bundles the application services shared by the binaries.
type Services struct {
	Tasas     *services.TasaService
	Stats     *services.StatsService
	Ventas    *services.VentaService
	Gastos    *services.GastoService
	Compras   *services.CompraService
	Catalog   *services.CatalogService
	Personal  *services.PersonalService
	Historial *services.HistorialService
	Auth      *services.AuthService
	Reports   *services.ReportService
}

// Caches returns every cache the janitor should sweep.
func (s *Services) Caches() []cache.Cleaner {
	return append([]cache.Cleaner{s.Tasas.Cache()}, s.Stats.Caches()...)
}

// BuildServices wires the services over repo. pub may be nil.
func BuildServices(cfg *config.Config, repo *storage.SQLiteRepository, pub services.Publisher, logger *log.Logger) *Services {
	fallback, _ := cfg.FallbackRate()
	tasas := services.NewTasaService(repo, cfg.RateCacheTTL, fallback, logger)
	stats := services.NewStatsService(repo, tasas, cfg.StatsTTL, logger)
	return &Services{
		Tasas:     tasas,
		Stats:     stats,
		Ventas:    services.NewVentaService(repo, tasas, stats, pub, logger),
		Gastos:    services.NewGastoService(repo, stats, pub, logger),
		Compras:   services.NewCompraService(repo, stats),
		Catalog:   services.NewCatalogService(repo),
		Personal:  services.NewPersonalService(repo),
		Historial: services.NewHistorialService(repo),
		Auth:      services.NewAuthService(repo, cfg.JWTSecret, cfg.TokenTTL, logger),
		Reports:   services.NewReportService(repo, stats, tasas, cfg.BusinessName, logger),
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
