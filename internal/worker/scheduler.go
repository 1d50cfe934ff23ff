package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/reports"
	"gestion/internal/services"
)

// SchedulerConfig holds the cron expressions of the periodic jobs. An empty
// expression disables its job.
type SchedulerConfig struct {
	ReportCron string
	StockCron  string
	ReportsDir string
	Location   *time.Location
}

// Scheduler runs the nightly report archive and the low stock check.
type Scheduler struct {
	cron    *cron.Cron
	reports *services.ReportService
	catalog *services.CatalogService
	config  SchedulerConfig
	logger  *log.Logger
	now     func() time.Time

	mu      sync.Mutex
	running bool
}

func NewScheduler(config SchedulerConfig, reportSvc *services.ReportService, catalog *services.CatalogService, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	s := &Scheduler{
		reports: reportSvc,
		catalog: catalog,
		config:  config,
		logger:  logger.WithComponent(log.ComponentScheduler),
		now:     time.Now,
	}
	cl := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLocation(config.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if config.ReportCron != "" && reportSvc != nil {
		if _, err := s.cron.AddFunc(config.ReportCron, s.runDailyReport); err != nil {
			return nil, fmt.Errorf("schedule daily report %q: %w", config.ReportCron, err)
		}
	}
	if config.StockCron != "" && catalog != nil {
		if _, err := s.cron.AddFunc(config.StockCron, s.runStockCheck); err != nil {
			return nil, fmt.Errorf("schedule stock check %q: %w", config.StockCron, err)
		}
	}
	return s, nil
}

// Start runs the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop prevents new runs and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runDailyReport() {
	ctx := context.Background()
	if _, err := s.ArchiveDailyReport(ctx, s.now().In(s.config.Location)); err != nil {
		s.logger.ErrorContext(ctx, "Daily report failed", log.FieldReport, reports.TipoDiario, log.FieldError, err)
	}
}

// ArchiveDailyReport renders the daily closing PDF of day into ReportsDir
// and returns the written path.
func (s *Scheduler) ArchiveDailyReport(ctx context.Context, day time.Time) (string, error) {
	if err := os.MkdirAll(s.config.ReportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	fecha := day.Format(core.DateLayout)
	tmp, err := os.CreateTemp(s.config.ReportsDir, ".diario-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = s.reports.Generate(ctx, tmp, services.ReportRequest{
		Tipo:    reports.TipoDiario,
		Formato: reports.FormatPDF,
		Fecha:   fecha,
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.config.ReportsDir, fmt.Sprintf("diario_%s.pdf", fecha))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	s.logger.InfoContext(ctx, "Daily report archived", log.FieldReport, reports.TipoDiario, "path", path)
	return path, nil
}

func (s *Scheduler) runStockCheck() {
	ctx := context.Background()
	if _, err := s.CheckStock(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Stock check failed", log.FieldError, err)
	}
}

// CheckStock logs every product at or below its minimum stock.
func (s *Scheduler) CheckStock(ctx context.Context) ([]core.Producto, error) {
	low, err := s.catalog.BajoStock(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range low {
		s.logger.WarnContext(ctx, "Product below minimum stock",
			log.FieldRecurso, core.RecursoProducto, log.FieldRecursoID, p.ID,
			"nombre", p.Nombre, "stock", p.Stock, "stock_minimo", p.StockMinimo)
	}
	if len(low) == 0 {
		s.logger.DebugContext(ctx, "Stock check found no products below minimum")
	}
	return low, nil
}

// cronLogger routes cron's own messages into the structured logger.
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
