package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/storage"
)

// SweeperConfig holds configuration for the pending-row sweeper
type SweeperConfig struct {
	// Interval is how often to look for unsynced rows (default: 1m)
	Interval time.Duration

	// BatchSize is the max number of rows per resource per pass (default: 50)
	BatchSize int

	// MinAge skips rows younger than this, whose event is probably in flight (default: 30s)
	MinAge time.Duration
}

// DefaultSweeperConfig returns sensible defaults
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  time.Minute,
		BatchSize: 50,
		MinAge:    30 * time.Second,
	}
}

// SyncSweeper republishes ventas and gastos still pending or in error, so
// events lost while the broker was down are eventually delivered.
type SyncSweeper struct {
	repo   *storage.SQLiteRepository
	pub    Publisher
	config SweeperConfig
	logger *log.Logger
	now    clock

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncSweeper(repo *storage.SQLiteRepository, pub Publisher, config SweeperConfig, logger *log.Logger) *SyncSweeper {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncSweeper{
		repo:   repo,
		pub:    pub,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *SyncSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sync sweeper is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Sync sweeper started",
		"interval", s.config.Interval, "batch_size", s.config.BatchSize)
	return nil
}

// Stop gracefully stops the sweeper and waits for completion.
func (s *SyncSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "Sync sweeper stopped gracefully")
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Sync sweeper stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// IsRunning returns whether the sweeper is currently running
func (s *SyncSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SyncSweeper) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Sync sweep failed", log.FieldError, err)
			}
		}
	}
}

// Sweep publishes one batch of unsynced rows per resource and returns how
// many events were sent.
func (s *SyncSweeper) Sweep(ctx context.Context) (int, error) {
	if s.pub == nil {
		return 0, nil
	}
	cutoff := s.now().Add(-s.config.MinAge)
	sent := 0
	for _, recurso := range []string{core.RecursoVenta, core.RecursoGasto} {
		pending, err := s.repo.GetPendingSync(ctx, recurso, s.config.BatchSize)
		if err != nil {
			return sent, fmt.Errorf("pending %s: %w", recurso, err)
		}
		for _, p := range pending {
			if p.CreatedAt.After(cutoff) {
				continue
			}
			if err := s.pub.PublishSync(ctx, p.Recurso, p.ID, p.Version); err != nil {
				// Broker unavailable, the next pass retries
				return sent, fmt.Errorf("republish %s %d: %w", p.Recurso, p.ID, err)
			}
			sent++
		}
	}
	if sent > 0 {
		s.logger.InfoContext(ctx, "Republished pending rows", "count", sent, log.FieldOperation, log.OpSync)
	}
	return sent, nil
}
