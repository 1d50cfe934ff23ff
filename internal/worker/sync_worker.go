// Package worker mirrors ventas and gastos into the spreadsheet and runs the
// scheduled jobs of the worker process.
package worker

import (
	"context"
	"fmt"
	"time"

	"gestion/internal/amqp"
	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/metrics"
	"gestion/internal/sheets"
	"gestion/internal/storage"
)

// SyncWorker applies sync messages to the mirror and records the outcome on
// the source row.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	mirror    sheets.Mirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror sheets.Mirror, batchSize int, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one message from the broker. A returned error
// requeues the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	if !sheets.Mirrored(msg.Recurso) {
		w.logger.DebugContext(ctx, "Ignoring message for unmirrored resource", log.FieldRecurso, msg.Recurso, log.FieldRecursoID, msg.ID)
		return nil
	}
	if msg.Action == amqp.ActionDelete {
		return w.remove(ctx, msg.Recurso, msg.ID)
	}

	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldRecurso, msg.Recurso, log.FieldRecursoID, msg.ID, log.FieldVersion, msg.Version)
	_, err := w.sync(ctx, msg.Recurso, msg.ID)
	return err
}

// sync mirrors the current values of a row and reports whether the mirror
// accepted it. Mirror failures mark the row in error and are left to the
// pending sweep.
func (w *SyncWorker) sync(ctx context.Context, recurso string, id int64) (bool, error) {
	version, err := w.storage.SyncVersion(ctx, recurso, id)
	if apperr.IsNotFound(err) {
		// Removed after the event was sent; its delete message follows.
		w.logger.InfoContext(ctx, "Row no longer exists, skipping sync", log.FieldRecurso, recurso, log.FieldRecursoID, id)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read version of %s %d: %w", recurso, id, err)
	}

	row, err := w.loadRow(ctx, recurso, id)
	if apperr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s %d: %w", recurso, id, err)
	}

	start := time.Now()
	if err := w.mirror.AppendRow(ctx, recurso, row); err != nil {
		metrics.MirrorSyncs.WithLabelValues(recurso, amqp.ActionSync, "error").Inc()
		w.logger.ErrorContext(ctx, "Failed to mirror row",
			log.FieldRecurso, recurso, log.FieldRecursoID, id, log.FieldError, err)
		if markErr := w.storage.MarkSyncError(ctx, recurso, id); markErr != nil {
			return false, fmt.Errorf("mark sync error: %w", markErr)
		}
		return false, nil
	}
	metrics.MirrorSyncs.WithLabelValues(recurso, amqp.ActionSync, "ok").Inc()

	if err := w.storage.MarkSynced(ctx, recurso, id, version); err != nil {
		// The row is mirrored; a later sweep will fix the status.
		w.logger.ErrorContext(ctx, "Failed to mark row as synced",
			log.FieldRecurso, recurso, log.FieldRecursoID, id, log.FieldError, err)
	}
	w.logger.InfoContext(ctx, "Row mirrored",
		log.FieldRecurso, recurso, log.FieldRecursoID, id, log.FieldVersion, version,
		log.FieldDuration, time.Since(start).Milliseconds())
	return true, nil
}

func (w *SyncWorker) remove(ctx context.Context, recurso string, id int64) error {
	if err := w.mirror.DeleteRow(ctx, recurso, id); err != nil {
		metrics.MirrorSyncs.WithLabelValues(recurso, amqp.ActionDelete, "error").Inc()
		return fmt.Errorf("delete %s %d from mirror: %w", recurso, id, err)
	}
	metrics.MirrorSyncs.WithLabelValues(recurso, amqp.ActionDelete, "ok").Inc()
	w.logger.InfoContext(ctx, "Row removed from mirror", log.FieldRecurso, recurso, log.FieldRecursoID, id)
	return nil
}

func (w *SyncWorker) loadRow(ctx context.Context, recurso string, id int64) (sheets.Row, error) {
	switch recurso {
	case core.RecursoVenta:
		v, err := w.storage.GetVenta(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.VentaRow(v), nil
	case core.RecursoGasto:
		g, err := w.storage.GetGasto(ctx, id)
		if err != nil {
			return nil, err
		}
		return sheets.GastoRow(g), nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrNotSyncable, recurso)
}

// ProcessPending mirrors rows still pending or in error and returns how many
// the mirror accepted. It is the fallback when no broker is configured or
// messages were lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending pass when the worker starts, to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending rows found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", n)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	processed, failed := 0, 0
	for _, recurso := range []string{core.RecursoVenta, core.RecursoGasto} {
		pending, err := w.storage.GetPendingSync(ctx, recurso, limit)
		if err != nil {
			return processed, fmt.Errorf("get pending %s: %w", recurso, err)
		}
		for _, p := range pending {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			mirrored, err := w.sync(ctx, p.Recurso, p.ID)
			if err != nil {
				w.logger.ErrorContext(ctx, "Failed to sync pending row",
					log.FieldRecurso, p.Recurso, log.FieldRecursoID, p.ID, log.FieldError, err)
			}
			if mirrored {
				processed++
			} else {
				failed++
			}
		}
	}
	if processed > 0 || failed > 0 {
		w.logger.InfoContext(ctx, "Processed pending rows",
			"count", processed, "failed", failed, log.FieldOperation, log.OpSync)
	}
	return processed, nil
}
