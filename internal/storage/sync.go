package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gestion/internal/core"
)

// Sync states of rows mirrored to the spreadsheet.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// ErrNotSyncable is returned for resources that are not mirrored.
var ErrNotSyncable = errors.New("recurso sin sincronización")

// PendingSync represents the minimal data needed for sync queue messages.
type PendingSync struct {
	Recurso   string
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func syncTable(recurso string) (string, error) {
	switch recurso {
	case core.RecursoVenta:
		return "ventas", nil
	case core.RecursoGasto:
		return "gastos", nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotSyncable, recurso)
}

// GetPendingSync returns rows of recurso not yet mirrored, oldest first.
// Rows in error state are retried as well.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, recurso string, limit int) ([]PendingSync, error) {
	table, err := syncTable(recurso)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, version, created_at FROM "+table+" WHERE sync_status IN ('pending', 'error') ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("get pending %s: %w", table, err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p       PendingSync
			created string
		)
		if err := rows.Scan(&p.ID, &p.Version, &created); err != nil {
			return nil, fmt.Errorf("scan pending %s: %w", table, err)
		}
		p.Recurso = recurso
		p.CreatedAt = r.parseStamp(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SyncVersion returns the current version of a mirrored row.
func (r *SQLiteRepository) SyncVersion(ctx context.Context, recurso string, id int64) (int64, error) {
	table, err := syncTable(recurso)
	if err != nil {
		return 0, err
	}
	var v int64
	if err := r.db.QueryRowContext(ctx, "SELECT version FROM "+table+" WHERE id = ?", id).Scan(&v); err != nil {
		return 0, notFoundOr(err, recurso, id)
	}
	return v, nil
}

// MarkSynced marks a row as mirrored. A row edited since version was read
// stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, recurso string, id, version int64) error {
	table, err := syncTable(recurso)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE "+table+" SET sync_status = 'synced' WHERE id = ? AND version = ?", id, version)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.WarnContext(ctx, "Row changed or removed before sync completed", "recurso", recurso, "id", id, "version", version)
		return nil
	}
	slog.InfoContext(ctx, "Row marked as synced", "recurso", recurso, "id", id)
	return nil
}

// MarkSyncError marks a row as having sync errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, recurso string, id int64) error {
	table, err := syncTable(recurso)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE "+table+" SET sync_status = 'error' WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark %s sync error: %w", table, err)
	}
	slog.WarnContext(ctx, "Row marked with sync error", "recurso", recurso, "id", id)
	return nil
}

// SyncCounts returns how many rows of recurso are in each sync state.
func (r *SQLiteRepository) SyncCounts(ctx context.Context, recurso string) (map[string]int64, error) {
	table, err := syncTable(recurso)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT sync_status, COUNT(*) FROM "+table+" GROUP BY sync_status")
	if err != nil {
		return nil, fmt.Errorf("sync counts %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]int64{SyncPending: 0, SyncSynced: 0, SyncError: 0}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan sync count: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
