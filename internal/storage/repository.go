package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists every resource in one SQLite database.
// All timestamps are stored as local business time in core.DateTimeLayout
// so that range filters can compare them lexically.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes transactions
	// instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewWithDB(db, loc), nil
}

// NewWithDB wraps an already opened database. The schema must exist.
func NewWithDB(db *sql.DB, loc *time.Location) *SQLiteRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteRepository{db: db, loc: loc, now: time.Now}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Location returns the time zone timestamps are stored in.
func (r *SQLiteRepository) Location() *time.Location { return r.loc }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction. Inside fn only tx may be used: with a
// single pooled connection, touching r.db would block forever.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) stamp(t time.Time) string {
	return core.FormatDateTime(t.In(r.loc))
}

func (r *SQLiteRepository) nowStamp() string {
	return r.stamp(r.now())
}

func (r *SQLiteRepository) parseStamp(s string) time.Time {
	t, err := core.ParseDateTime(s, r.loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// logChange appends the audit row for a mutation inside the same transaction.
func (r *SQLiteRepository) logChange(ctx context.Context, q querier, accion, recurso string, id int64, usuario, descripcion string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO historial (fecha, accion, recurso, recurso_id, descripcion, usuario) VALUES (?, ?, ?, ?, ?, ?)`,
		r.nowStamp(), accion, recurso, id, descripcion, usuario)
	if err != nil {
		return fmt.Errorf("insert historial: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func notFoundOr(err error, resource string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// likePattern turns user input into a LIKE pattern matched anywhere in the column.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// where accumulates AND-ed SQL conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) search(q string, columns ...string) {
	if q == "" {
		return
	}
	pattern := likePattern(q)
	parts := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		parts[i] = c + ` LIKE ? ESCAPE '\'`
		args[i] = pattern
	}
	w.add("("+strings.Join(parts, " OR ")+")", args...)
}

func (w *where) between(r *SQLiteRepository, column string, rg core.DateRange) {
	if !rg.Desde.IsZero() {
		w.add(column+" >= ?", r.stamp(rg.Desde))
	}
	if !rg.Hasta.IsZero() {
		w.add(column+" < ?", r.stamp(rg.Hasta))
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (r *SQLiteRepository) count(ctx context.Context, q querier, table string, w *where) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func pageArgs(w *where, p core.PageRequest) []any {
	args := append([]any(nil), w.args...)
	return append(args, p.Limit, p.Offset())
}
