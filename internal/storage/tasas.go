package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

// ErrNoRate is returned when no exchange rate was ever stored.
var ErrNoRate = errors.New("no hay tasa de cambio registrada")

func scanTasa(row interface{ Scan(...any) error }) (core.ExchangeRate, error) {
	var (
		t    core.ExchangeRate
		tasa string
	)
	if err := row.Scan(&tasa, &t.Fuente, &t.Usuario, &t.CreatedAt); err != nil {
		return t, err
	}
	rate, err := core.ParseRate(tasa)
	if err != nil {
		return t, fmt.Errorf("stored rate %q: %w", tasa, err)
	}
	t.Tasa = rate
	return t, nil
}

// LatestTasa returns the most recently stored exchange rate or ErrNoRate.
func (r *SQLiteRepository) LatestTasa(ctx context.Context) (core.ExchangeRate, error) {
	t, err := scanTasa(r.db.QueryRowContext(ctx,
		`SELECT tasa, fuente, usuario, created_at FROM tasas ORDER BY id DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNoRate
	}
	if err != nil {
		return t, fmt.Errorf("latest tasa: %w", err)
	}
	return t, nil
}

// ListTasas returns the last limit rates, newest first.
func (r *SQLiteRepository) ListTasas(ctx context.Context, limit int) ([]core.ExchangeRate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tasa, fuente, usuario, created_at FROM tasas ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasas: %w", err)
	}
	defer rows.Close()

	out := []core.ExchangeRate{}
	for rows.Next() {
		t, err := scanTasa(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveTasa stores a new current exchange rate.
func (r *SQLiteRepository) SaveTasa(ctx context.Context, rate core.Rate, fuente, usuario string) (core.ExchangeRate, error) {
	if err := rate.Validate(); err != nil {
		return core.ExchangeRate{}, apperr.Validation("tasa", "debe ser mayor que cero")
	}
	if fuente == "" {
		fuente = "manual"
	}
	out := core.ExchangeRate{Tasa: rate, Fuente: fuente, Usuario: usuario, CreatedAt: r.nowStamp()}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO tasas (tasa, fuente, usuario, created_at) VALUES (?, ?, ?, ?)`,
			rate.String(), fuente, usuario, out.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert tasa: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("tasa id: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionActualizar, core.RecursoTasa, id, usuario,
			fmt.Sprintf("Tasa de cambio fijada en %s Bs/USD", rate.String()))
	})
	return out, err
}
