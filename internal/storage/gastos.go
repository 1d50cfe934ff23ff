package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gestion/internal/core"
)

const gastoColumns = `id, descripcion, categoria, monto_cents, fecha, metodo_pago`

func (r *SQLiteRepository) scanGasto(row interface{ Scan(...any) error }) (core.Gasto, error) {
	var (
		g     core.Gasto
		fecha string
	)
	if err := row.Scan(&g.ID, &g.Descripcion, &g.Categoria, &g.Monto.Cents, &fecha, &g.MetodoPago); err != nil {
		return g, err
	}
	g.Fecha = r.parseStamp(fecha)
	return g, nil
}

func gastoWhere(r *SQLiteRepository, f core.ListFilter) *where {
	w := &where{}
	w.search(f.Query, "descripcion", "categoria")
	if f.Categoria != "" {
		w.add("categoria = ?", f.Categoria)
	}
	w.between(r, "fecha", f.Rango)
	return w
}

func (r *SQLiteRepository) queryGastos(ctx context.Context, query string, args ...any) ([]core.Gasto, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list gastos: %w", err)
	}
	defer rows.Close()

	var out []core.Gasto
	for rows.Next() {
		g, err := r.scanGasto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gasto: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListGastos(ctx context.Context, f core.ListFilter) ([]core.Gasto, int64, error) {
	w := gastoWhere(r, f)
	total, err := r.count(ctx, r.db, "gastos", w)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.queryGastos(ctx,
		"SELECT "+gastoColumns+" FROM gastos"+w.String()+" ORDER BY fecha DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	return out, total, err
}

// GastosEnRango returns every expense in the range, oldest first.
func (r *SQLiteRepository) GastosEnRango(ctx context.Context, rg core.DateRange) ([]core.Gasto, error) {
	w := gastoWhere(r, core.ListFilter{Rango: rg})
	return r.queryGastos(ctx, "SELECT "+gastoColumns+" FROM gastos"+w.String()+" ORDER BY fecha, id", w.args...)
}

// ListCategoriasGasto returns the distinct categories already used, for autocompletion.
func (r *SQLiteRepository) ListCategoriasGasto(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT categoria FROM gastos ORDER BY categoria COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list categorias: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan categoria: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) getGasto(ctx context.Context, q querier, id int64) (core.Gasto, error) {
	g, err := r.scanGasto(q.QueryRowContext(ctx, "SELECT "+gastoColumns+" FROM gastos WHERE id = ?", id))
	if err != nil {
		return g, notFoundOr(err, "Gasto", id)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGasto(ctx context.Context, id int64) (core.Gasto, error) {
	return r.getGasto(ctx, r.db, id)
}

func (r *SQLiteRepository) CreateGasto(ctx context.Context, g core.Gasto, usuario string) (core.Gasto, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.nowStamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO gastos (descripcion, categoria, monto_cents, fecha, metodo_pago, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.Descripcion, g.Categoria, g.Monto.Cents, r.stamp(g.Fecha), g.MetodoPago, now, now)
		if err != nil {
			return fmt.Errorf("insert gasto: %w", err)
		}
		if g.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("gasto id: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionCrear, core.RecursoGasto, g.ID, usuario,
			fmt.Sprintf("Gasto '%s' por %s", g.Descripcion, core.FormatUSD(g.Monto.Cents))); err != nil {
			return err
		}
		g, err = r.getGasto(ctx, tx, g.ID)
		return err
	})
	return g, err
}

// UpdateGasto applies the patch and bumps the sync version so the mirror
// picks up the new values.
func (r *SQLiteRepository) UpdateGasto(ctx context.Context, id int64, patch core.GastoPatch, usuario string) (core.Gasto, error) {
	var out core.Gasto
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getGasto(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := patch.Apply(current, r.loc)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE gastos SET descripcion = ?, categoria = ?, monto_cents = ?, fecha = ?, metodo_pago = ?,
			 sync_status = 'pending', version = version + 1, updated_at = ? WHERE id = ?`,
			next.Descripcion, next.Categoria, next.Monto.Cents, r.stamp(next.Fecha), next.MetodoPago, r.nowStamp(), id)
		if err != nil {
			return fmt.Errorf("update gasto: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionActualizar, core.RecursoGasto, id, usuario,
			fmt.Sprintf("Gasto '%s' actualizado", next.Descripcion)); err != nil {
			return err
		}
		out, err = r.getGasto(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *SQLiteRepository) DeleteGasto(ctx context.Context, id int64, usuario string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getGasto(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM gastos WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete gasto: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionEliminar, core.RecursoGasto, id, usuario,
			fmt.Sprintf("Gasto '%s' por %s eliminado", current.Descripcion, core.FormatUSD(current.Monto.Cents)))
	})
}
