package storage

import (
	"context"
	"fmt"
	"sort"

	"gestion/internal/core"
)

// Totals is a count and sum over one table in a date range.
type Totals struct {
	Count   int64
	Total   core.Money
	TotalBs core.Money
}

// VentasTotals sums sales in the range.
func (r *SQLiteRepository) VentasTotals(ctx context.Context, rg core.DateRange) (Totals, error) {
	w := &where{}
	w.between(r, "fecha", rg)
	var t Totals
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(total_cents), 0), COALESCE(SUM(total_bs_cents), 0) FROM ventas"+w.String(),
		w.args...).Scan(&t.Count, &t.Total.Cents, &t.TotalBs.Cents)
	if err != nil {
		return t, fmt.Errorf("ventas totals: %w", err)
	}
	return t, nil
}

// GastosTotals sums expenses in the range.
func (r *SQLiteRepository) GastosTotals(ctx context.Context, rg core.DateRange) (Totals, error) {
	return r.sumTable(ctx, "gastos", "monto_cents", rg)
}

// ComprasTotals sums purchases in the range.
func (r *SQLiteRepository) ComprasTotals(ctx context.Context, rg core.DateRange) (Totals, error) {
	return r.sumTable(ctx, "compras", "total_cents", rg)
}

func (r *SQLiteRepository) sumTable(ctx context.Context, table, column string, rg core.DateRange) (Totals, error) {
	w := &where{}
	w.between(r, "fecha", rg)
	var t Totals
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM("+column+"), 0) FROM "+table+w.String(), w.args...).Scan(&t.Count, &t.Total.Cents)
	if err != nil {
		return t, fmt.Errorf("%s totals: %w", table, err)
	}
	return t, nil
}

// VentasPorMetodo groups sales in the range by payment method.
func (r *SQLiteRepository) VentasPorMetodo(ctx context.Context, rg core.DateRange) ([]core.MethodTotal, error) {
	w := &where{}
	w.between(r, "fecha", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT metodo_pago, COUNT(*), SUM(total_cents) FROM ventas"+w.String()+
			" GROUP BY metodo_pago ORDER BY SUM(total_cents) DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("ventas por metodo: %w", err)
	}
	defer rows.Close()

	out := []core.MethodTotal{}
	for rows.Next() {
		var m core.MethodTotal
		if err := rows.Scan(&m.MetodoPago, &m.Count, &m.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan metodo: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TopItems returns the best sellers in the range by revenue.
func (r *SQLiteRepository) TopItems(ctx context.Context, rg core.DateRange, limit int) ([]core.TopItem, error) {
	w := &where{}
	w.between(r, "v.fecha", rg)
	args := append(w.args, limit)
	rows, err := r.db.QueryContext(ctx,
		"SELECT i.descripcion, SUM(i.cantidad), SUM(i.subtotal_cents) FROM venta_items i JOIN ventas v ON v.id = i.venta_id"+
			w.String()+" GROUP BY i.descripcion ORDER BY SUM(i.subtotal_cents) DESC, i.descripcion LIMIT ?", args...)
	if err != nil {
		return nil, fmt.Errorf("top items: %w", err)
	}
	defer rows.Close()

	out := []core.TopItem{}
	for rows.Next() {
		var it core.TopItem
		if err := rows.Scan(&it.Descripcion, &it.Cantidad, &it.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan top item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GastosPorCategoria groups expenses in the range by category.
func (r *SQLiteRepository) GastosPorCategoria(ctx context.Context, rg core.DateRange) ([]core.CategoryAmount, error) {
	w := &where{}
	w.between(r, "fecha", rg)
	rows, err := r.db.QueryContext(ctx,
		"SELECT categoria, SUM(monto_cents) FROM gastos"+w.String()+" GROUP BY categoria ORDER BY SUM(monto_cents) DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("gastos por categoria: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan categoria: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DailySeries returns per-day ventas and gastos totals for days with activity.
func (r *SQLiteRepository) DailySeries(ctx context.Context, rg core.DateRange) ([]core.DayTotal, error) {
	byDay := map[string]*core.DayTotal{}
	collect := func(table, column string, set func(d *core.DayTotal, cents int64)) error {
		w := &where{}
		w.between(r, "fecha", rg)
		rows, err := r.db.QueryContext(ctx,
			"SELECT substr(fecha, 1, 10) AS dia, SUM("+column+") FROM "+table+w.String()+" GROUP BY dia", w.args...)
		if err != nil {
			return fmt.Errorf("%s series: %w", table, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				dia   string
				cents int64
			)
			if err := rows.Scan(&dia, &cents); err != nil {
				return fmt.Errorf("scan %s series: %w", table, err)
			}
			d, ok := byDay[dia]
			if !ok {
				d = &core.DayTotal{Fecha: dia}
				byDay[dia] = d
			}
			set(d, cents)
		}
		return rows.Err()
	}
	if err := collect("ventas", "total_cents", func(d *core.DayTotal, c int64) { d.Ventas.Cents = c }); err != nil {
		return nil, err
	}
	if err := collect("gastos", "monto_cents", func(d *core.DayTotal, c int64) { d.Gastos.Cents = c }); err != nil {
		return nil, err
	}

	out := make([]core.DayTotal, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fecha < out[j].Fecha })
	return out, nil
}
