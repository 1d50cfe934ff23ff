package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

const ventaColumns = `id, fecha, cliente, metodo_pago, total_cents, total_bs_cents, tasa, nota`

func (r *SQLiteRepository) scanVenta(row interface{ Scan(...any) error }) (core.Venta, error) {
	var (
		v           core.Venta
		fecha, tasa string
	)
	if err := row.Scan(&v.ID, &fecha, &v.Cliente, &v.MetodoPago, &v.Total.Cents, &v.TotalBs.Cents, &tasa, &v.Nota); err != nil {
		return v, err
	}
	v.Fecha = r.parseStamp(fecha)
	if rate, err := core.ParseRate(tasa); err == nil {
		v.Tasa = rate
	}
	return v, nil
}

// loadItems attaches the line items of every venta in vs.
func (r *SQLiteRepository) loadItems(ctx context.Context, q querier, vs []core.Venta) error {
	if len(vs) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(vs))
	placeholders := make([]string, len(vs))
	args := make([]any, len(vs))
	for i, v := range vs {
		idx[v.ID] = i
		placeholders[i] = "?"
		args[i] = v.ID
		vs[i].Items = []core.VentaItem{}
	}
	rows, err := q.QueryContext(ctx,
		`SELECT id, venta_id, producto_id, servicio_id, descripcion, cantidad, precio_unitario_cents, subtotal_cents
		 FROM venta_items WHERE venta_id IN (`+strings.Join(placeholders, ",")+`) ORDER BY id`, args...)
	if err != nil {
		return fmt.Errorf("list venta items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                     core.VentaItem
			ventaID                int64
			productoID, servicioID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &ventaID, &productoID, &servicioID, &it.Descripcion, &it.Cantidad,
			&it.PrecioUnitario.Cents, &it.Subtotal.Cents); err != nil {
			return fmt.Errorf("scan venta item: %w", err)
		}
		if productoID.Valid {
			it.ProductoID = &productoID.Int64
		}
		if servicioID.Valid {
			it.ServicioID = &servicioID.Int64
		}
		if i, ok := idx[ventaID]; ok {
			vs[i].Items = append(vs[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) queryVentas(ctx context.Context, query string, args ...any) ([]core.Venta, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ventas: %w", err)
	}
	var out []core.Venta
	for rows.Next() {
		v, err := r.scanVenta(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan venta: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// The single connection must be released before loading items.
	rows.Close()
	if err := r.loadItems(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func ventaWhere(r *SQLiteRepository, f core.ListFilter) *where {
	w := &where{}
	if f.Query != "" {
		pattern := likePattern(f.Query)
		w.add(`(cliente LIKE ? ESCAPE '\' OR nota LIKE ? ESCAPE '\' OR id IN (SELECT venta_id FROM venta_items WHERE descripcion LIKE ? ESCAPE '\'))`,
			pattern, pattern, pattern)
	}
	w.between(r, "fecha", f.Rango)
	return w
}

func (r *SQLiteRepository) ListVentas(ctx context.Context, f core.ListFilter) ([]core.Venta, int64, error) {
	w := ventaWhere(r, f)
	total, err := r.count(ctx, r.db, "ventas", w)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.queryVentas(ctx,
		"SELECT "+ventaColumns+" FROM ventas"+w.String()+" ORDER BY fecha DESC, id DESC LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	return out, total, err
}

// VentasEnRango returns every sale in the range with its items, oldest first.
func (r *SQLiteRepository) VentasEnRango(ctx context.Context, rg core.DateRange) ([]core.Venta, error) {
	w := ventaWhere(r, core.ListFilter{Rango: rg})
	return r.queryVentas(ctx, "SELECT "+ventaColumns+" FROM ventas"+w.String()+" ORDER BY fecha, id", w.args...)
}

func (r *SQLiteRepository) getVenta(ctx context.Context, q querier, id int64) (core.Venta, error) {
	v, err := r.scanVenta(q.QueryRowContext(ctx, "SELECT "+ventaColumns+" FROM ventas WHERE id = ?", id))
	if err != nil {
		return v, notFoundOr(err, "Venta", id)
	}
	vs := []core.Venta{v}
	if err := r.loadItems(ctx, q, vs); err != nil {
		return v, err
	}
	return vs[0], nil
}

func (r *SQLiteRepository) GetVenta(ctx context.Context, id int64) (core.Venta, error) {
	return r.getVenta(ctx, r.db, id)
}

// resolveItems fills description and price from the catalog where the
// request left them empty and checks stock for every product line.
func (r *SQLiteRepository) resolveItems(ctx context.Context, tx *sql.Tx, items []core.VentaItem) error {
	need := make(map[int64]int64)
	productos := make(map[int64]core.Producto)
	for i := range items {
		it := &items[i]
		switch {
		case it.ProductoID != nil:
			p, ok := productos[*it.ProductoID]
			if !ok {
				var err error
				p, err = r.getProducto(ctx, tx, *it.ProductoID)
				if apperr.IsNotFound(err) {
					return apperr.Validation("items", err.Error())
				}
				if err != nil {
					return err
				}
				productos[p.ID] = p
			}
			if strings.TrimSpace(it.Descripcion) == "" {
				it.Descripcion = p.Nombre
			}
			if it.PrecioUnitario.Cents == 0 {
				it.PrecioUnitario = p.Precio
			}
			need[p.ID] += it.Cantidad
		case it.ServicioID != nil:
			s, err := r.getServicio(ctx, tx, *it.ServicioID)
			if apperr.IsNotFound(err) {
				return apperr.Validation("items", err.Error())
			}
			if err != nil {
				return err
			}
			if !s.Activo {
				return apperr.Validation("items", fmt.Sprintf("El servicio '%s' está inactivo", s.Nombre))
			}
			if strings.TrimSpace(it.Descripcion) == "" {
				it.Descripcion = s.Nombre
			}
			if it.PrecioUnitario.Cents == 0 {
				it.PrecioUnitario = s.Precio
			}
		}
		if !it.PrecioUnitario.FitsTimes(it.Cantidad) {
			return apperr.Validation("precio_unitario", "el subtotal excede el máximo permitido")
		}
	}
	for id, qty := range need {
		p := productos[id]
		if p.Stock < qty {
			return apperr.Conflict("Stock insuficiente para '%s': disponible %d, solicitado %d", p.Nombre, p.Stock, qty)
		}
	}
	return nil
}

// CreateVenta stores a sale with its items and takes product quantities out
// of stock. The rate in v.Tasa is kept with the sale as a snapshot.
func (r *SQLiteRepository) CreateVenta(ctx context.Context, v core.Venta, usuario string) (core.Venta, error) {
	v.Items = append([]core.VentaItem(nil), v.Items...)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := r.resolveItems(ctx, tx, v.Items); err != nil {
			return err
		}
		v.Recalculate()
		now := r.nowStamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO ventas (fecha, cliente, metodo_pago, total_cents, total_bs_cents, tasa, nota, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.stamp(v.Fecha), v.Cliente, v.MetodoPago, v.Total.Cents, v.TotalBs.Cents, v.Tasa.String(), v.Nota, now)
		if err != nil {
			return fmt.Errorf("insert venta: %w", err)
		}
		if v.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("venta id: %w", err)
		}
		for _, it := range v.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO venta_items (venta_id, producto_id, servicio_id, descripcion, cantidad, precio_unitario_cents, subtotal_cents)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				v.ID, nullableID(it.ProductoID), nullableID(it.ServicioID), it.Descripcion, it.Cantidad, it.PrecioUnitario.Cents, it.Subtotal.Cents)
			if err != nil {
				return fmt.Errorf("insert venta item: %w", err)
			}
			if it.ProductoID == nil {
				continue
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE productos SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?`,
				it.Cantidad, now, *it.ProductoID, it.Cantidad)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperr.Conflict("Stock insuficiente para '%s'", it.Descripcion)
			}
		}
		if err := r.logChange(ctx, tx, core.AccionCrear, core.RecursoVenta, v.ID, usuario,
			fmt.Sprintf("Venta de %s (%d ítems, %s)", core.FormatUSD(v.Total.Cents), len(v.Items), v.MetodoPago)); err != nil {
			return err
		}
		v, err = r.getVenta(ctx, tx, v.ID)
		return err
	})
	return v, err
}

// DeleteVenta removes a sale and returns its product quantities to stock.
func (r *SQLiteRepository) DeleteVenta(ctx context.Context, id int64, usuario string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		v, err := r.getVenta(ctx, tx, id)
		if err != nil {
			return err
		}
		now := r.nowStamp()
		for _, it := range v.Items {
			if it.ProductoID == nil {
				continue
			}
			_, err := tx.ExecContext(ctx, `UPDATE productos SET stock = stock + ?, updated_at = ? WHERE id = ?`,
				it.Cantidad, now, *it.ProductoID)
			if err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ventas WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete venta: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionEliminar, core.RecursoVenta, id, usuario,
			fmt.Sprintf("Venta de %s eliminada", core.FormatUSD(v.Total.Cents)))
	})
}
