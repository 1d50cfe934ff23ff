package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

const compraSelect = `SELECT c.id, c.producto_id, p.nombre, c.proveedor, c.cantidad, c.costo_unitario_cents, c.total_cents, c.fecha, c.nota
	FROM compras c JOIN productos p ON p.id = c.producto_id`

func (r *SQLiteRepository) scanCompra(row interface{ Scan(...any) error }) (core.Compra, error) {
	var (
		c     core.Compra
		fecha string
	)
	err := row.Scan(&c.ID, &c.ProductoID, &c.ProductoNombre, &c.Proveedor, &c.Cantidad,
		&c.CostoUnitario.Cents, &c.Total.Cents, &fecha, &c.Nota)
	if err != nil {
		return c, err
	}
	c.Fecha = r.parseStamp(fecha)
	return c, nil
}

func compraWhere(r *SQLiteRepository, f core.ListFilter) *where {
	w := &where{}
	w.search(f.Query, "p.nombre", "c.proveedor", "c.nota")
	w.between(r, "c.fecha", f.Rango)
	return w
}

func (r *SQLiteRepository) ListCompras(ctx context.Context, f core.ListFilter) ([]core.Compra, int64, error) {
	w := compraWhere(r, f)
	total, err := r.count(ctx, r.db, "compras c JOIN productos p ON p.id = c.producto_id", w)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.queryCompras(ctx, compraSelect+w.String()+" ORDER BY c.fecha DESC, c.id DESC LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	return out, total, err
}

// ComprasEnRango returns every purchase in the range, oldest first.
func (r *SQLiteRepository) ComprasEnRango(ctx context.Context, rg core.DateRange) ([]core.Compra, error) {
	w := compraWhere(r, core.ListFilter{Rango: rg})
	return r.queryCompras(ctx, compraSelect+w.String()+" ORDER BY c.fecha, c.id", w.args...)
}

func (r *SQLiteRepository) queryCompras(ctx context.Context, query string, args ...any) ([]core.Compra, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list compras: %w", err)
	}
	defer rows.Close()

	var out []core.Compra
	for rows.Next() {
		c, err := r.scanCompra(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compra: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) getCompra(ctx context.Context, q querier, id int64) (core.Compra, error) {
	c, err := r.scanCompra(q.QueryRowContext(ctx, compraSelect+" WHERE c.id = ?", id))
	if err != nil {
		return c, notFoundOr(err, "Compra", id)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCompra(ctx context.Context, id int64) (core.Compra, error) {
	return r.getCompra(ctx, r.db, id)
}

// CreateCompra records a purchase, adds the quantity to the product stock and
// makes the unit cost the product's current cost.
func (r *SQLiteRepository) CreateCompra(ctx context.Context, c core.Compra, usuario string) (core.Compra, error) {
	c.Recalculate()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		p, err := r.getProducto(ctx, tx, c.ProductoID)
		if apperr.IsNotFound(err) {
			return apperr.Validation("producto_id", err.Error())
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO compras (producto_id, proveedor, cantidad, costo_unitario_cents, total_cents, fecha, nota, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ProductoID, c.Proveedor, c.Cantidad, c.CostoUnitario.Cents, c.Total.Cents, r.stamp(c.Fecha), c.Nota, r.nowStamp())
		if err != nil {
			return fmt.Errorf("insert compra: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("compra id: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE productos SET stock = stock + ?, costo_cents = ?, updated_at = ? WHERE id = ?`,
			c.Cantidad, c.CostoUnitario.Cents, r.nowStamp(), c.ProductoID)
		if err != nil {
			return fmt.Errorf("update producto stock: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionCrear, core.RecursoCompra, c.ID, usuario,
			fmt.Sprintf("Compra de %d x '%s' por %s", c.Cantidad, p.Nombre, core.FormatUSD(c.Total.Cents))); err != nil {
			return err
		}
		c, err = r.getCompra(ctx, tx, c.ID)
		return err
	})
	return c, err
}

// DeleteCompra removes a purchase and takes its quantity back out of stock.
func (r *SQLiteRepository) DeleteCompra(ctx context.Context, id int64, usuario string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		c, err := r.getCompra(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE productos SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?`,
			c.Cantidad, r.nowStamp(), c.ProductoID, c.Cantidad)
		if err != nil {
			return fmt.Errorf("revert producto stock: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.Conflict("No se puede eliminar la compra: el stock de '%s' ya fue vendido", c.ProductoNombre)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM compras WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete compra: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionEliminar, core.RecursoCompra, id, usuario,
			fmt.Sprintf("Compra de %d x '%s' eliminada", c.Cantidad, c.ProductoNombre))
	})
}
