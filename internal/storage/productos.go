package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

const productoColumns = `id, COALESCE(codigo, ''), nombre, descripcion, categoria, precio_cents, costo_cents, stock, stock_minimo, created_at, updated_at`

func (r *SQLiteRepository) scanProducto(row interface{ Scan(...any) error }) (core.Producto, error) {
	var (
		p                core.Producto
		created, updated string
	)
	err := row.Scan(&p.ID, &p.Codigo, &p.Nombre, &p.Descripcion, &p.Categoria,
		&p.Precio.Cents, &p.Costo.Cents, &p.Stock, &p.StockMinimo, &created, &updated)
	if err != nil {
		return p, err
	}
	p.CreatedAt = r.parseStamp(created)
	p.UpdatedAt = r.parseStamp(updated)
	return p, nil
}

func (r *SQLiteRepository) queryProductos(ctx context.Context, query string, args ...any) ([]core.Producto, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list productos: %w", err)
	}
	defer rows.Close()

	var out []core.Producto
	for rows.Next() {
		p, err := r.scanProducto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan producto: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListProductos(ctx context.Context, f core.ListFilter) ([]core.Producto, int64, error) {
	w := &where{}
	w.search(f.Query, "nombre", "codigo", "categoria")
	if f.Categoria != "" {
		w.add("categoria = ?", f.Categoria)
	}
	total, err := r.count(ctx, r.db, "productos", w)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.queryProductos(ctx,
		"SELECT "+productoColumns+" FROM productos"+w.String()+" ORDER BY nombre COLLATE NOCASE, id LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	return out, total, err
}

// ListBajoStock returns every product at or below its minimum stock.
func (r *SQLiteRepository) ListBajoStock(ctx context.Context) ([]core.Producto, error) {
	return r.queryProductos(ctx,
		"SELECT "+productoColumns+" FROM productos WHERE stock <= stock_minimo ORDER BY stock - stock_minimo, nombre COLLATE NOCASE")
}

// ListAllProductos returns the whole catalog, used by the inventory report.
func (r *SQLiteRepository) ListAllProductos(ctx context.Context) ([]core.Producto, error) {
	return r.queryProductos(ctx, "SELECT "+productoColumns+" FROM productos ORDER BY categoria, nombre COLLATE NOCASE")
}

func (r *SQLiteRepository) getProducto(ctx context.Context, q querier, id int64) (core.Producto, error) {
	p, err := r.scanProducto(q.QueryRowContext(ctx, "SELECT "+productoColumns+" FROM productos WHERE id = ?", id))
	if err != nil {
		return p, notFoundOr(err, "Producto", id)
	}
	return p, nil
}

func (r *SQLiteRepository) GetProducto(ctx context.Context, id int64) (core.Producto, error) {
	return r.getProducto(ctx, r.db, id)
}

func codigoDuplicado(codigo string) error {
	return apperr.Conflict("Ya existe un producto con el código '%s'", codigo)
}

func (r *SQLiteRepository) CreateProducto(ctx context.Context, p core.Producto, usuario string) (core.Producto, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.nowStamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO productos (codigo, nombre, descripcion, categoria, precio_cents, costo_cents, stock, stock_minimo, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nullableString(p.Codigo), p.Nombre, p.Descripcion, p.Categoria, p.Precio.Cents, p.Costo.Cents, p.Stock, p.StockMinimo, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return codigoDuplicado(p.Codigo)
			}
			return fmt.Errorf("insert producto: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("producto id: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionCrear, core.RecursoProducto, p.ID, usuario,
			fmt.Sprintf("Producto '%s' creado con stock %d", p.Nombre, p.Stock)); err != nil {
			return err
		}
		p, err = r.getProducto(ctx, tx, p.ID)
		return err
	})
	return p, err
}

func (r *SQLiteRepository) UpdateProducto(ctx context.Context, id int64, patch core.ProductoPatch, usuario string) (core.Producto, error) {
	var out core.Producto
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getProducto(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := patch.Apply(current)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE productos SET codigo = ?, nombre = ?, descripcion = ?, categoria = ?, precio_cents = ?, costo_cents = ?,
			 stock = ?, stock_minimo = ?, updated_at = ? WHERE id = ?`,
			nullableString(next.Codigo), next.Nombre, next.Descripcion, next.Categoria, next.Precio.Cents, next.Costo.Cents,
			next.Stock, next.StockMinimo, r.nowStamp(), id)
		if err != nil {
			if isUniqueViolation(err) {
				return codigoDuplicado(next.Codigo)
			}
			return fmt.Errorf("update producto: %w", err)
		}
		desc := fmt.Sprintf("Producto '%s' actualizado", next.Nombre)
		if next.Stock != current.Stock {
			desc = fmt.Sprintf("Producto '%s' actualizado, stock %d → %d", next.Nombre, current.Stock, next.Stock)
		}
		if err := r.logChange(ctx, tx, core.AccionActualizar, core.RecursoProducto, id, usuario, desc); err != nil {
			return err
		}
		out, err = r.getProducto(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *SQLiteRepository) DeleteProducto(ctx context.Context, id int64, usuario string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getProducto(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM productos WHERE id = ?`, id); err != nil {
			if isForeignKeyViolation(err) {
				return apperr.Conflict("El producto '%s' tiene compras registradas y no puede eliminarse", current.Nombre)
			}
			return fmt.Errorf("delete producto: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionEliminar, core.RecursoProducto, id, usuario,
			fmt.Sprintf("Producto '%s' eliminado", current.Nombre))
	})
}
