package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gestion/internal/core"
)

const servicioColumns = `id, nombre, descripcion, precio_cents, activo, created_at, updated_at`

func (r *SQLiteRepository) scanServicio(row interface{ Scan(...any) error }) (core.Servicio, error) {
	var (
		s                core.Servicio
		activo           int
		created, updated string
	)
	if err := row.Scan(&s.ID, &s.Nombre, &s.Descripcion, &s.Precio.Cents, &activo, &created, &updated); err != nil {
		return s, err
	}
	s.Activo = activo == 1
	s.CreatedAt = r.parseStamp(created)
	s.UpdatedAt = r.parseStamp(updated)
	return s, nil
}

func (r *SQLiteRepository) ListServicios(ctx context.Context, f core.ListFilter) ([]core.Servicio, int64, error) {
	w := &where{}
	w.search(f.Query, "nombre", "descripcion")
	if f.Activo != nil {
		w.add("activo = ?", boolToInt(*f.Activo))
	}
	total, err := r.count(ctx, r.db, "servicios", w)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+servicioColumns+" FROM servicios"+w.String()+" ORDER BY nombre COLLATE NOCASE, id LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list servicios: %w", err)
	}
	defer rows.Close()

	var out []core.Servicio
	for rows.Next() {
		s, err := r.scanServicio(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan servicio: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *SQLiteRepository) getServicio(ctx context.Context, q querier, id int64) (core.Servicio, error) {
	s, err := r.scanServicio(q.QueryRowContext(ctx, "SELECT "+servicioColumns+" FROM servicios WHERE id = ?", id))
	if err != nil {
		return s, notFoundOr(err, "Servicio", id)
	}
	return s, nil
}

func (r *SQLiteRepository) GetServicio(ctx context.Context, id int64) (core.Servicio, error) {
	return r.getServicio(ctx, r.db, id)
}

func (r *SQLiteRepository) CreateServicio(ctx context.Context, s core.Servicio, usuario string) (core.Servicio, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.nowStamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO servicios (nombre, descripcion, precio_cents, activo, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			s.Nombre, s.Descripcion, s.Precio.Cents, boolToInt(s.Activo), now, now)
		if err != nil {
			return fmt.Errorf("insert servicio: %w", err)
		}
		if s.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("servicio id: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionCrear, core.RecursoServicio, s.ID, usuario,
			fmt.Sprintf("Servicio '%s' creado", s.Nombre)); err != nil {
			return err
		}
		s, err = r.getServicio(ctx, tx, s.ID)
		return err
	})
	return s, err
}

func (r *SQLiteRepository) UpdateServicio(ctx context.Context, id int64, patch core.ServicioPatch, usuario string) (core.Servicio, error) {
	var out core.Servicio
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getServicio(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := patch.Apply(current)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE servicios SET nombre = ?, descripcion = ?, precio_cents = ?, activo = ?, updated_at = ? WHERE id = ?`,
			next.Nombre, next.Descripcion, next.Precio.Cents, boolToInt(next.Activo), r.nowStamp(), id)
		if err != nil {
			return fmt.Errorf("update servicio: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionActualizar, core.RecursoServicio, id, usuario,
			fmt.Sprintf("Servicio '%s' actualizado", next.Nombre)); err != nil {
			return err
		}
		out, err = r.getServicio(ctx, tx, id)
		return err
	})
	return out, err
}

func (r *SQLiteRepository) DeleteServicio(ctx context.Context, id int64, usuario string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getServicio(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM servicios WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete servicio: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionEliminar, core.RecursoServicio, id, usuario,
			fmt.Sprintf("Servicio '%s' eliminado", current.Nombre))
	})
}
