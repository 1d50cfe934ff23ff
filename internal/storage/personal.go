package storage

import (
	"context"
	"database/sql"
	"fmt"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

const empleadoColumns = `id, nombre, cedula, cargo, telefono, email, salario_cents, fecha_ingreso, activo`

func scanEmpleado(row interface{ Scan(...any) error }) (core.Empleado, error) {
	var (
		e      core.Empleado
		activo int
	)
	err := row.Scan(&e.ID, &e.Nombre, &e.Cedula, &e.Cargo, &e.Telefono, &e.Email, &e.Salario.Cents, &e.FechaIngreso, &activo)
	e.Activo = activo == 1
	return e, err
}

func (r *SQLiteRepository) ListEmpleados(ctx context.Context, f core.ListFilter) ([]core.Empleado, int64, error) {
	w := &where{}
	w.search(f.Query, "nombre", "cedula", "cargo")
	if f.Activo != nil {
		w.add("activo = ?", boolToInt(*f.Activo))
	}
	total, err := r.count(ctx, r.db, "empleados", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+empleadoColumns+" FROM empleados"+w.String()+" ORDER BY nombre COLLATE NOCASE, id LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list empleados: %w", err)
	}
	defer rows.Close()

	var out []core.Empleado
	for rows.Next() {
		e, err := scanEmpleado(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan empleado: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *SQLiteRepository) getEmpleado(ctx context.Context, q querier, id int64) (core.Empleado, error) {
	e, err := scanEmpleado(q.QueryRowContext(ctx, "SELECT "+empleadoColumns+" FROM empleados WHERE id = ?", id))
	if err != nil {
		return e, notFoundOr(err, "Empleado", id)
	}
	return e, nil
}

func (r *SQLiteRepository) GetEmpleado(ctx context.Context, id int64) (core.Empleado, error) {
	return r.getEmpleado(ctx, r.db, id)
}

func cedulaDuplicada(cedula string) error {
	return apperr.Conflict("Ya existe un empleado con la cédula '%s'", cedula)
}

func (r *SQLiteRepository) CreateEmpleado(ctx context.Context, e core.Empleado, usuario string) (core.Empleado, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.nowStamp()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO empleados (nombre, cedula, cargo, telefono, email, salario_cents, fecha_ingreso, activo, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Nombre, e.Cedula, e.Cargo, e.Telefono, e.Email, e.Salario.Cents, e.FechaIngreso, boolToInt(e.Activo), now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return cedulaDuplicada(e.Cedula)
			}
			return fmt.Errorf("insert empleado: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("empleado id: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionCrear, core.RecursoPersonal, e.ID, usuario,
			fmt.Sprintf("Empleado '%s' (%s) registrado", e.Nombre, e.Cargo))
	})
	return e, err
}

func (r *SQLiteRepository) UpdateEmpleado(ctx context.Context, id int64, patch core.EmpleadoPatch, usuario string) (core.Empleado, error) {
	var out core.Empleado
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getEmpleado(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := patch.Apply(current)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE empleados SET nombre = ?, cedula = ?, cargo = ?, telefono = ?, email = ?, salario_cents = ?,
			 fecha_ingreso = ?, activo = ?, updated_at = ? WHERE id = ?`,
			next.Nombre, next.Cedula, next.Cargo, next.Telefono, next.Email, next.Salario.Cents,
			next.FechaIngreso, boolToInt(next.Activo), r.nowStamp(), id)
		if err != nil {
			if isUniqueViolation(err) {
				return cedulaDuplicada(next.Cedula)
			}
			return fmt.Errorf("update empleado: %w", err)
		}
		if err := r.logChange(ctx, tx, core.AccionActualizar, core.RecursoPersonal, id, usuario,
			fmt.Sprintf("Empleado '%s' actualizado", next.Nombre)); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (r *SQLiteRepository) DeleteEmpleado(ctx context.Context, id int64, usuario string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := r.getEmpleado(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM empleados WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete empleado: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionEliminar, core.RecursoPersonal, id, usuario,
			fmt.Sprintf("Empleado '%s' eliminado", current.Nombre))
	})
}
