package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

const userColumns = `id, username, nombre, rol, password_hash, activo, created_at`

func (r *SQLiteRepository) scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u       core.User
		activo  int
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Nombre, &u.Rol, &u.PasswordHash, &activo, &created); err != nil {
		return u, err
	}
	u.Activo = activo == 1
	u.CreatedAt = r.parseStamp(created)
	return u, nil
}

// GetUserByUsername returns the user or a NotFound error.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM usuarios WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return u, apperr.NotFound("Usuario", username)
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM usuarios ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []core.User{}
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, r.db, "usuarios", &where{})
}

// CreateUser stores a user whose PasswordHash is already computed.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, actor string) (core.User, error) {
	u.CreatedAt = r.now().In(r.loc)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO usuarios (username, nombre, rol, password_hash, activo, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			u.Username, u.Nombre, u.Rol, u.PasswordHash, boolToInt(u.Activo), r.stamp(u.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("El usuario '%s' ya existe", u.Username)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		return r.logChange(ctx, tx, core.AccionCrear, core.RecursoUsuario, u.ID, actor,
			fmt.Sprintf("Usuario '%s' creado con rol %s", u.Username, u.Rol))
	})
	return u, err
}
