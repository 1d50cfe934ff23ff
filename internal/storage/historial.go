package storage

import (
	"context"
	"fmt"

	"gestion/internal/core"
)

// ListHistorial returns audit entries, newest first.
func (r *SQLiteRepository) ListHistorial(ctx context.Context, f core.ListFilter) ([]core.Historial, int64, error) {
	w := &where{}
	if f.Recurso != "" {
		w.add("recurso = ?", f.Recurso)
	}
	w.search(f.Query, "descripcion", "usuario")
	w.between(r, "fecha", f.Rango)

	total, err := r.count(ctx, r.db, "historial", w)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, fecha, accion, recurso, recurso_id, descripcion, usuario FROM historial"+w.String()+
			" ORDER BY id DESC LIMIT ? OFFSET ?",
		pageArgs(w, f.PageRequest)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list historial: %w", err)
	}
	defer rows.Close()

	var out []core.Historial
	for rows.Next() {
		var (
			h     core.Historial
			fecha string
		)
		if err := rows.Scan(&h.ID, &fecha, &h.Accion, &h.Recurso, &h.RecursoID, &h.Descripcion, &h.Usuario); err != nil {
			return nil, 0, fmt.Errorf("scan historial: %w", err)
		}
		h.Fecha = r.parseStamp(fecha)
		out = append(out, h)
	}
	return out, total, rows.Err()
}
