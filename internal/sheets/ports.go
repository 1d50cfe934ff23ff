// Package sheets mirrors ventas and gastos into a spreadsheet so the owner
// can keep working with the tabs they already know.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"gestion/internal/core"
)

// Row is one mirrored record. The first value is always the record id.
type Row []any

// Mirror is the outbound port implemented by the spreadsheet adapters.
type Mirror interface {
	// AppendRow writes row to the tab of recurso, replacing the existing
	// row with the same id so redelivered events stay idempotent.
	AppendRow(ctx context.Context, recurso string, row Row) error
	// DeleteRow removes the row with id. A missing row is not an error.
	DeleteRow(ctx context.Context, recurso string, id int64) error
}

// Headers are the column titles written to each mirrored tab.
var Headers = map[string][]string{
	core.RecursoVenta: {"ID", "Fecha", "Cliente", "Método de pago", "Ítems", "Total USD", "Tasa", "Total Bs", "Nota"},
	core.RecursoGasto: {"ID", "Fecha", "Descripción", "Categoría", "Método de pago", "Monto USD"},
}

// Mirrored reports whether recurso has a spreadsheet tab.
func Mirrored(recurso string) bool {
	_, ok := Headers[recurso]
	return ok
}

const rowTimeLayout = "2006-01-02 15:04"

// VentaRow renders a venta in the column order of Headers.
func VentaRow(v core.Venta) Row {
	items := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, fmt.Sprintf("%d x %s", it.Cantidad, it.Descripcion))
	}
	return Row{
		v.ID,
		v.Fecha.Format(rowTimeLayout),
		v.Cliente,
		v.MetodoPago,
		strings.Join(items, "; "),
		v.Total.Decimal(),
		v.Tasa.String(),
		v.TotalBs.Decimal(),
		v.Nota,
	}
}

// GastoRow renders a gasto in the column order of Headers.
func GastoRow(g core.Gasto) Row {
	return Row{
		g.ID,
		g.Fecha.Format(rowTimeLayout),
		g.Descripcion,
		g.Categoria,
		g.MetodoPago,
		g.Monto.Decimal(),
	}
}

// RowID extracts the id cell of a row as read back from a sheet.
func RowID(cells []any) string {
	if len(cells) == 0 {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(cells[0]))
}
