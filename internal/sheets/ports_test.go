package sheets

import (
	"testing"
	"time"

	"gestion/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVentaRowFollowsHeaders(t *testing.T) {
	rate, err := core.ParseRate("36,5")
	require.NoError(t, err)
	v := core.Venta{
		ID:         12,
		Fecha:      time.Date(2026, 10, 3, 14, 5, 0, 0, time.UTC),
		Cliente:    "Ana",
		MetodoPago: "pago_movil",
		Items: []core.VentaItem{
			{Descripcion: "Corte", Cantidad: 1},
			{Descripcion: "Champú", Cantidad: 2},
		},
		Total:   core.Money{Cents: 1250},
		Tasa:    rate,
		TotalBs: core.Money{Cents: 45625},
	}

	row := VentaRow(v)
	require.Len(t, row, len(Headers[core.RecursoVenta]))
	assert.Equal(t, int64(12), row[0])
	assert.Equal(t, "2026-10-03 14:05", row[1])
	assert.Equal(t, "1 x Corte; 2 x Champú", row[4])
	assert.Equal(t, "12.50", row[5])
	assert.Equal(t, "36.5000", row[6])
	assert.Equal(t, "456.25", row[7])
}

func TestGastoRowFollowsHeaders(t *testing.T) {
	row := GastoRow(core.Gasto{ID: 3, Descripcion: "Luz", Categoria: "servicios", Monto: core.Money{Cents: 900}, MetodoPago: "efectivo"})
	require.Len(t, row, len(Headers[core.RecursoGasto]))
	assert.Equal(t, "3", RowID(row))
	assert.Equal(t, "9.00", row[5])
}

func TestMirrored(t *testing.T) {
	assert.True(t, Mirrored(core.RecursoVenta))
	assert.True(t, Mirrored(core.RecursoGasto))
	assert.False(t, Mirrored(core.RecursoCompra))
	assert.Equal(t, "", RowID(nil))
}
