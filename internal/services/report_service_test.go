package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/reports"
)

func TestReportServiceVentas(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	p := seedProducto(t, st.repo, "Champú", 1000, 10)
	_, err := st.tasas.Set(ctx, mustRate(t, "40"), "")
	require.NoError(t, err)

	for _, f := range []string{"2025-03-01", "2025-03-15", "2025-04-01"} {
		_, err := st.ventas.Create(ctx, core.VentaInput{
			Fecha: f, MetodoPago: core.PagoEfectivoUSD,
			Items: []core.VentaItem{{ProductoID: &p.ID, Cantidad: 2}},
		})
		require.NoError(t, err)
	}

	rs := NewReportService(st.repo, st.stats, st.tasas, "Peluquería Ana", quietLogger())
	r, err := rs.Build(ctx, ReportRequest{Tipo: reports.TipoVentas, Desde: "2025-03-01", Hasta: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, "Peluquería Ana", r.Business)
	assert.Equal(t, "Del 01/03/2025 al 31/03/2025", r.Period)
	require.Len(t, r.Rows, 2)
	assert.Len(t, r.Totals, len(r.Columns))
	assert.Equal(t, "$40.00", r.Totals[5].Text)
	assert.Equal(t, "Bs 1.600,00", r.Totals[6].Text)
}

func TestReportServiceBsTotalsAtCurrentRate(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	rs := NewReportService(st.repo, st.stats, st.tasas, "Negocio", quietLogger())

	p := seedProducto(t, st.repo, "Tinte", 1000, 4)
	for _, monto := range []int64{1000, 250} {
		_, err := st.gastos.Create(ctx, core.GastoInput{
			Descripcion: "Luz", Categoria: "servicios", Monto: core.Money{Cents: monto}, Fecha: "2025-03-10",
		})
		require.NoError(t, err)
	}
	_, err := st.repo.CreateCompra(ctx, core.Compra{
		ProductoID: p.ID, Cantidad: 3, CostoUnitario: core.Money{Cents: 200},
		Fecha: time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC),
	}, "")
	require.NoError(t, err)

	// no rate yet: Bs cells are placeholders
	r, err := rs.Build(ctx, ReportRequest{Tipo: reports.TipoGastos, Desde: "2025-03-01", Hasta: "2025-03-31"})
	require.NoError(t, err)
	assert.Equal(t, "-", r.Totals[len(r.Totals)-1].Text)

	_, err = st.tasas.Set(ctx, mustRate(t, "40"), "")
	require.NoError(t, err)

	tests := []struct {
		tipo    string
		usd, bs string
		summary string
	}{
		{reports.TipoGastos, "$12.50", "Bs 500,00", "Total gastos Bs"},
		{reports.TipoCompras, "$6.00", "Bs 240,00", "Total invertido Bs"},
		// 7 units after the compra at the last cost of 2.00
		{reports.TipoInventario, "$14.00", "Bs 560,00", "Valor del inventario Bs"},
	}
	for _, tt := range tests {
		t.Run(tt.tipo, func(t *testing.T) {
			r, err := rs.Build(ctx, ReportRequest{Tipo: tt.tipo, Desde: "2025-03-01", Hasta: "2025-03-31"})
			require.NoError(t, err)
			require.Len(t, r.Totals, len(r.Columns))
			n := len(r.Totals)
			assert.Equal(t, tt.usd, r.Totals[n-2].Text)
			assert.Equal(t, tt.bs, r.Totals[n-1].Text)

			var found bool
			for _, line := range r.Summary {
				if line.Label == tt.summary {
					found = true
					assert.Equal(t, tt.bs, line.Value)
				}
			}
			assert.True(t, found, "summary misses %s", tt.summary)
		})
	}
}

func TestReportServiceGenerate(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	seedProducto(t, st.repo, "Tinte", 900, 1)
	rs := NewReportService(st.repo, st.stats, st.tasas, "Negocio", quietLogger())

	for _, tipo := range reports.Tipos {
		t.Run(tipo, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := rs.Generate(ctx, &buf, ReportRequest{Tipo: tipo, Formato: reports.FormatPDF})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}

	var buf bytes.Buffer
	_, err := rs.Generate(ctx, &buf, ReportRequest{Tipo: reports.TipoInventario, Formato: reports.FormatXLSX})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
}

func TestReportServiceInventarioFlagsLowStock(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	seedProducto(t, st.repo, "Tinte", 900, 0)
	seedProducto(t, st.repo, "Gel", 500, 50)

	rs := NewReportService(st.repo, st.stats, st.tasas, "Negocio", quietLogger())
	r, err := rs.Build(ctx, ReportRequest{Tipo: reports.TipoInventario})
	require.NoError(t, err)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, "Con stock bajo", r.Summary[1].Label)
	assert.Equal(t, "1", r.Summary[1].Value)
}

func TestReportServiceDefaultsToCurrentMonth(t *testing.T) {
	st := newTestStack(t)
	rs := NewReportService(st.repo, st.stats, st.tasas, "Negocio", quietLogger())
	rs.now = func() time.Time { return time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC) }

	r, err := rs.Build(context.Background(), ReportRequest{Tipo: reports.TipoGastos})
	require.NoError(t, err)
	assert.Equal(t, "Del 01/02/2025 al 28/02/2025", r.Period)
}

func TestReportServiceRejectsBadRequests(t *testing.T) {
	st := newTestStack(t)
	rs := NewReportService(st.repo, st.stats, st.tasas, "Negocio", quietLogger())
	ctx := context.Background()
	var buf bytes.Buffer

	_, err := rs.Generate(ctx, &buf, ReportRequest{Tipo: "nomina"})
	assert.True(t, apperr.IsValidation(err))

	_, err = rs.Generate(ctx, &buf, ReportRequest{Tipo: reports.TipoVentas, Formato: "csv"})
	assert.True(t, apperr.IsValidation(err))

	_, err = rs.Generate(ctx, &buf, ReportRequest{Tipo: reports.TipoVentas, Desde: "2025-03-10", Hasta: "2025-03-01"})
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, buf.Len())
}
