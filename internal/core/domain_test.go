package core

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestVentaValidate(t *testing.T) {
	base := func() Venta {
		return Venta{
			Fecha:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			MetodoPago: PagoEfectivoUSD,
			Items:      []VentaItem{{ProductoID: ptr(int64(1)), Cantidad: 2, PrecioUnitario: Money{Cents: 500}}},
		}
	}

	require.NoError(t, base().Validate())

	v := base()
	v.Items = nil
	assert.True(t, apperr.IsValidation(v.Validate()))

	v = base()
	v.Items[0].ServicioID = ptr(int64(3))
	assert.True(t, apperr.IsValidation(v.Validate()), "item with producto and servicio")

	v = base()
	v.Items[0].ProductoID = nil
	assert.True(t, apperr.IsValidation(v.Validate()), "item with neither")

	v = base()
	v.MetodoPago = "cheque"
	assert.True(t, apperr.IsValidation(v.Validate()))

	v = base()
	v.Items[0].Cantidad = 0
	assert.True(t, apperr.IsValidation(v.Validate()))
}

func TestVentaRecalculate(t *testing.T) {
	rate, err := ParseRate("36.5")
	require.NoError(t, err)
	v := Venta{
		Tasa: rate,
		Items: []VentaItem{
			{Cantidad: 2, PrecioUnitario: Money{Cents: 1050}},
			{Cantidad: 1, PrecioUnitario: Money{Cents: 399}},
		},
	}
	v.Recalculate()
	assert.Equal(t, int64(2100), v.Items[0].Subtotal.Cents)
	assert.Equal(t, int64(2499), v.Total.Cents)
	assert.Equal(t, int64(91214), v.TotalBs.Cents) // 24.99 * 36.5 = 912.135
}

func TestVentaRecalculateUsesStoredRatePrecision(t *testing.T) {
	v := Venta{
		Tasa:  Rate{Decimal: decimal.RequireFromString("36.123456")},
		Items: []VentaItem{{Cantidad: 1, PrecioUnitario: Money{Cents: 100000}}},
	}
	v.Recalculate()
	assert.Equal(t, "36.1235", v.Tasa.String())
	// 1000.00 * 36.1235, not 36.123456
	assert.Equal(t, int64(3612350), v.TotalBs.Cents)
}

func TestLineTotalsStayWithinMaxCents(t *testing.T) {
	servicio := int64(1)
	it := VentaItem{ServicioID: &servicio, Cantidad: 2, PrecioUnitario: Money{Cents: MaxCents}}
	err := it.Validate()
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "precio_unitario")

	it.Cantidad = 1
	assert.NoError(t, it.Validate())

	c := Compra{ProductoID: 1, Cantidad: 1_000_000, CostoUnitario: Money{Cents: MaxCents / 1000}, Fecha: time.Now()}
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costo_unitario")
}

func TestProductoValidateAndBajoStock(t *testing.T) {
	p := Producto{Nombre: "Champú", Precio: Money{Cents: 800}, Stock: 3, StockMinimo: 5}
	require.NoError(t, p.Validate())
	assert.True(t, p.BajoStock())

	p.Stock = 6
	assert.False(t, p.BajoStock())

	p.Precio = Money{}
	assert.True(t, apperr.IsValidation(p.Validate()))

	p.Precio = Money{Cents: 100}
	p.Stock = -1
	assert.True(t, apperr.IsValidation(p.Validate()))
}

func TestEmpleadoValidate(t *testing.T) {
	e := Empleado{Nombre: "Ana", Cedula: "V-123", Cargo: "Estilista", FechaIngreso: "2023-01-15"}
	require.NoError(t, e.Validate())

	e.Email = "ana.example.com"
	assert.True(t, apperr.IsValidation(e.Validate()))

	e.Email = ""
	e.FechaIngreso = "15/01/2023"
	assert.True(t, apperr.IsValidation(e.Validate()))
}

func TestUserValidate(t *testing.T) {
	u := User{Username: "maria.p", Nombre: "María", Rol: RolEmpleado}
	require.NoError(t, u.Validate())

	u.Username = "Ma"
	assert.True(t, apperr.IsValidation(u.Validate()))

	u.Username = "maria"
	u.Rol = "root"
	assert.True(t, apperr.IsValidation(u.Validate()))

	assert.Error(t, ValidatePassword("corta"))
	assert.NoError(t, ValidatePassword("suficiente"))
}

func TestGastoInputToGasto(t *testing.T) {
	loc := time.FixedZone("VET", -4*3600)
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

	g, err := GastoInput{Descripcion: "Luz", Categoria: "servicios", Monto: Money{Cents: 2500}, Fecha: "2024-05-09", Hora: "08:15"}.ToGasto(loc, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 9, 8, 15, 0, 0, loc), g.Fecha)

	g, err = GastoInput{Descripcion: "Luz", Categoria: "servicios", Monto: Money{Cents: 2500}, Fecha: "2024-05-09"}.ToGasto(loc, now)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Fecha.Hour())

	g, err = GastoInput{Descripcion: "Luz", Categoria: "servicios", Monto: Money{Cents: 2500}}.ToGasto(loc, now)
	require.NoError(t, err)
	assert.True(t, g.Fecha.Equal(now))

	_, err = GastoInput{Descripcion: "Luz", Categoria: "servicios", Monto: Money{Cents: 2500}, Fecha: "2024-05-09", Hora: "25:00"}.ToGasto(loc, now)
	require.Error(t, err)
	var ae apperr.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code())

	_, err = GastoInput{Descripcion: "Luz", Categoria: "servicios", Fecha: "2024-05-09"}.ToGasto(loc, now)
	assert.True(t, apperr.IsValidation(err), "missing monto")
}

func TestCompraInputComputesTotal(t *testing.T) {
	c, err := CompraInput{ProductoID: 4, Cantidad: 3, CostoUnitario: Money{Cents: 250}, Fecha: "2024-01-02"}.ToCompra(time.UTC, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(750), c.Total.Cents)
}

func TestGastoPatchKeepsOtherHalfOfTimestamp(t *testing.T) {
	loc := time.UTC
	g := Gasto{Descripcion: "Agua", Categoria: "servicios", Monto: Money{Cents: 100}, Fecha: time.Date(2024, 2, 3, 14, 45, 0, 0, loc)}

	out, err := GastoPatch{Hora: ptr("09:00")}.Apply(g, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 3, 9, 0, 0, 0, loc), out.Fecha)

	out, err = GastoPatch{Fecha: ptr("2024-02-10")}.Apply(g, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 10, 14, 45, 0, 0, loc), out.Fecha)

	out, err = GastoPatch{Monto: &Money{Cents: 999}}.Apply(g, loc)
	require.NoError(t, err)
	assert.Equal(t, int64(999), out.Monto.Cents)
	assert.Equal(t, g.Fecha, out.Fecha)

	_, err = GastoPatch{Descripcion: ptr("  ")}.Apply(g, loc)
	assert.True(t, apperr.IsValidation(err))
}

func TestGastoPatchRejectsEmptyFecha(t *testing.T) {
	loc := time.UTC
	g := Gasto{Descripcion: "Agua", Categoria: "servicios", Monto: Money{Cents: 100}, Fecha: time.Date(2024, 3, 5, 10, 0, 0, 0, loc)}

	for _, fecha := range []string{"", "   "} {
		out, err := GastoPatch{Fecha: ptr(fecha)}.Apply(g, loc)
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Contains(t, err.Error(), "fecha")
		assert.Equal(t, g.Fecha, out.Fecha)
	}
}

func TestProductoPatchApply(t *testing.T) {
	p := Producto{ID: 1, Nombre: "Tinte", Precio: Money{Cents: 1200}, Stock: 4}
	out, err := ProductoPatch{Precio: &Money{Cents: 1500}, StockMinimo: ptr(int64(2))}.Apply(p)
	require.NoError(t, err)
	assert.Equal(t, "Tinte", out.Nombre)
	assert.Equal(t, int64(1500), out.Precio.Cents)
	assert.Equal(t, int64(2), out.StockMinimo)
	assert.Equal(t, int64(4), out.Stock)
}

func TestPageRequestFromQuery(t *testing.T) {
	p := PageRequestFromQuery(url.Values{"page": {"0"}, "limit": {"500"}, "q": {"  tinte "}})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageLimit, p.Limit)
	assert.Equal(t, "tinte", p.Query)

	p = PageRequestFromQuery(url.Values{"page": {"3"}, "limit": {"abc"}})
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, DefaultPageLimit, p.Limit)
	assert.Equal(t, 40, p.Offset())

	page := NewPage[Gasto](nil, 0, p)
	assert.NotNil(t, page.Data)
}

func TestDailyStatsBalance(t *testing.T) {
	rate, _ := ParseRate("40")
	d := DailyStats{VentasTotal: Money{Cents: 10000}, GastosTotal: Money{Cents: 2500}, ComprasTotal: Money{Cents: 1500}, Tasa: rate}
	d.ComputeBalance()
	assert.Equal(t, int64(6000), d.Balance.Cents)
	assert.Equal(t, int64(240000), d.BalanceBs.Cents)
}
