package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "gestion.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func historialCount(t *testing.T, repo *SQLiteRepository, recurso string) int64 {
	t.Helper()
	_, total, err := repo.ListHistorial(context.Background(), core.ListFilter{
		PageRequest: core.PageRequest{Page: 1, Limit: 10}, Recurso: recurso,
	})
	require.NoError(t, err)
	return total
}

func TestServicioCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.CreateServicio(ctx, core.Servicio{Nombre: "Corte", Precio: core.Money{Cents: 1000}, Activo: true}, "ana")
	require.NoError(t, err)
	assert.NotZero(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	s, err = repo.UpdateServicio(ctx, s.ID, core.ServicioPatch{Precio: &core.Money{Cents: 1200}}, "ana")
	require.NoError(t, err)
	assert.Equal(t, "Corte", s.Nombre)
	assert.Equal(t, int64(1200), s.Precio.Cents)

	list, total, err := repo.ListServicios(ctx, core.ListFilter{PageRequest: core.PageRequest{Page: 1, Limit: 20, Query: "cor"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)

	require.NoError(t, repo.DeleteServicio(ctx, s.ID, "ana"))
	_, err = repo.GetServicio(ctx, s.ID)
	assert.True(t, apperr.IsNotFound(err))

	err = repo.DeleteServicio(ctx, s.ID, "ana")
	assert.True(t, apperr.IsNotFound(err))

	assert.EqualValues(t, 3, historialCount(t, repo, core.RecursoServicio))
}

func TestProductoCodigoUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.CreateProducto(ctx, core.Producto{Codigo: "SH-01", Nombre: "Champú", Precio: core.Money{Cents: 800}}, "")
	require.NoError(t, err)
	_, err = repo.CreateProducto(ctx, core.Producto{Codigo: "SH-01", Nombre: "Otro", Precio: core.Money{Cents: 800}}, "")
	assert.True(t, apperr.IsConflict(err))

	// empty codes are stored as NULL and never collide
	_, err = repo.CreateProducto(ctx, core.Producto{Nombre: "A", Precio: core.Money{Cents: 100}}, "")
	require.NoError(t, err)
	_, err = repo.CreateProducto(ctx, core.Producto{Nombre: "B", Precio: core.Money{Cents: 100}}, "")
	require.NoError(t, err)
}

func TestCompraAdjustsStockAndCost(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreateProducto(ctx, core.Producto{Nombre: "Tinte", Precio: core.Money{Cents: 1500}, Stock: 2}, "")
	require.NoError(t, err)

	c, err := repo.CreateCompra(ctx, core.Compra{ProductoID: p.ID, Cantidad: 5, CostoUnitario: core.Money{Cents: 700}, Fecha: day(2024, 3, 1, 9)}, "ana")
	require.NoError(t, err)
	assert.Equal(t, int64(3500), c.Total.Cents)
	assert.Equal(t, "Tinte", c.ProductoNombre)

	p, err = repo.GetProducto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Stock)
	assert.Equal(t, int64(700), p.Costo.Cents)

	// product with purchases cannot be removed
	assert.True(t, apperr.IsConflict(repo.DeleteProducto(ctx, p.ID, "")))

	// selling past the purchased quantity blocks reverting the purchase
	_, err = repo.CreateVenta(ctx, core.Venta{
		Fecha: day(2024, 3, 2, 10), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ProductoID: &p.ID, Cantidad: 6}},
	}, "")
	require.NoError(t, err)
	assert.True(t, apperr.IsConflict(repo.DeleteCompra(ctx, c.ID, "")))

	// unknown product is reported like an unknown venta item
	_, err = repo.CreateCompra(ctx, core.Compra{ProductoID: 999, Cantidad: 1, CostoUnitario: core.Money{Cents: 1}, Fecha: day(2024, 3, 1, 9)}, "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "producto_id")
}

func TestDeleteCompraRevertsStock(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreateProducto(ctx, core.Producto{Nombre: "Cera", Precio: core.Money{Cents: 500}}, "")
	require.NoError(t, err)
	c, err := repo.CreateCompra(ctx, core.Compra{ProductoID: p.ID, Cantidad: 4, CostoUnitario: core.Money{Cents: 200}, Fecha: day(2024, 1, 5, 8)}, "")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteCompra(ctx, c.ID, ""))
	p, err = repo.GetProducto(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, p.Stock)
}

func TestVentaStockAndRateSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreateProducto(ctx, core.Producto{Nombre: "Gel", Precio: core.Money{Cents: 450}, Stock: 3}, "")
	require.NoError(t, err)
	s, err := repo.CreateServicio(ctx, core.Servicio{Nombre: "Manicure", Precio: core.Money{Cents: 1000}, Activo: true}, "")
	require.NoError(t, err)
	rate, err := core.ParseRate("40")
	require.NoError(t, err)

	v, err := repo.CreateVenta(ctx, core.Venta{
		Fecha: day(2024, 4, 10, 11), MetodoPago: core.PagoMovil, Cliente: "Luisa", Tasa: rate,
		Items: []core.VentaItem{
			{ProductoID: &p.ID, Cantidad: 2},
			{ServicioID: &s.ID, Cantidad: 1, PrecioUnitario: core.Money{Cents: 900}},
		},
	}, "ana")
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "Gel", v.Items[0].Descripcion)
	assert.Equal(t, int64(450), v.Items[0].PrecioUnitario.Cents)
	assert.Equal(t, int64(1800), v.Total.Cents)
	assert.Equal(t, int64(72000), v.TotalBs.Cents)
	assert.Equal(t, "40.0000", v.Tasa.String())

	p, _ = repo.GetProducto(ctx, p.ID)
	assert.Equal(t, int64(1), p.Stock)

	// two lines of the same product are checked together
	_, err = repo.CreateVenta(ctx, core.Venta{
		Fecha: day(2024, 4, 10, 12), MetodoPago: core.PagoMovil,
		Items: []core.VentaItem{{ProductoID: &p.ID, Cantidad: 1}, {ProductoID: &p.ID, Cantidad: 1}},
	}, "")
	assert.True(t, apperr.IsConflict(err))
	p, _ = repo.GetProducto(ctx, p.ID)
	assert.Equal(t, int64(1), p.Stock, "failed venta must not touch stock")

	require.NoError(t, repo.DeleteVenta(ctx, v.ID, "ana"))
	p, _ = repo.GetProducto(ctx, p.ID)
	assert.Equal(t, int64(3), p.Stock)
}

func TestVentaRejectsInactiveOrMissingItems(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.CreateServicio(ctx, core.Servicio{Nombre: "Pedicure", Precio: core.Money{Cents: 1000}}, "")
	require.NoError(t, err)

	_, err = repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 4, 1, 9), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ServicioID: &s.ID, Cantidad: 1}}}, "")
	assert.True(t, apperr.IsValidation(err))

	_, err = repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 4, 1, 9), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ProductoID: ptr(int64(404)), Cantidad: 1}}}, "")
	assert.True(t, apperr.IsValidation(err))
}

func TestVentaRejectsOverflowingSubtotal(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.CreateServicio(ctx, core.Servicio{Nombre: "Corte", Precio: core.Money{Cents: core.MaxCents}, Activo: true}, "")
	require.NoError(t, err)

	// explicit price far beyond the limit
	_, err = repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 4, 1, 9), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ServicioID: &s.ID, Cantidad: 2, PrecioUnitario: core.Money{Cents: 90_000_000_000_000_000}}}}, "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	// catalog price filled in, then multiplied past the limit
	_, err = repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 4, 1, 9), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ServicioID: &s.ID, Cantidad: 2}}}, "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, total, err := repo.ListVentas(ctx, core.ListFilter{PageRequest: core.PageRequest{Page: 1, Limit: 10}})
	require.NoError(t, err)
	assert.Zero(t, total)

	v, err := repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 4, 1, 9), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ServicioID: &s.ID, Cantidad: 1}}}, "")
	require.NoError(t, err)
	assert.Equal(t, core.MaxCents, v.Total.Cents)
}

func TestGastoUpdateRejectsEmptyFecha(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.CreateGasto(ctx, core.Gasto{Descripcion: "Luz", Categoria: "servicios", Monto: core.Money{Cents: 2500}, Fecha: day(2024, 3, 5, 10)}, "")
	require.NoError(t, err)

	_, err = repo.UpdateGasto(ctx, g.ID, core.GastoPatch{Fecha: ptr("")}, "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	got, err := repo.GetGasto(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 3, 5, 10), got.Fecha)
}

func TestListVentasByRangeAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s, err := repo.CreateServicio(ctx, core.Servicio{Nombre: "Corte", Precio: core.Money{Cents: 1000}, Activo: true}, "")
	require.NoError(t, err)
	for i, cliente := range []string{"Marta", "Pedro", "Marta"} {
		_, err := repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 5, 1+i, 10), Cliente: cliente, MetodoPago: core.PagoEfectivoUSD,
			Items: []core.VentaItem{{ServicioID: &s.ID, Cantidad: 1}}}, "")
		require.NoError(t, err)
	}

	rg, err := core.ParseDateRange("2024-05-02", "2024-05-03", time.UTC)
	require.NoError(t, err)
	list, total, err := repo.ListVentas(ctx, core.ListFilter{PageRequest: core.PageRequest{Page: 1, Limit: 10}, Rango: rg})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, 3, list[0].Fecha.Day(), "newest first")
	assert.Len(t, list[0].Items, 1)

	_, total, err = repo.ListVentas(ctx, core.ListFilter{PageRequest: core.PageRequest{Page: 1, Limit: 10, Query: "mart"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = repo.ListVentas(ctx, core.ListFilter{PageRequest: core.PageRequest{Page: 1, Limit: 10, Query: "corte"}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestGastoUpdateBumpsSyncVersion(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	g, err := repo.CreateGasto(ctx, core.Gasto{Descripcion: "Alquiler", Categoria: "local", Monto: core.Money{Cents: 30000}, Fecha: day(2024, 6, 1, 0)}, "")
	require.NoError(t, err)

	pending, err := repo.GetPendingSync(ctx, core.RecursoGasto, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.EqualValues(t, 1, pending[0].Version)

	_, err = repo.UpdateGasto(ctx, g.ID, core.GastoPatch{Hora: ptr("14:30")}, "")
	require.NoError(t, err)

	// stale version leaves the row pending
	require.NoError(t, repo.MarkSynced(ctx, core.RecursoGasto, g.ID, 1))
	pending, err = repo.GetPendingSync(ctx, core.RecursoGasto, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.EqualValues(t, 2, pending[0].Version)

	require.NoError(t, repo.MarkSynced(ctx, core.RecursoGasto, g.ID, 2))
	counts, err := repo.SyncCounts(ctx, core.RecursoGasto)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[SyncSynced])

	got, err := repo.GetGasto(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 6, 1, 14).Add(30*time.Minute), got.Fecha)

	_, err = repo.GetPendingSync(ctx, core.RecursoProducto, 10)
	assert.ErrorIs(t, err, ErrNotSyncable)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.CreateProducto(ctx, core.Producto{Nombre: "Laca", Precio: core.Money{Cents: 300}, Stock: 10}, "")
	require.NoError(t, err)
	_, err = repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 7, 1, 10), MetodoPago: core.PagoZelle,
		Items: []core.VentaItem{{ProductoID: &p.ID, Cantidad: 3}}}, "")
	require.NoError(t, err)
	_, err = repo.CreateVenta(ctx, core.Venta{Fecha: day(2024, 7, 1, 16), MetodoPago: core.PagoPuntoVenta,
		Items: []core.VentaItem{{ProductoID: &p.ID, Cantidad: 1}}}, "")
	require.NoError(t, err)
	_, err = repo.CreateGasto(ctx, core.Gasto{Descripcion: "Agua", Categoria: "servicios", Monto: core.Money{Cents: 200}, Fecha: day(2024, 7, 1, 8)}, "")
	require.NoError(t, err)
	_, err = repo.CreateGasto(ctx, core.Gasto{Descripcion: "Luz", Categoria: "servicios", Monto: core.Money{Cents: 500}, Fecha: day(2024, 7, 2, 8)}, "")
	require.NoError(t, err)

	rg := core.DayRange(day(2024, 7, 1, 0))
	v, err := repo.VentasTotals(ctx, rg)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v.Count)
	assert.EqualValues(t, 1200, v.Total.Cents)

	g, err := repo.GastosTotals(ctx, rg)
	require.NoError(t, err)
	assert.EqualValues(t, 200, g.Total.Cents)

	metodos, err := repo.VentasPorMetodo(ctx, rg)
	require.NoError(t, err)
	require.Len(t, metodos, 2)
	assert.Equal(t, core.PagoZelle, metodos[0].MetodoPago)

	top, err := repo.TopItems(ctx, rg, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.EqualValues(t, 4, top[0].Cantidad)

	series, err := repo.DailySeries(ctx, core.MonthRange(2024, 7, time.UTC))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2024-07-01", series[0].Fecha)
	assert.EqualValues(t, 1200, series[0].Ventas.Cents)
	assert.EqualValues(t, 500, series[1].Gastos.Cents)

	cats, err := repo.GastosPorCategoria(ctx, core.MonthRange(2024, 7, time.UTC))
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.EqualValues(t, 700, cats[0].Amount.Cents)
}

func TestTasas(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.LatestTasa(ctx)
	assert.ErrorIs(t, err, ErrNoRate)

	r1, _ := core.ParseRate("36.5")
	r2, _ := core.ParseRate("37.1234")
	_, err = repo.SaveTasa(ctx, r1, "", "admin")
	require.NoError(t, err)
	_, err = repo.SaveTasa(ctx, r2, "bcv", "admin")
	require.NoError(t, err)

	latest, err := repo.LatestTasa(ctx)
	require.NoError(t, err)
	assert.Equal(t, "37.1234", latest.Tasa.String())
	assert.Equal(t, "bcv", latest.Fuente)

	all, err := repo.ListTasas(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "manual", all[1].Fuente)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := core.User{Username: "admin", Nombre: "Admin", Rol: core.RolAdmin, PasswordHash: "x", Activo: true}
	_, err := repo.CreateUser(ctx, u, "")
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, u, "")
	assert.True(t, apperr.IsConflict(err))

	got, err := repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "x", got.PasswordHash)
	assert.True(t, got.Activo)

	_, err = repo.GetUserByUsername(ctx, "nadie")
	assert.True(t, apperr.IsNotFound(err))

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEmpleadoCedulaUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e := core.Empleado{Nombre: "Rosa", Cedula: "V-1", Cargo: "Estilista", Activo: true}
	e, err := repo.CreateEmpleado(ctx, e, "")
	require.NoError(t, err)
	_, err = repo.CreateEmpleado(ctx, core.Empleado{Nombre: "Otra", Cedula: "V-1", Cargo: "Caja"}, "")
	assert.True(t, apperr.IsConflict(err))

	updated, err := repo.UpdateEmpleado(ctx, e.ID, core.EmpleadoPatch{Activo: ptr(false)}, "")
	require.NoError(t, err)
	assert.False(t, updated.Activo)

	list, total, err := repo.ListEmpleados(ctx, core.ListFilter{PageRequest: core.PageRequest{Page: 1, Limit: 10}, Activo: ptr(true)})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\%%`, likePattern("50%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
}
