package core

import (
	"time"

	"gestion/internal/apperr"
)

// Request payloads whose dates arrive as separate day and time fields.
type (
	GastoInput struct {
		Descripcion string `json:"descripcion"`
		Categoria   string `json:"categoria"`
		Monto       Money  `json:"monto"`
		Fecha       string `json:"fecha"`
		Hora        string `json:"hora"`
		MetodoPago  string `json:"metodo_pago"`
	}

	CompraInput struct {
		ProductoID    int64  `json:"producto_id"`
		Proveedor     string `json:"proveedor"`
		Cantidad      int64  `json:"cantidad"`
		CostoUnitario Money  `json:"costo_unitario"`
		Fecha         string `json:"fecha"`
		Hora          string `json:"hora"`
		Nota          string `json:"nota"`
	}

	VentaInput struct {
		Fecha      string      `json:"fecha"`
		Hora       string      `json:"hora"`
		Cliente    string      `json:"cliente"`
		MetodoPago string      `json:"metodo_pago"`
		Items      []VentaItem `json:"items"`
		Nota       string      `json:"nota"`
	}
)

func composeField(fecha, hora string, loc *time.Location, now time.Time) (time.Time, error) {
	t, err := ComposeOrNow(fecha, hora, loc, now)
	switch err {
	case nil:
		return t, nil
	case ErrInvalidTime:
		return time.Time{}, apperr.Validation("hora", "use el formato HH:MM")
	default:
		return time.Time{}, apperr.Validation("fecha", "use el formato AAAA-MM-DD")
	}
}

// ToGasto composes the expense timestamp and validates the result.
func (in GastoInput) ToGasto(loc *time.Location, now time.Time) (Gasto, error) {
	fecha, err := composeField(in.Fecha, in.Hora, loc, now)
	if err != nil {
		return Gasto{}, err
	}
	g := Gasto{
		Descripcion: in.Descripcion,
		Categoria:   in.Categoria,
		Monto:       in.Monto,
		Fecha:       fecha,
		MetodoPago:  in.MetodoPago,
	}
	return g, g.Validate()
}

// ToCompra composes the purchase timestamp, computes the total and validates.
func (in CompraInput) ToCompra(loc *time.Location, now time.Time) (Compra, error) {
	fecha, err := composeField(in.Fecha, in.Hora, loc, now)
	if err != nil {
		return Compra{}, err
	}
	c := Compra{
		ProductoID:    in.ProductoID,
		Proveedor:     in.Proveedor,
		Cantidad:      in.Cantidad,
		CostoUnitario: in.CostoUnitario,
		Fecha:         fecha,
		Nota:          in.Nota,
	}
	c.Recalculate()
	return c, c.Validate()
}

// ToVenta composes the sale timestamp and validates the structure. Prices and
// totals are completed by the storage layer against the catalog.
func (in VentaInput) ToVenta(loc *time.Location, now time.Time) (Venta, error) {
	fecha, err := composeField(in.Fecha, in.Hora, loc, now)
	if err != nil {
		return Venta{}, err
	}
	v := Venta{
		Fecha:      fecha,
		Cliente:    in.Cliente,
		MetodoPago: in.MetodoPago,
		Items:      append([]VentaItem(nil), in.Items...),
		Nota:       in.Nota,
	}
	return v, v.Validate()
}
