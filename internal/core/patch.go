package core

import (
	"strings"
	"time"

	"gestion/internal/apperr"
)

// Partial updates. Nil fields keep the stored value.
type (
	ServicioPatch struct {
		Nombre      *string `json:"nombre"`
		Descripcion *string `json:"descripcion"`
		Precio      *Money  `json:"precio"`
		Activo      *bool   `json:"activo"`
	}

	ProductoPatch struct {
		Codigo      *string `json:"codigo"`
		Nombre      *string `json:"nombre"`
		Descripcion *string `json:"descripcion"`
		Categoria   *string `json:"categoria"`
		Precio      *Money  `json:"precio"`
		Costo       *Money  `json:"costo"`
		Stock       *int64  `json:"stock"`
		StockMinimo *int64  `json:"stock_minimo"`
	}

	GastoPatch struct {
		Descripcion *string `json:"descripcion"`
		Categoria   *string `json:"categoria"`
		Monto       *Money  `json:"monto"`
		Fecha       *string `json:"fecha"`
		Hora        *string `json:"hora"`
		MetodoPago  *string `json:"metodo_pago"`
	}

	EmpleadoPatch struct {
		Nombre       *string `json:"nombre"`
		Cedula       *string `json:"cedula"`
		Cargo        *string `json:"cargo"`
		Telefono     *string `json:"telefono"`
		Email        *string `json:"email"`
		Salario      *Money  `json:"salario"`
		FechaIngreso *string `json:"fecha_ingreso"`
		Activo       *bool   `json:"activo"`
	}
)

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (p ServicioPatch) Apply(s Servicio) (Servicio, error) {
	setString(&s.Nombre, p.Nombre)
	setString(&s.Descripcion, p.Descripcion)
	if p.Precio != nil {
		s.Precio = *p.Precio
	}
	if p.Activo != nil {
		s.Activo = *p.Activo
	}
	return s, s.Validate()
}

func (p ProductoPatch) Apply(pr Producto) (Producto, error) {
	setString(&pr.Codigo, p.Codigo)
	setString(&pr.Nombre, p.Nombre)
	setString(&pr.Descripcion, p.Descripcion)
	setString(&pr.Categoria, p.Categoria)
	if p.Precio != nil {
		pr.Precio = *p.Precio
	}
	if p.Costo != nil {
		pr.Costo = *p.Costo
	}
	if p.Stock != nil {
		pr.Stock = *p.Stock
	}
	if p.StockMinimo != nil {
		pr.StockMinimo = *p.StockMinimo
	}
	return pr, pr.Validate()
}

// Apply merges the patch. When only one of fecha/hora changes, the other half
// is taken from the stored timestamp. An explicit empty fecha is rejected.
func (p GastoPatch) Apply(g Gasto, loc *time.Location) (Gasto, error) {
	setString(&g.Descripcion, p.Descripcion)
	setString(&g.Categoria, p.Categoria)
	setString(&g.MetodoPago, p.MetodoPago)
	if p.Monto != nil {
		g.Monto = *p.Monto
	}
	if p.Fecha != nil && strings.TrimSpace(*p.Fecha) == "" {
		return g, apperr.Validation("fecha", "es obligatoria")
	}
	if p.Fecha != nil || p.Hora != nil {
		local := g.Fecha.In(loc)
		fecha := local.Format(DateLayout)
		hora := local.Format("15:04:05")
		setString(&fecha, p.Fecha)
		setString(&hora, p.Hora)
		t, err := composeField(fecha, hora, loc, time.Now())
		if err != nil {
			return g, err
		}
		g.Fecha = t
	}
	return g, g.Validate()
}

func (p EmpleadoPatch) Apply(e Empleado) (Empleado, error) {
	setString(&e.Nombre, p.Nombre)
	setString(&e.Cedula, p.Cedula)
	setString(&e.Cargo, p.Cargo)
	setString(&e.Telefono, p.Telefono)
	setString(&e.Email, p.Email)
	setString(&e.FechaIngreso, p.FechaIngreso)
	if p.Salario != nil {
		e.Salario = *p.Salario
	}
	if p.Activo != nil {
		e.Activo = *p.Activo
	}
	return e, e.Validate()
}
