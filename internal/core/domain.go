package core

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gestion/internal/apperr"
)

// Payment methods accepted for ventas and gastos.
const (
	PagoEfectivoUSD  = "efectivo_usd"
	PagoEfectivoBs   = "efectivo_bs"
	PagoPuntoVenta   = "punto_venta"
	PagoMovil        = "pago_movil"
	PagoTransfer     = "transferencia"
	PagoZelle        = "zelle"
	maxNombre        = 120
	maxDescripcion   = 500
	maxItemsPorVenta = 100
)

// MetodosPago lists the valid payment methods in display order.
var MetodosPago = []string{PagoEfectivoUSD, PagoEfectivoBs, PagoPuntoVenta, PagoMovil, PagoTransfer, PagoZelle}

// ValidMetodoPago reports whether m is a known payment method.
func ValidMetodoPago(m string) bool {
	for _, v := range MetodosPago {
		if v == m {
			return true
		}
	}
	return false
}

type (
	Servicio struct {
		ID          int64     `json:"id"`
		Nombre      string    `json:"nombre"`
		Descripcion string    `json:"descripcion"`
		Precio      Money     `json:"precio"`
		Activo      bool      `json:"activo"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	Producto struct {
		ID          int64     `json:"id"`
		Codigo      string    `json:"codigo"`
		Nombre      string    `json:"nombre"`
		Descripcion string    `json:"descripcion"`
		Categoria   string    `json:"categoria"`
		Precio      Money     `json:"precio"`
		Costo       Money     `json:"costo"`
		Stock       int64     `json:"stock"`
		StockMinimo int64     `json:"stock_minimo"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	Compra struct {
		ID             int64     `json:"id"`
		ProductoID     int64     `json:"producto_id"`
		ProductoNombre string    `json:"producto_nombre,omitempty"`
		Proveedor      string    `json:"proveedor"`
		Cantidad       int64     `json:"cantidad"`
		CostoUnitario  Money     `json:"costo_unitario"`
		Total          Money     `json:"total"`
		Fecha          time.Time `json:"fecha"`
		Nota           string    `json:"nota"`
	}

	VentaItem struct {
		ID             int64  `json:"id,omitempty"`
		ProductoID     *int64 `json:"producto_id,omitempty"`
		ServicioID     *int64 `json:"servicio_id,omitempty"`
		Descripcion    string `json:"descripcion"`
		Cantidad       int64  `json:"cantidad"`
		PrecioUnitario Money  `json:"precio_unitario"`
		Subtotal       Money  `json:"subtotal"`
	}

	Venta struct {
		ID         int64       `json:"id"`
		Fecha      time.Time   `json:"fecha"`
		Cliente    string      `json:"cliente"`
		MetodoPago string      `json:"metodo_pago"`
		Items      []VentaItem `json:"items"`
		Total      Money       `json:"total"`
		TotalBs    Money       `json:"total_bs"`
		Tasa       Rate        `json:"tasa"`
		Nota       string      `json:"nota"`
	}

	Gasto struct {
		ID          int64     `json:"id"`
		Descripcion string    `json:"descripcion"`
		Categoria   string    `json:"categoria"`
		Monto       Money     `json:"monto"`
		Fecha       time.Time `json:"fecha"`
		MetodoPago  string    `json:"metodo_pago"`
	}

	Empleado struct {
		ID           int64  `json:"id"`
		Nombre       string `json:"nombre"`
		Cedula       string `json:"cedula"`
		Cargo        string `json:"cargo"`
		Telefono     string `json:"telefono"`
		Email        string `json:"email"`
		Salario      Money  `json:"salario"`
		FechaIngreso string `json:"fecha_ingreso"`
		Activo       bool   `json:"activo"`
	}

	Historial struct {
		ID          int64     `json:"id"`
		Fecha       time.Time `json:"fecha"`
		Accion      string    `json:"accion"`
		Recurso     string    `json:"recurso"`
		RecursoID   int64     `json:"recurso_id"`
		Descripcion string    `json:"descripcion"`
		Usuario     string    `json:"usuario"`
	}

	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		Nombre       string    `json:"nombre"`
		Rol          string    `json:"rol"`
		PasswordHash string    `json:"-"`
		Activo       bool      `json:"activo"`
		CreatedAt    time.Time `json:"created_at"`
	}
)

// Historial actions.
const (
	AccionCrear      = "crear"
	AccionActualizar = "actualizar"
	AccionEliminar   = "eliminar"
)

// Resource names used in historial rows, events and reports.
const (
	RecursoServicio = "servicios"
	RecursoProducto = "productos"
	RecursoCompra   = "compras"
	RecursoVenta    = "ventas"
	RecursoGasto    = "gastos"
	RecursoPersonal = "personal"
	RecursoTasa     = "tasa"
	RecursoUsuario  = "usuarios"
)

// User roles.
const (
	RolAdmin    = "admin"
	RolEmpleado = "empleado"
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_.]{3,40}$`)

func requireText(field, v string, max int) error {
	if strings.TrimSpace(v) == "" {
		return apperr.Validation(field, "es obligatorio")
	}
	return maxLen(field, v, max)
}

func maxLen(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return apperr.Validation(field, "es demasiado largo")
	}
	return nil
}

func (s Servicio) Validate() error {
	if err := requireText("nombre", s.Nombre, maxNombre); err != nil {
		return err
	}
	if err := maxLen("descripcion", s.Descripcion, maxDescripcion); err != nil {
		return err
	}
	if s.Precio.Cents < 0 {
		return apperr.Validation("precio", "no puede ser negativo")
	}
	return nil
}

func (p Producto) Validate() error {
	if err := requireText("nombre", p.Nombre, maxNombre); err != nil {
		return err
	}
	if err := maxLen("codigo", p.Codigo, 40); err != nil {
		return err
	}
	if err := maxLen("categoria", p.Categoria, 60); err != nil {
		return err
	}
	if err := maxLen("descripcion", p.Descripcion, maxDescripcion); err != nil {
		return err
	}
	if err := p.Precio.Validate(); err != nil {
		return apperr.Validation("precio", "debe ser mayor que cero")
	}
	if p.Costo.Cents < 0 {
		return apperr.Validation("costo", "no puede ser negativo")
	}
	if p.Stock < 0 {
		return apperr.Validation("stock", "no puede ser negativo")
	}
	if p.StockMinimo < 0 {
		return apperr.Validation("stock_minimo", "no puede ser negativo")
	}
	return nil
}

// BajoStock reports whether the product reached its reorder threshold.
func (p Producto) BajoStock() bool {
	return p.Stock <= p.StockMinimo
}

func (c Compra) Validate() error {
	if c.ProductoID <= 0 {
		return apperr.Validation("producto_id", "es obligatorio")
	}
	if err := maxLen("proveedor", c.Proveedor, maxNombre); err != nil {
		return err
	}
	if c.Cantidad <= 0 || c.Cantidad > 1_000_000 {
		return apperr.Validation("cantidad", "debe estar entre 1 y 1000000")
	}
	if err := c.CostoUnitario.Validate(); err != nil {
		return apperr.Validation("costo_unitario", "debe ser mayor que cero")
	}
	if !c.CostoUnitario.FitsTimes(c.Cantidad) {
		return apperr.Validation("costo_unitario", "el total de la compra excede el máximo permitido")
	}
	if c.Fecha.IsZero() {
		return apperr.Validation("fecha", "es obligatoria")
	}
	return maxLen("nota", c.Nota, maxDescripcion)
}

// Recalculate sets Total from quantity and unit cost.
func (c *Compra) Recalculate() {
	c.Total = c.CostoUnitario.Times(c.Cantidad)
}

func (it VentaItem) Validate() error {
	hasProducto := it.ProductoID != nil && *it.ProductoID > 0
	hasServicio := it.ServicioID != nil && *it.ServicioID > 0
	if hasProducto == hasServicio {
		return apperr.Validation("items", "cada ítem debe indicar un producto o un servicio")
	}
	if it.Cantidad <= 0 || it.Cantidad > 100_000 {
		return apperr.Validation("cantidad", "debe estar entre 1 y 100000")
	}
	if it.PrecioUnitario.Cents < 0 {
		return apperr.Validation("precio_unitario", "no puede ser negativo")
	}
	if !it.PrecioUnitario.FitsTimes(it.Cantidad) {
		return apperr.Validation("precio_unitario", "el subtotal excede el máximo permitido")
	}
	return nil
}

func (v Venta) Validate() error {
	if len(v.Items) == 0 {
		return apperr.Validation("items", "la venta debe tener al menos un ítem")
	}
	if len(v.Items) > maxItemsPorVenta {
		return apperr.Validation("items", "demasiados ítems")
	}
	for _, it := range v.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	if !ValidMetodoPago(v.MetodoPago) {
		return apperr.Validation("metodo_pago", "método de pago no reconocido")
	}
	if err := maxLen("cliente", v.Cliente, maxNombre); err != nil {
		return err
	}
	if v.Fecha.IsZero() {
		return apperr.Validation("fecha", "es obligatoria")
	}
	return maxLen("nota", v.Nota, maxDescripcion)
}

// Recalculate sets item subtotals, the USD total and, when a rate is present,
// the bolívar total computed with the rate as it is stored.
func (v *Venta) Recalculate() {
	var total Money
	for i := range v.Items {
		v.Items[i].Subtotal = v.Items[i].PrecioUnitario.Times(v.Items[i].Cantidad)
		total = total.Add(v.Items[i].Subtotal)
	}
	v.Total = total
	v.Tasa = NewRate(v.Tasa.Decimal)
	if v.Tasa.IsPositive() {
		v.TotalBs = ConvertToBs(total, v.Tasa)
	}
}

func (g Gasto) Validate() error {
	if err := requireText("descripcion", g.Descripcion, 200); err != nil {
		return err
	}
	if err := requireText("categoria", g.Categoria, 60); err != nil {
		return err
	}
	if err := g.Monto.Validate(); err != nil {
		return apperr.Validation("monto", "debe ser mayor que cero")
	}
	if g.Fecha.IsZero() {
		return apperr.Validation("fecha", "es obligatoria")
	}
	if g.MetodoPago != "" && !ValidMetodoPago(g.MetodoPago) {
		return apperr.Validation("metodo_pago", "método de pago no reconocido")
	}
	return nil
}

func (e Empleado) Validate() error {
	if err := requireText("nombre", e.Nombre, maxNombre); err != nil {
		return err
	}
	if err := requireText("cedula", e.Cedula, 20); err != nil {
		return err
	}
	if err := requireText("cargo", e.Cargo, 60); err != nil {
		return err
	}
	if err := maxLen("telefono", e.Telefono, 30); err != nil {
		return err
	}
	if e.Email != "" && !strings.Contains(e.Email, "@") {
		return apperr.Validation("email", "formato de correo inválido")
	}
	if e.Salario.Cents < 0 {
		return apperr.Validation("salario", "no puede ser negativo")
	}
	if e.FechaIngreso != "" {
		if _, err := time.Parse(DateLayout, e.FechaIngreso); err != nil {
			return apperr.Validation("fecha_ingreso", "use el formato AAAA-MM-DD")
		}
	}
	return nil
}

func (u User) Validate() error {
	if !usernameRe.MatchString(u.Username) {
		return apperr.Validation("username", "use de 3 a 40 caracteres: minúsculas, dígitos, '.' o '_'")
	}
	if err := requireText("nombre", u.Nombre, maxNombre); err != nil {
		return err
	}
	if u.Rol != RolAdmin && u.Rol != RolEmpleado {
		return apperr.Validation("rol", "debe ser 'admin' o 'empleado'")
	}
	return nil
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(p string) error {
	if utf8.RuneCountInString(p) < 8 {
		return apperr.Validation("password", "debe tener al menos 8 caracteres")
	}
	return nil
}
