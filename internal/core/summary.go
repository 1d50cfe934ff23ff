package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"nombre"`
	Amount Money  `json:"monto"`
}

// MethodTotal aggregates ventas by payment method.
type MethodTotal struct {
	MetodoPago string `json:"metodo_pago"`
	Count      int64  `json:"cantidad"`
	Total      Money  `json:"total"`
}

// TopItem is a best-selling product or service.
type TopItem struct {
	Descripcion string `json:"descripcion"`
	Cantidad    int64  `json:"cantidad"`
	Total       Money  `json:"total"`
}

// DailyStats is the dashboard summary for one calendar day.
type DailyStats struct {
	Fecha         string        `json:"fecha"`
	VentasCount   int64         `json:"ventas_count"`
	VentasTotal   Money         `json:"ventas_total"`
	VentasTotalBs Money         `json:"ventas_total_bs"`
	GastosCount   int64         `json:"gastos_count"`
	GastosTotal   Money         `json:"gastos_total"`
	ComprasCount  int64         `json:"compras_count"`
	ComprasTotal  Money         `json:"compras_total"`
	Balance       Money         `json:"balance"`
	PorMetodo     []MethodTotal `json:"por_metodo"`
	TopItems      []TopItem     `json:"top_items"`
	Tasa          Rate          `json:"tasa"`
	BalanceBs     Money         `json:"balance_bs"`
}

// ComputeBalance fills Balance (ventas - gastos - compras) and its bolívar value.
func (d *DailyStats) ComputeBalance() {
	d.Balance = d.VentasTotal.Sub(d.GastosTotal).Sub(d.ComprasTotal)
	if d.Tasa.IsPositive() {
		d.BalanceBs = ConvertToBs(d.Balance, d.Tasa)
	}
}

// DayTotal is one point of the monthly series.
type DayTotal struct {
	Fecha  string `json:"fecha"`
	Ventas Money  `json:"ventas"`
	Gastos Money  `json:"gastos"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year               int              `json:"year"`
	Month              int              `json:"month"`
	VentasTotal        Money            `json:"ventas_total"`
	GastosTotal        Money            `json:"gastos_total"`
	ComprasTotal       Money            `json:"compras_total"`
	Balance            Money            `json:"balance"`
	Dias               []DayTotal       `json:"dias"`
	GastosPorCategoria []CategoryAmount `json:"gastos_por_categoria"`
}

// ExchangeRate is a stored rate with the moment it was set.
type ExchangeRate struct {
	Tasa      Rate   `json:"tasa"`
	Fuente    string `json:"fuente"`
	Usuario   string `json:"usuario"`
	CreatedAt string `json:"actualizada"`
}
