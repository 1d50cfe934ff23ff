package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/core"
	"gestion/internal/log"
	"gestion/internal/metrics"
	"gestion/internal/reports"
	"gestion/internal/storage"
)

var metodoLabels = map[string]string{
	core.PagoEfectivoUSD: "Efectivo USD",
	core.PagoEfectivoBs:  "Efectivo Bs",
	core.PagoPuntoVenta:  "Punto de venta",
	core.PagoMovil:       "Pago móvil",
	core.PagoTransfer:    "Transferencia",
	core.PagoZelle:       "Zelle",
}

func metodoLabel(m string) string {
	if l, ok := metodoLabels[m]; ok {
		return l
	}
	if m == "" {
		return "-"
	}
	return m
}

// ReportRequest selects the report and its period. Desde/Hasta are inclusive
// YYYY-MM-DD days; Fecha is used by the daily report.
type ReportRequest struct {
	Tipo    string
	Formato string
	Desde   string
	Hasta   string
	Fecha   string
}

// ReportService gathers report data and renders it.
type ReportService struct {
	repo     *storage.SQLiteRepository
	stats    *StatsService
	tasas    *TasaService
	business string
	now      clock
	logger   *log.Logger
}

// NewReportService builds the service. tasas converts the USD totals of the
// gastos, compras and inventario reports at the current rate; nil skips them.
func NewReportService(repo *storage.SQLiteRepository, stats *StatsService, tasas *TasaService, business string, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportService{
		repo:     repo,
		stats:    stats,
		tasas:    tasas,
		business: business,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentReports),
	}
}

// Generate builds the requested report and writes it to w.
func (s *ReportService) Generate(ctx context.Context, w io.Writer, req ReportRequest) (reports.Report, error) {
	if req.Formato == "" {
		req.Formato = reports.FormatPDF
	}
	if req.Formato != reports.FormatPDF && req.Formato != reports.FormatXLSX {
		return reports.Report{}, apperr.Validation("formato", "use 'pdf' o 'xlsx'")
	}
	r, err := s.Build(ctx, req)
	if err != nil {
		return r, err
	}
	start := time.Now()
	if err := reports.Render(w, r, req.Formato); err != nil {
		return r, fmt.Errorf("render %s %s: %w", r.Tipo, req.Formato, err)
	}
	metrics.ReportsRendered.WithLabelValues(r.Tipo, req.Formato).Inc()
	s.logger.InfoContext(ctx, "Report rendered",
		log.FieldReport, r.Tipo, "formato", req.Formato, "rows", len(r.Rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return r, nil
}

// Build collects the data of a report without rendering it.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (reports.Report, error) {
	if !reports.ValidTipo(req.Tipo) {
		return reports.Report{}, apperr.Validation("tipo", "tipo de reporte desconocido")
	}
	base := reports.Report{
		Tipo:        req.Tipo,
		Business:    s.business,
		GeneratedAt: s.now().In(s.repo.Location()),
	}

	switch req.Tipo {
	case reports.TipoInventario:
		return s.inventario(ctx, base)
	case reports.TipoDiario:
		return s.diario(ctx, base, req.Fecha)
	}

	rg, err := s.period(req.Desde, req.Hasta)
	if err != nil {
		return base, err
	}
	base.Period = periodLabel(rg)
	switch req.Tipo {
	case reports.TipoVentas:
		return s.ventas(ctx, base, rg)
	case reports.TipoGastos:
		return s.gastos(ctx, base, rg)
	default:
		return s.compras(ctx, base, rg)
	}
}

// period parses the range; with no bounds it covers the current month.
func (s *ReportService) period(desde, hasta string) (core.DateRange, error) {
	loc := s.repo.Location()
	if desde == "" && hasta == "" {
		now := s.now().In(loc)
		return core.MonthRange(now.Year(), int(now.Month()), loc), nil
	}
	rg, err := core.ParseDateRange(desde, hasta, loc)
	if err != nil {
		return rg, apperr.Validation("desde", "rango de fechas inválido")
	}
	return rg, nil
}

// currentRate returns the rate used for Bs columns. A zero rate means none is
// configured and the columns show "-".
func (s *ReportService) currentRate(ctx context.Context) core.Rate {
	if s.tasas == nil {
		return core.Rate{}
	}
	r, err := s.tasas.Current(ctx)
	if err != nil {
		if !apperr.IsNotFound(err) {
			s.logger.WarnContext(ctx, "Report without Bs totals", log.FieldError, err)
		}
		return core.Rate{}
	}
	return r.Tasa
}

func bsCell(usd core.Money, rate core.Rate) reports.Cell {
	if !rate.IsPositive() {
		return reports.Text("-")
	}
	return reports.Bs(core.ConvertToBs(usd, rate))
}

// bsSummary adds the rate and the Bs figure of a USD total to the summary.
func bsSummary(r *reports.Report, label string, usd core.Money, rate core.Rate) {
	if !rate.IsPositive() {
		r.Summary = append(r.Summary, reports.SummaryLine{Label: "Tasa", Value: "sin tasa registrada"})
		return
	}
	r.Summary = append(r.Summary,
		reports.SummaryLine{Label: "Tasa actual", Value: rate.String() + " Bs/USD"},
		reports.SummaryLine{Label: label, Value: core.FormatBs(core.ConvertToBs(usd, rate).Cents)},
	)
}

func periodLabel(rg core.DateRange) string {
	const layout = "02/01/2006"
	switch {
	case rg.Desde.IsZero():
		return "Hasta el " + rg.Hasta.AddDate(0, 0, -1).Format(layout)
	case rg.Hasta.IsZero():
		return "Desde el " + rg.Desde.Format(layout)
	}
	return fmt.Sprintf("Del %s al %s", rg.Desde.Format(layout), rg.Hasta.AddDate(0, 0, -1).Format(layout))
}

func (s *ReportService) ventas(ctx context.Context, r reports.Report, rg core.DateRange) (reports.Report, error) {
	vs, err := s.repo.VentasEnRango(ctx, rg)
	if err != nil {
		return r, err
	}
	r.Title = "Reporte de ventas"
	r.Columns = []reports.Column{
		{Header: "Fecha", Width: 32},
		{Header: "Cliente", Width: 50},
		{Header: "Método", Width: 32},
		{Header: "Ítems", Width: 16, Align: reports.AlignRight},
		{Header: "Tasa", Width: 24, Align: reports.AlignRight},
		{Header: "Total USD", Width: 32, Align: reports.AlignRight},
		{Header: "Total Bs", Width: 40, Align: reports.AlignRight},
	}
	var (
		total, totalBs core.Money
		items          int64
	)
	for _, v := range vs {
		var n int64
		for _, it := range v.Items {
			n += it.Cantidad
		}
		cliente := v.Cliente
		if cliente == "" {
			cliente = "Cliente general"
		}
		r.Rows = append(r.Rows, []reports.Cell{
			reports.Date(v.Fecha),
			reports.Text(cliente),
			reports.Text(metodoLabel(v.MetodoPago)),
			reports.Int(n),
			reports.Text(v.Tasa.String()),
			reports.USD(v.Total),
			reports.Bs(v.TotalBs),
		})
		items += n
		total = total.Add(v.Total)
		totalBs = totalBs.Add(v.TotalBs)
	}
	r.Totals = []reports.Cell{
		reports.Text("TOTAL"), reports.Text(""), reports.Text(""), reports.Int(items),
		reports.Text(""), reports.USD(total), reports.Bs(totalBs),
	}
	r.Summary = []reports.SummaryLine{
		{Label: "Ventas registradas", Value: fmt.Sprintf("%d", len(vs))},
		{Label: "Total USD", Value: core.FormatUSD(total.Cents)},
		{Label: "Total Bs", Value: core.FormatBs(totalBs.Cents)},
	}
	return r, nil
}

func (s *ReportService) gastos(ctx context.Context, r reports.Report, rg core.DateRange) (reports.Report, error) {
	gs, err := s.repo.GastosEnRango(ctx, rg)
	if err != nil {
		return r, err
	}
	cats, err := s.repo.GastosPorCategoria(ctx, rg)
	if err != nil {
		return r, err
	}
	r.Title = "Reporte de gastos"
	r.Columns = []reports.Column{
		{Header: "Fecha", Width: 32},
		{Header: "Descripción", Width: 64},
		{Header: "Categoría", Width: 36},
		{Header: "Método", Width: 30},
		{Header: "Monto USD", Width: 28, Align: reports.AlignRight},
		{Header: "Monto Bs", Width: 36, Align: reports.AlignRight},
	}
	rate := s.currentRate(ctx)
	var total core.Money
	for _, g := range gs {
		r.Rows = append(r.Rows, []reports.Cell{
			reports.Date(g.Fecha),
			reports.Text(g.Descripcion),
			reports.Text(g.Categoria),
			reports.Text(metodoLabel(g.MetodoPago)),
			reports.USD(g.Monto),
			bsCell(g.Monto, rate),
		})
		total = total.Add(g.Monto)
	}
	r.Totals = []reports.Cell{
		reports.Text("TOTAL"), reports.Text(""), reports.Text(""), reports.Text(""), reports.USD(total), bsCell(total, rate),
	}
	r.Summary = append(r.Summary, reports.SummaryLine{Label: "Total gastos", Value: core.FormatUSD(total.Cents)})
	bsSummary(&r, "Total gastos Bs", total, rate)
	for _, c := range cats {
		r.Summary = append(r.Summary, reports.SummaryLine{Label: c.Name, Value: core.FormatUSD(c.Amount.Cents)})
	}
	return r, nil
}

func (s *ReportService) compras(ctx context.Context, r reports.Report, rg core.DateRange) (reports.Report, error) {
	cs, err := s.repo.ComprasEnRango(ctx, rg)
	if err != nil {
		return r, err
	}
	r.Title = "Reporte de compras"
	r.Columns = []reports.Column{
		{Header: "Fecha", Width: 32},
		{Header: "Producto", Width: 50},
		{Header: "Proveedor", Width: 40},
		{Header: "Cantidad", Width: 20, Align: reports.AlignRight},
		{Header: "Costo unit.", Width: 24, Align: reports.AlignRight},
		{Header: "Total USD", Width: 28, Align: reports.AlignRight},
		{Header: "Total Bs", Width: 36, Align: reports.AlignRight},
	}
	rate := s.currentRate(ctx)
	var (
		total core.Money
		qty   int64
	)
	for _, c := range cs {
		r.Rows = append(r.Rows, []reports.Cell{
			reports.Date(c.Fecha),
			reports.Text(c.ProductoNombre),
			reports.Text(c.Proveedor),
			reports.Int(c.Cantidad),
			reports.USD(c.CostoUnitario),
			reports.USD(c.Total),
			bsCell(c.Total, rate),
		})
		qty += c.Cantidad
		total = total.Add(c.Total)
	}
	r.Totals = []reports.Cell{
		reports.Text("TOTAL"), reports.Text(""), reports.Text(""), reports.Int(qty), reports.Text(""), reports.USD(total),
		bsCell(total, rate),
	}
	r.Summary = []reports.SummaryLine{
		{Label: "Compras registradas", Value: fmt.Sprintf("%d", len(cs))},
		{Label: "Total invertido", Value: core.FormatUSD(total.Cents)},
	}
	bsSummary(&r, "Total invertido Bs", total, rate)
	return r, nil
}

func (s *ReportService) inventario(ctx context.Context, r reports.Report) (reports.Report, error) {
	ps, err := s.repo.ListAllProductos(ctx)
	if err != nil {
		return r, err
	}
	r.Title = "Inventario de productos"
	r.Period = "Al " + r.GeneratedAt.Format("02/01/2006 15:04")
	r.Columns = []reports.Column{
		{Header: "Código", Width: 26},
		{Header: "Producto", Width: 56},
		{Header: "Categoría", Width: 34},
		{Header: "Stock", Width: 18, Align: reports.AlignRight},
		{Header: "Mínimo", Width: 18, Align: reports.AlignRight},
		{Header: "Costo", Width: 26, Align: reports.AlignRight},
		{Header: "Precio", Width: 26, Align: reports.AlignRight},
		{Header: "Valor USD", Width: 30, Align: reports.AlignRight},
		{Header: "Valor Bs", Width: 36, Align: reports.AlignRight},
	}
	rate := s.currentRate(ctx)
	var (
		valor core.Money
		bajo  int
		stock int64
	)
	for _, p := range ps {
		v := p.Costo.Times(p.Stock)
		nombre := p.Nombre
		if p.BajoStock() {
			nombre += " (!)"
			bajo++
		}
		r.Rows = append(r.Rows, []reports.Cell{
			reports.Text(p.Codigo),
			reports.Text(nombre),
			reports.Text(p.Categoria),
			reports.Int(p.Stock),
			reports.Int(p.StockMinimo),
			reports.USD(p.Costo),
			reports.USD(p.Precio),
			reports.USD(v),
			bsCell(v, rate),
		})
		valor = valor.Add(v)
		stock += p.Stock
	}
	r.Totals = []reports.Cell{
		reports.Text("TOTAL"), reports.Text(""), reports.Text(""), reports.Int(stock),
		reports.Text(""), reports.Text(""), reports.Text(""), reports.USD(valor), bsCell(valor, rate),
	}
	r.Summary = []reports.SummaryLine{
		{Label: "Productos", Value: fmt.Sprintf("%d", len(ps))},
		{Label: "Con stock bajo", Value: fmt.Sprintf("%d", bajo)},
		{Label: "Valor del inventario", Value: core.FormatUSD(valor.Cents)},
	}
	bsSummary(&r, "Valor del inventario Bs", valor, rate)
	return r, nil
}

func (s *ReportService) diario(ctx context.Context, r reports.Report, fecha string) (reports.Report, error) {
	st, err := s.stats.Daily(ctx, fecha)
	if err != nil {
		return r, err
	}
	day, _ := core.ParseDay(st.Fecha, s.repo.Location())
	vs, err := s.repo.VentasEnRango(ctx, core.DayRange(day))
	if err != nil {
		return r, err
	}

	r.Title = "Cierre diario"
	r.Period = day.Format("02/01/2006")
	r.Columns = []reports.Column{
		{Header: "Hora", Width: 20},
		{Header: "Cliente", Width: 60},
		{Header: "Método", Width: 36},
		{Header: "Total USD", Width: 34, Align: reports.AlignRight},
		{Header: "Total Bs", Width: 40, Align: reports.AlignRight},
	}
	for _, v := range vs {
		cliente := v.Cliente
		if cliente == "" {
			cliente = "Cliente general"
		}
		r.Rows = append(r.Rows, []reports.Cell{
			reports.Text(v.Fecha.Format("15:04")),
			reports.Text(cliente),
			reports.Text(metodoLabel(v.MetodoPago)),
			reports.USD(v.Total),
			reports.Bs(v.TotalBs),
		})
	}
	r.Totals = []reports.Cell{
		reports.Text("TOTAL"), reports.Text(""), reports.Text(""), reports.USD(st.VentasTotal), reports.Bs(st.VentasTotalBs),
	}
	r.Summary = []reports.SummaryLine{
		{Label: "Ventas", Value: fmt.Sprintf("%d / %s", st.VentasCount, core.FormatUSD(st.VentasTotal.Cents))},
		{Label: "Gastos", Value: fmt.Sprintf("%d / %s", st.GastosCount, core.FormatUSD(st.GastosTotal.Cents))},
		{Label: "Compras", Value: fmt.Sprintf("%d / %s", st.ComprasCount, core.FormatUSD(st.ComprasTotal.Cents))},
		{Label: "Balance", Value: core.FormatUSD(st.Balance.Cents)},
	}
	if st.Tasa.IsPositive() {
		r.Summary = append(r.Summary,
			reports.SummaryLine{Label: "Tasa del día", Value: st.Tasa.String() + " Bs/USD"},
			reports.SummaryLine{Label: "Balance en Bs", Value: core.FormatBs(st.BalanceBs.Cents)},
		)
	}
	for _, m := range st.PorMetodo {
		r.Summary = append(r.Summary, reports.SummaryLine{
			Label: metodoLabel(m.MetodoPago),
			Value: fmt.Sprintf("%d / %s", m.Count, core.FormatUSD(m.Total.Cents)),
		})
	}
	return r, nil
}
