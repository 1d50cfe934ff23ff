// Package reports renders tabular business reports as PDF or XLSX.
package reports

import (
	"fmt"
	"io"
	"time"

	"gestion/internal/apperr"
	"gestion/internal/core"
)

// Output formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// Report types.
const (
	TipoVentas     = "ventas"
	TipoGastos     = "gastos"
	TipoCompras    = "compras"
	TipoInventario = "inventario"
	TipoDiario     = "diario"
)

// Tipos lists the report types in menu order.
var Tipos = []string{TipoVentas, TipoGastos, TipoCompras, TipoInventario, TipoDiario}

// ValidTipo reports whether t names a known report.
func ValidTipo(t string) bool {
	for _, v := range Tipos {
		if v == t {
			return true
		}
	}
	return false
}

// Column alignment, as understood by fpdf.
const (
	AlignLeft   = "L"
	AlignRight  = "R"
	AlignCenter = "C"
)

// Column describes one table column. Width is in millimetres on the PDF and
// roughly characters in the spreadsheet.
type Column struct {
	Header string
	Width  float64
	Align  string
}

// Cell holds the printed text and, for spreadsheets, the typed value.
type Cell struct {
	Text   string
	Value  any
	Format int
}

const (
	numFmtGeneral = 0
	numFmtInteger = 1
	numFmtDecimal = 4
)

// Text is a plain text cell.
func Text(s string) Cell { return Cell{Text: s, Value: s} }

// Int is an integer cell.
func Int(n int64) Cell { return Cell{Text: fmt.Sprintf("%d", n), Value: n, Format: numFmtInteger} }

// USD is a dollar amount cell.
func USD(m core.Money) Cell {
	return Cell{Text: core.FormatUSD(m.Cents), Value: float64(m.Cents) / 100, Format: numFmtDecimal}
}

// Bs is a bolívar amount cell.
func Bs(m core.Money) Cell {
	return Cell{Text: core.FormatBs(m.Cents), Value: float64(m.Cents) / 100, Format: numFmtDecimal}
}

// Date is a timestamp cell printed as day and hour.
func Date(t time.Time) Cell {
	return Cell{Text: t.Format("02/01/2006 15:04"), Value: t.Format("2006-01-02 15:04")}
}

// SummaryLine is a labelled total printed under the table.
type SummaryLine struct {
	Label string
	Value string
}

// Report is a titled table with optional totals row and summary lines.
type Report struct {
	Tipo        string
	Title       string
	Business    string
	Period      string
	GeneratedAt time.Time
	Columns     []Column
	Rows        [][]Cell
	Totals      []Cell
	Summary     []SummaryLine
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// FileName builds the download name for a report.
func FileName(r Report, format string) string {
	return fmt.Sprintf("reporte_%s_%s.%s", r.Tipo, r.GeneratedAt.Format("20060102_1504"), format)
}

// Render writes r to w in the given format.
func Render(w io.Writer, r Report, format string) error {
	switch format {
	case FormatPDF, "":
		return WritePDF(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	default:
		return apperr.Validation("formato", "use 'pdf' o 'xlsx'")
	}
}
