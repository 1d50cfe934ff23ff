package reports

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidthPortrait = 190.0
	rowHeight         = 6.0
)

// WritePDF renders r as an A4 PDF. Wide tables switch to landscape.
func WritePDF(w io.Writer, r Report) error {
	orientation := "P"
	if totalWidth(r.Columns) > pageWidthPortrait {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.Title, true)
	pdf.SetAuthor(r.Business, true)
	pdf.AliasNbPages("")
	pdf.SetAutoPageBreak(true, 15)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, tr(r.Business), "", 1, AlignLeft, false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, tr(r.Title), "", 1, AlignLeft, false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, tr(r.Period), "", 0, AlignLeft, false, 0, "")
		pdf.CellFormat(0, 5, tr("Generado: "+r.GeneratedAt.Format("02/01/2006 15:04")), "", 1, AlignRight, false, 0, "")
		pdf.Ln(3)
		tableHeader(pdf, tr, r.Columns)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Página %d/{nb}", pdf.PageNo())), "", 0, AlignCenter, false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 9)
	if len(r.Rows) == 0 {
		pdf.CellFormat(totalWidth(r.Columns), rowHeight, tr("Sin registros en el período"), "1", 1, AlignCenter, false, 0, "")
	}
	for i, row := range r.Rows {
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for j, col := range r.Columns {
			text := ""
			if j < len(row) {
				text = fit(pdf, tr(row[j].Text), col.Width-2)
			}
			pdf.CellFormat(col.Width, rowHeight, text, "LR", 0, alignOf(col), fill, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Totals) > 0 {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		for j, col := range r.Columns {
			text := ""
			if j < len(r.Totals) {
				text = tr(r.Totals[j].Text)
			}
			pdf.CellFormat(col.Width, rowHeight, text, "1", 0, alignOf(col), true, 0, "")
		}
		pdf.Ln(-1)
	} else {
		pdf.CellFormat(totalWidth(r.Columns), 0, "", "T", 1, AlignLeft, false, 0, "")
	}

	if len(r.Summary) > 0 {
		pdf.Ln(4)
		for _, s := range r.Summary {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(60, rowHeight, tr(s.Label), "", 0, AlignLeft, false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(50, rowHeight, tr(s.Value), "", 1, AlignRight, false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func tableHeader(pdf *fpdf.Fpdf, tr func(string) string, cols []Column) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	for _, c := range cols {
		pdf.CellFormat(c.Width, 7, tr(c.Header), "1", 0, AlignCenter, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
}

func totalWidth(cols []Column) float64 {
	var w float64
	for _, c := range cols {
		w += c.Width
	}
	return w
}

func alignOf(c Column) string {
	if c.Align == "" {
		return AlignLeft
	}
	return c.Align
}

// fit truncates s with an ellipsis so it prints within width millimetres.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
