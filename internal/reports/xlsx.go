package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reporte"

// WriteXLSX renders r as a single-sheet workbook.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: numFmtDecimal})
	if err != nil {
		return fmt.Errorf("total style: %w", err)
	}
	numStyles := map[int]int{}
	for _, nf := range []int{numFmtInteger, numFmtDecimal} {
		id, err := f.NewStyle(&excelize.Style{NumFmt: nf})
		if err != nil {
			return fmt.Errorf("number style: %w", err)
		}
		numStyles[nf] = id
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheetName, cell, v)
	}
	if err := set(1, 1, r.Business); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", titleStyle); err != nil {
		return err
	}
	if err := set(1, 2, r.Title); err != nil {
		return err
	}
	if err := set(1, 3, r.Period); err != nil {
		return err
	}

	const headerRow = 5
	header := make([]any, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c.Header
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, colName, colName, c.Width/1.8+2); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", headerRow), &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(r.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(r.Columns), headerRow)
		if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", headerRow), last, headerStyle); err != nil {
			return err
		}
	}

	row := headerRow + 1
	for _, cells := range r.Rows {
		for j, c := range cells {
			if err := set(j+1, row, c.Value); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			if style, ok := numStyles[c.Format]; ok {
				name, _ := excelize.CoordinatesToCellName(j+1, row)
				if err := f.SetCellStyle(sheetName, name, name, style); err != nil {
					return err
				}
			}
		}
		row++
	}

	if len(r.Totals) > 0 {
		for j, c := range r.Totals {
			if c.Value == nil && c.Text == "" {
				continue
			}
			if err := set(j+1, row, c.Value); err != nil {
				return fmt.Errorf("write totals: %w", err)
			}
			name, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellStyle(sheetName, name, name, totalStyle); err != nil {
				return err
			}
		}
		row++
	}

	row++
	for _, s := range r.Summary {
		if err := set(1, row, s.Label); err != nil {
			return err
		}
		if err := set(2, row, s.Value); err != nil {
			return err
		}
		row++
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: headerRow, TopLeftCell: fmt.Sprintf("A%d", headerRow+1), ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
