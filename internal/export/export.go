// Package export writes aggregation tables and filtered records as CSV or
// XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"sigmine-dashboard/internal/aggregator"
)

// DateLayout is how record dates are written.
const DateLayout = "2006-01-02"

// Sheet is a header plus rows of cells. Cells are string, int or float64.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Table lays out the outer-joined aggregation table, ordered by measure m of
// subset s.
func Table(res *aggregator.Result, m aggregator.Measure, s aggregator.Subset) Sheet {
	sh := Sheet{
		Name: "empresas",
		Header: []string{
			"empresa",
			"dms_todos", "area_ha_todos", "arrecadado_todos",
			"dms_filtrados", "area_ha_filtrados", "arrecadado_filtrados",
		},
	}
	for _, row := range res.Sorted(m, s) {
		sh.Rows = append(sh.Rows, []any{
			row.Company,
			row.All.Count, row.All.Area, row.All.Amount,
			row.Filtered.Count, row.Filtered.Area, row.Filtered.Amount,
		})
	}
	return sh
}

// Records lays out the filtered records, one per process, in input order.
func Records(entries []aggregator.Entry) Sheet {
	sh := Sheet{
		Name:   "processos",
		Header: []string{"processo", "uf", "fase", "empresa", "grupo", "area_ha", "arrecadado", "data"},
	}
	for _, e := range entries {
		date := ""
		if !e.Date.IsZero() {
			date = e.Date.Format(DateLayout)
		}
		sh.Rows = append(sh.Rows, []any{
			e.ID, string(e.State), string(e.Phase), e.Company, e.Group,
			e.AreaHa, e.AmountCollected, date,
		})
	}
	return sh
}

// WriteCSV writes the sheet as comma-separated UTF-8.
func WriteCSV(w io.Writer, sh Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sh.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	line := make([]string, len(sh.Header))
	for i, row := range sh.Rows {
		for j, v := range row {
			line[j] = formatCell(v)
		}
		if err := cw.Write(line[:len(row)]); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// WriteXLSX writes the sheet as a single-sheet workbook with a bold,
// frozen header row.
func WriteXLSX(w io.Writer, sh Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sh.Name
	if name == "" {
		name = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(sh.Header))
	for i, h := range sh.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range sh.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(name, cell, &r); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if len(sh.Header) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(sh.Header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
			return err
		}
		if err := f.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
