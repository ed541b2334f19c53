package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"sigmine-dashboard/internal/types"
)

// columns holds the detected header positions; -1 means absent.
type columns struct {
	number, year, process    int
	company, phase, state    int
	area, amount, collection int
	titleholder              int
	day, month               int
}

func detectColumns(header []string) (columns, error) {
	c := columns{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
	set := func(idx *int, i int) {
		if *idx == -1 {
			*idx = i
		}
	}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case l == "processo":
			set(&c.process, i)
		case l == "numero" || l == "número":
			set(&c.number, i)
		case l == "ano":
			set(&c.year, i)
		case l == "dia":
			set(&c.day, i)
		case l == "mes" || l == "mês":
			set(&c.month, i)
		case strings.Contains(l, "ultima") || strings.Contains(l, "última"):
			set(&c.collection, i)
		case strings.Contains(l, "arrecad") || strings.Contains(l, "valor"):
			set(&c.amount, i)
		case l == "nome" || strings.Contains(l, "empresa"):
			set(&c.company, i)
		case strings.Contains(l, "titulad") || strings.Contains(l, "titular"):
			set(&c.titleholder, i)
		case strings.Contains(l, "fase"):
			set(&c.phase, i)
		case l == "uf" || strings.Contains(l, "estado"):
			set(&c.state, i)
		case strings.Contains(l, "area") || strings.Contains(l, "área"):
			set(&c.area, i)
		}
	}
	if c.process == -1 && (c.number == -1 || c.year == -1) {
		return c, fmt.Errorf("no process column (processo or numero+ano)")
	}
	for name, idx := range map[string]int{"company": c.company, "phase": c.phase, "state": c.state, "area": c.area} {
		if idx == -1 {
			return c, fmt.Errorf("no %s column", name)
		}
	}
	return c, nil
}

// Load reads registry records from the first sheet of an XLSX export. The
// header row is matched by name (processo or numero+ano, nome/empresa, fase,
// uf, area_ha, and optionally arrecadado, ultima_arrecadacao, titulado,
// dia/mes).
func Load(path string) ([]types.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	cols, err := detectColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	var out []types.Record
	for i, r := range rows {
		if i == 0 {
			continue
		}
		rec, ok, err := parseRow(r, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !ok {
			// blank line
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func cell(r []string, idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[idx])
}

func parseRow(r []string, c columns) (types.Record, bool, error) {
	var rec types.Record
	number, year := cell(r, c.number), cell(r, c.year)
	switch {
	case cell(r, c.process) != "":
		rec.ID = cell(r, c.process)
		if n, y, found := strings.Cut(rec.ID, "/"); found {
			number, year = n, y
		}
	case number != "" && year != "":
		rec.ID = types.ProcessID(number, year)
	default:
		return rec, false, nil
	}

	rec.Company = cell(r, c.company)
	rec.Phase = types.Phase(strings.ToUpper(cell(r, c.phase)))
	rec.State = types.State(strings.ToUpper(cell(r, c.state)))

	var err error
	if rec.AreaHa, err = parseNumber(cell(r, c.area)); err != nil {
		return rec, false, fmt.Errorf("area: %w", err)
	}
	if rec.AmountCollected, err = parseNumber(cell(r, c.amount)); err != nil {
		return rec, false, fmt.Errorf("amount: %w", err)
	}
	if v := cell(r, c.collection); v != "" {
		if rec.LastCollection, err = parseDate(v); err != nil {
			return rec, false, fmt.Errorf("last collection: %w", err)
		}
	}
	if v := cell(r, c.titleholder); v != "" {
		rec.Titleholder = parseBool(v)
	} else {
		rec.Titleholder = types.IsTitleholderPhase(rec.Phase)
	}
	rec.Date = processDate(year, cell(r, c.month), cell(r, c.day))
	return rec, true, nil
}

// parseNumber accepts "1234.5", "1.234,5" and "1234,5". Empty is zero.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %v", v)
	}
	return v, nil
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05", "01-02-06"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Excel serial date
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(f, false)
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "sim", "s", "yes", "x":
		return true
	}
	return false
}

// processDate builds the process date from ano/mes/dia; invalid parts give the
// zero time.
func processDate(year, month, day string) time.Time {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}
	}
	return t
}

// File is a record source backed by an XLSX export. It re-reads the file on
// every call.
type File struct {
	Path string
}

func (f File) Records(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(f.Path)
}
