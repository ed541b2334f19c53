// Package groups maps raw company names to the economic group they belong to.
package groups

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrDuplicateKey is returned when a mapping source lists a company twice.
var ErrDuplicateKey = errors.New("duplicate company in group mapping")

// Table is an immutable company → group lookup. The zero value and a nil
// *Table both map every name to itself.
type Table struct {
	m map[string]string
}

// Identity is the empty table.
var Identity = &Table{}

// New builds a table from an already parsed mapping. The map is copied.
func New(m map[string]string) *Table {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return &Table{m: cp}
}

// Normalize returns the group of raw, or raw itself when it is not mapped.
func (t *Table) Normalize(raw string) string {
	if t == nil {
		return raw
	}
	if g, ok := t.m[raw]; ok {
		return g
	}
	return raw
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}

// Groups returns the distinct group names, sorted.
func (t *Table) Groups() []string {
	if t == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, g := range t.m {
		seen[g] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Load parses a JSON object of company → group. encoding/json keeps the last
// value of a repeated key, so the object is walked token by token to catch
// duplicates.
func Load(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("read mapping: expected JSON object")
	}
	m := map[string]string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read mapping key: %w", err)
		}
		key, _ := tok.(string)
		var group string
		if err := dec.Decode(&group); err != nil {
			return nil, fmt.Errorf("read group for %q: %w", key, err)
		}
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		m[key] = group
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	return &Table{m: m}, nil
}

// LoadXLSX reads the first sheet of a workbook whose first two columns are
// company and group. The first row is a header.
func LoadXLSX(path string) (*Table, error) {
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
	m := map[string]string{}
	for i, r := range rows {
		if i == 0 || len(r) < 2 {
			continue
		}
		company := strings.TrimSpace(r[0])
		group := strings.TrimSpace(r[1])
		if company == "" {
			continue
		}
		if _, dup := m[company]; dup {
			return nil, fmt.Errorf("%w: %q (row %d)", ErrDuplicateKey, company, i+1)
		}
		m[company] = group
	}
	return &Table{m: m}, nil
}

// LoadFile picks the loader from the file extension.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		return Load(f)
	default:
		return nil, fmt.Errorf("unsupported group mapping format %q", filepath.Ext(path))
	}
}

// WriteJSON writes the mapping as an indented JSON object with sorted keys.
func (t *Table) WriteJSON(w io.Writer) error {
	m := map[string]string{}
	if t != nil {
		m = t.m
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(m)
}
