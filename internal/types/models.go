package types

import (
	"strings"
	"time"
)

// Phase is the legal/administrative status of a process (SIGMINE "fase").
type Phase string

// State is a Brazilian federative unit (UF).
type State string

// Record is one mining process (DM) as loaded from the registry.
type Record struct {
	ID              string    `json:"id"`
	Company         string    `json:"company"`
	Phase           Phase     `json:"phase"`
	State           State     `json:"state"`
	AreaHa          float64   `json:"area_ha"`
	AmountCollected float64   `json:"amount_collected,omitempty"`
	Titleholder     bool      `json:"titleholder,omitempty"`
	LastCollection  time.Time `json:"last_collection,omitempty"`
	Date            time.Time `json:"date,omitempty"`
}

// ProcessID builds the unique process key "numero/ano".
func ProcessID(number, year string) string {
	return strings.TrimSpace(number) + "/" + strings.TrimSpace(year)
}

// Dedupe drops records whose ID was already seen. First occurrence wins and
// input order is preserved.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
