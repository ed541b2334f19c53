// Package aggregator computes per-company totals over the state-scoped and
// filtered record subsets, and derives top-N series with an others bucket.
package aggregator

import (
	"fmt"
	"sort"

	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/types"
)

// OthersLabel names the synthetic remainder row.
const OthersLabel = "Outras"

// Normalizer maps a raw company name to its canonical group.
type Normalizer interface {
	Normalize(raw string) string
}

// Entry is a record together with its canonical company name.
type Entry struct {
	types.Record
	Group string `json:"group"`
}

// Row is one company of the outer-joined table.
type Row struct {
	Company  string   `json:"company"`
	All      Measures `json:"all"`
	Filtered Measures `json:"filtered"`
}

// Of returns the measures of the given subset.
func (r Row) Of(s Subset) Measures {
	if s == SubsetAll {
		return r.All
	}
	return r.Filtered
}

// Result is the output of one aggregation pass. It is not modified after
// Compute returns.
type Result struct {
	// Rows is ordered by area in SubsetAll, descending, then company.
	Rows     []Row `json:"rows"`
	All      Stats `json:"all"`
	Filtered Stats `json:"filtered"`
	// FilteredEntries are the records of SubsetFiltered in input order.
	FilteredEntries []Entry `json:"-"`

	spec filter.Spec
}

func (r *Result) Spec() filter.Spec { return r.spec }

func (r *Result) Empty() bool { return r.All.Records == 0 }

// Stats returns the summary of one subset.
func (r *Result) Stats(s Subset) Stats {
	if s == SubsetAll {
		return r.All
	}
	return r.Filtered
}

// Sorted returns a copy of Rows ordered by measure m of subset s, descending,
// ties by company ascending.
func (r *Result) Sorted(m Measure, s Subset) []Row {
	out := make([]Row, len(r.Rows))
	copy(out, r.Rows)
	sortRows(out, m, s)
	return out
}

// Compute runs one aggregation pass. A record with a phase or state outside
// the filter's vocabularies aborts the pass with *UnknownCategoryError; use
// ExcludeUnknown first to drop them instead. When no record matches the
// selected states the returned Result is empty but usable and err wraps
// ErrEmptyInput. norm may be nil.
func Compute(records []types.Record, spec filter.Spec, norm Normalizer) (*Result, error) {
	for _, r := range records {
		if err := checkCategories(r, spec); err != nil {
			return nil, err
		}
	}

	// A process listed under several states or phases has one record per
	// listing. Membership is decided per record and duplicates collapse
	// afterwards, so a process is kept when any of its listings matches.
	var inStates, matching []types.Record
	for _, r := range records {
		if !spec.HasState(r.State) {
			continue
		}
		inStates = append(inStates, r)
		if inFiltered(r, spec) {
			matching = append(matching, r)
		}
	}
	subsetA := normalize(types.Dedupe(inStates), norm)
	subsetB := normalize(types.Dedupe(matching), norm)

	byA := groupByCompany(subsetA)
	byB := groupByCompany(subsetB)

	res := &Result{
		Rows:            outerJoin(byA, byB),
		All:             summarize(subsetA, byA),
		Filtered:        summarize(subsetB, byB),
		FilteredEntries: subsetB,
		spec:            spec,
	}
	sortRows(res.Rows, MeasureArea, SubsetAll)

	if len(subsetA) == 0 {
		return res, fmt.Errorf("%w: no record in states %v", ErrEmptyInput, spec.States())
	}
	return res, nil
}

func normalize(records []types.Record, norm Normalizer) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		g := r.Company
		if norm != nil {
			g = norm.Normalize(r.Company)
		}
		out[i] = Entry{Record: r, Group: g}
	}
	return out
}

func inFiltered(r types.Record, spec filter.Spec) bool {
	switch spec.Rule() {
	case filter.RuleTitleholders:
		if !r.Titleholder {
			return false
		}
	default:
		if !spec.HasPhase(r.Phase) {
			return false
		}
	}
	if cut, ok := spec.Cutoff(); ok {
		if r.LastCollection.IsZero() || r.LastCollection.Before(cut) {
			return false
		}
	}
	return true
}

func groupByCompany(entries []Entry) map[string]Measures {
	out := map[string]Measures{}
	for _, e := range entries {
		m := out[e.Group]
		m.add(e.Record)
		out[e.Group] = m
	}
	return out
}

func summarize(entries []Entry, grouped map[string]Measures) Stats {
	s := Stats{Companies: len(grouped), Records: len(entries)}
	for _, e := range entries {
		s.Area += e.AreaHa
		s.Amount += e.AmountCollected
	}
	return s
}

// outerJoin merges the two grouped tables on company. A company missing on
// one side gets zero measures for that side.
func outerJoin(all, filtered map[string]Measures) []Row {
	rows := make([]Row, 0, len(all))
	for company, m := range all {
		rows = append(rows, Row{Company: company, All: m, Filtered: filtered[company]})
	}
	for company, m := range filtered {
		if _, ok := all[company]; ok {
			continue
		}
		rows = append(rows, Row{Company: company, Filtered: m})
	}
	return rows
}

func sortRows(rows []Row, m Measure, s Subset) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Of(s).Value(m), rows[j].Of(s).Value(m)
		if a != b {
			return a > b
		}
		return rows[i].Company < rows[j].Company
	})
}
