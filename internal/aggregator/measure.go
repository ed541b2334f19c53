package aggregator

import (
	"fmt"
	"strings"

	"sigmine-dashboard/internal/types"
)

// Measure is a per-company quantity that can be ranked.
type Measure int

const (
	MeasureCount Measure = iota
	MeasureArea
	MeasureAmount
)

func (m Measure) String() string {
	switch m {
	case MeasureCount:
		return "count"
	case MeasureArea:
		return "area"
	case MeasureAmount:
		return "amount"
	}
	return fmt.Sprintf("Measure(%d)", int(m))
}

func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count":
		return MeasureCount, nil
	case "", "area":
		return MeasureArea, nil
	case "amount":
		return MeasureAmount, nil
	}
	return 0, fmt.Errorf("%w: unknown measure %q", ErrInvalidFilter, s)
}

// Subset names one of the two record subsets of a pass.
type Subset int

const (
	// SubsetAll is scoped by state only.
	SubsetAll Subset = iota
	// SubsetFiltered is SubsetAll further narrowed by phase or titleholder flag.
	SubsetFiltered
)

func (s Subset) String() string {
	switch s {
	case SubsetAll:
		return "all"
	case SubsetFiltered:
		return "filtered"
	}
	return fmt.Sprintf("Subset(%d)", int(s))
}

// Other returns the opposite subset.
func (s Subset) Other() Subset {
	if s == SubsetAll {
		return SubsetFiltered
	}
	return SubsetAll
}

func ParseSubset(s string) (Subset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return SubsetAll, nil
	case "", "filtered":
		return SubsetFiltered, nil
	}
	return 0, fmt.Errorf("%w: unknown subset %q", ErrInvalidFilter, s)
}

// Measures are the per-company sums of one subset.
type Measures struct {
	Count  int     `json:"count"`
	Area   float64 `json:"area_ha"`
	Amount float64 `json:"amount_collected"`
}

func (m *Measures) add(r types.Record) {
	m.Count++
	m.Area += r.AreaHa
	m.Amount += r.AmountCollected
}

func (m Measures) Value(of Measure) float64 {
	switch of {
	case MeasureCount:
		return float64(m.Count)
	case MeasureAmount:
		return m.Amount
	default:
		return m.Area
	}
}

// Stats summarises one subset.
type Stats struct {
	Companies int     `json:"companies"`
	Records   int     `json:"records"`
	Area      float64 `json:"area_ha"`
	Amount    float64 `json:"amount_collected"`
}

// Total returns the subset total of a measure. For MeasureCount that is the
// record count.
func (s Stats) Total(of Measure) float64 {
	switch of {
	case MeasureCount:
		return float64(s.Records)
	case MeasureAmount:
		return s.Amount
	default:
		return s.Area
	}
}
