package aggregator

import (
	"fmt"
	"math"

	"sigmine-dashboard/internal/filter"
)

// Point is one bar of a top-N series. Value comes from the ranking subset,
// Companion from the other subset, for the same company.
type Point struct {
	Company   string  `json:"company"`
	Value     float64 `json:"value"`
	Companion float64 `json:"companion"`
}

// Series is a top-N extraction with its optional others bucket.
type Series struct {
	Measure  Measure         `json:"-"`
	Ranking  Subset          `json:"-"`
	Baseline filter.Baseline `json:"-"`
	Points   []Point         `json:"points"`
	// Others is nil unless requested.
	Others *Point `json:"others,omitempty"`
	// OthersCompanies counts companies of the baseline subset left out of
	// Points, the ones the others value is made of.
	OthersCompanies int `json:"others_companies"`
	// BaselineTotal is the total of Measure in the baseline subset.
	BaselineTotal float64 `json:"baseline_total"`
}

// TopSum is the sum of Value over Points.
func (s Series) TopSum() float64 {
	var sum float64
	for _, p := range s.Points {
		sum += p.Value
	}
	return sum
}

// TopN ranks the companies present in the ranking subset by measure m and
// keeps the filter's top N, ties by company ascending. Companion values are
// read for the same companies, not re-ranked.
//
// The others value is baselineTotal minus the top-N sum in the ranking
// subset, where baselineTotal is the total of the filter's baseline subset.
// Ranking by SubsetAll against BaselineFiltered would yield a meaningless
// remainder and is rejected.
func (r *Result) TopN(m Measure, ranking Subset, withOthers bool) (Series, error) {
	if ranking != SubsetAll && ranking != SubsetFiltered {
		return Series{}, fmt.Errorf("%w: unknown ranking subset %d", ErrInvalidFilter, int(ranking))
	}
	baseline := r.spec.Baseline()
	if ranking == SubsetAll && baseline == filter.BaselineFiltered {
		return Series{}, fmt.Errorf("%w: ranking by the all subset requires the all baseline", ErrInvalidFilter)
	}

	eligible := make([]Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.Of(ranking).Count > 0 {
			eligible = append(eligible, row)
		}
	}
	sortRows(eligible, m, ranking)

	n := r.spec.TopN()
	if n > len(eligible) {
		n = len(eligible)
	}
	companion := ranking.Other()

	s := Series{
		Measure:         m,
		Ranking:         ranking,
		Baseline:        baseline,
		Points:          make([]Point, 0, n),
		OthersCompanies: r.Stats(baselineSubset(baseline)).Companies,
		BaselineTotal:   r.Stats(baselineSubset(baseline)).Total(m),
	}
	var companionSum float64
	for _, row := range eligible[:n] {
		if row.Of(baselineSubset(baseline)).Count > 0 {
			s.OthersCompanies--
		}
		p := Point{
			Company:   row.Company,
			Value:     row.Of(ranking).Value(m),
			Companion: row.Of(companion).Value(m),
		}
		companionSum += p.Companion
		s.Points = append(s.Points, p)
	}

	if withOthers {
		s.Others = &Point{
			Company:   OthersLabel,
			Value:     residual(s.BaselineTotal, s.TopSum()),
			Companion: residual(r.Stats(companion).Total(m), companionSum),
		}
	}
	return s, nil
}

func baselineSubset(b filter.Baseline) Subset {
	if b == filter.BaselineAll {
		return SubsetAll
	}
	return SubsetFiltered
}

// residual is total-part with float noise around zero dropped.
func residual(total, part float64) float64 {
	v := total - part
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

// Shares are percentages of the baseline total.
type Shares struct {
	Points []float64 `json:"points"`
	Top    float64   `json:"top"`
	Others float64   `json:"others"`
}

// Shares expresses every point, their sum and the others value as a
// percentage of the baseline total. Others is computed even when the series
// was built without an others row, as 100 minus Top.
func (s Series) Shares() (Shares, error) {
	out := Shares{Points: make([]float64, len(s.Points))}
	for i, p := range s.Points {
		pct, err := Percent(p.Value, s.BaselineTotal)
		if err != nil {
			return Shares{}, err
		}
		out.Points[i] = pct
	}
	top, err := Percent(s.TopSum(), s.BaselineTotal)
	if err != nil {
		return Shares{}, err
	}
	out.Top = top
	others := residual(s.BaselineTotal, s.TopSum())
	if s.Others != nil {
		others = s.Others.Value
	}
	out.Others, err = Percent(others, s.BaselineTotal)
	if err != nil {
		return Shares{}, err
	}
	return out, nil
}

// Percent returns value/total*100.
func Percent(value, total float64) (float64, error) {
	if total == 0 {
		return 0, ErrDivisionByZero
	}
	return value / total * 100, nil
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
