package aggregator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/groups"
	"sigmine-dashboard/internal/types"
)

var (
	testPhases = types.MustVocabulary[types.Phase]("Fase1", "Fase2", "Fase3")
	testStates = types.MustVocabulary[types.State]("SP", "MG", "BA")
)

func newSpec(t *testing.T, mutate func(o *filter.Options)) filter.Spec {
	t.Helper()
	o := filter.Options{
		Phases:          []types.Phase{"Fase1"},
		States:          []types.State{"SP", "MG"},
		TopN:            2,
		Baseline:        filter.BaselineFiltered,
		PhaseVocabulary: testPhases,
		StateVocabulary: testStates,
	}
	if mutate != nil {
		mutate(&o)
	}
	s, err := filter.New(o)
	require.NoError(t, err)
	return s
}

func rec(id, company string, phase types.Phase, state types.State, area float64) types.Record {
	return types.Record{ID: id, Company: company, Phase: phase, State: state, AreaHa: area}
}

// The four-record example: A=10/SP, B=5/SP, B=20/MG (Fase2), C=1/SP.
func exampleRecords() []types.Record {
	return []types.Record{
		rec("1/2020", "A", "Fase1", "SP", 10),
		rec("2/2020", "B", "Fase1", "SP", 5),
		rec("3/2020", "B", "Fase2", "MG", 20),
		rec("4/2020", "C", "Fase1", "SP", 1),
	}
}

func TestCompute_Example(t *testing.T) {
	res, err := Compute(exampleRecords(), newSpec(t, nil), nil)
	require.NoError(t, err)

	assert.Equal(t, Stats{Companies: 3, Records: 4, Area: 36}, res.All)
	assert.Equal(t, Stats{Companies: 3, Records: 3, Area: 16}, res.Filtered)

	// Default order: area in the all subset.
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "B", res.Rows[0].Company)
	assert.Equal(t, 25.0, res.Rows[0].All.Area)
	assert.Equal(t, 5.0, res.Rows[0].Filtered.Area)
	assert.Equal(t, 2, res.Rows[0].All.Count)
	assert.Equal(t, 1, res.Rows[0].Filtered.Count)

	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{Company: "A", Value: 10, Companion: 10},
		{Company: "B", Value: 5, Companion: 25},
	}, s.Points)
	require.NotNil(t, s.Others)
	assert.Equal(t, OthersLabel, s.Others.Company)
	assert.InDelta(t, 1, s.Others.Value, 1e-9)
	assert.InDelta(t, 1, s.Others.Companion, 1e-9)
	assert.Equal(t, 1, s.OthersCompanies)
	assert.Equal(t, 16.0, s.BaselineTotal)

	sh, err := s.Shares()
	require.NoError(t, err)
	assert.Equal(t, "6.25", FormatPercent(sh.Others))
	assert.Equal(t, "62.50", FormatPercent(sh.Points[0]))
	assert.Equal(t, "93.75", FormatPercent(sh.Top))
}

func TestTopN_BaselineAll(t *testing.T) {
	spec := newSpec(t, func(o *filter.Options) { o.Baseline = filter.BaselineAll })
	res, err := Compute(exampleRecords(), spec, nil)
	require.NoError(t, err)

	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	assert.Equal(t, 36.0, s.BaselineTotal)
	assert.InDelta(t, 21, s.Others.Value, 1e-9)

	sh, err := s.Shares()
	require.NoError(t, err)
	var sum float64
	for _, p := range sh.Points {
		sum += p
	}
	assert.InDelta(t, 100, sum+sh.Others, 0.01)

	// Ranking by the all subset is allowed against the all baseline.
	s, err = res.TopN(MeasureArea, SubsetAll, true)
	require.NoError(t, err)
	assert.Equal(t, "B", s.Points[0].Company)
	assert.Equal(t, 5.0, s.Points[0].Companion)
	assert.InDelta(t, 1, s.Others.Value, 1e-9)
}

func TestTopN_OthersCompaniesCountBaseline(t *testing.T) {
	records := append(exampleRecords(), rec("5/2020", "D", "Fase2", "SP", 3))
	spec := newSpec(t, func(o *filter.Options) { o.Baseline = filter.BaselineAll })
	res, err := Compute(records, spec, nil)
	require.NoError(t, err)

	// C has filtered records, D only unfiltered ones; both make up the
	// others value against the all baseline.
	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	assert.Equal(t, 2, s.OthersCompanies)
	assert.InDelta(t, 24, s.Others.Value, 1e-9)

	spec = newSpec(t, nil)
	res, err = Compute(records, spec, nil)
	require.NoError(t, err)
	s, err = res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	assert.Equal(t, 1, s.OthersCompanies)
}

func TestTopN_RankingAllAgainstFilteredBaseline(t *testing.T) {
	res, err := Compute(exampleRecords(), newSpec(t, nil), nil)
	require.NoError(t, err)

	_, err = res.TopN(MeasureArea, SubsetAll, true)
	require.ErrorIs(t, err, ErrInvalidFilter)

	_, err = res.TopN(MeasureArea, Subset(9), false)
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestTopN_Count(t *testing.T) {
	res, err := Compute(exampleRecords(), newSpec(t, nil), nil)
	require.NoError(t, err)

	s, err := res.TopN(MeasureCount, SubsetFiltered, false)
	require.NoError(t, err)
	assert.Nil(t, s.Others)
	// A, B and C all have one filtered record: ties fall back to the name.
	assert.Equal(t, []Point{
		{Company: "A", Value: 1, Companion: 1},
		{Company: "B", Value: 1, Companion: 2},
	}, s.Points)
	assert.Equal(t, 3.0, s.BaselineTotal)

	sh, err := s.Shares()
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, sh.Others, 1e-9)
}

func TestTopN_Deterministic(t *testing.T) {
	records := []types.Record{
		rec("1/1", "delta", "Fase1", "SP", 5),
		rec("2/1", "alpha", "Fase1", "SP", 5),
		rec("3/1", "charlie", "Fase1", "MG", 5),
		rec("4/1", "bravo", "Fase1", "SP", 5),
	}
	spec := newSpec(t, func(o *filter.Options) { o.TopN = 3 })

	var first []Point
	for i := 0; i < 5; i++ {
		// Input order must not matter.
		shuffled := append([]types.Record(nil), records...)
		rand.New(rand.NewSource(int64(i))).Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		res, err := Compute(shuffled, spec, nil)
		require.NoError(t, err)
		s, err := res.TopN(MeasureArea, SubsetFiltered, true)
		require.NoError(t, err)
		if first == nil {
			first = s.Points
			continue
		}
		assert.Equal(t, first, s.Points)
	}
	require.Len(t, first, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{first[0].Company, first[1].Company, first[2].Company})
}

func TestTopN_FewerCompaniesThanN(t *testing.T) {
	spec := newSpec(t, func(o *filter.Options) { o.TopN = 50 })
	res, err := Compute(exampleRecords(), spec, nil)
	require.NoError(t, err)

	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	assert.Len(t, s.Points, 3)
	assert.Equal(t, 0, s.OthersCompanies)
	assert.Equal(t, 0.0, s.Others.Value)
}

func TestTopN_SkipsCompaniesAbsentFromRankingSubset(t *testing.T) {
	records := []types.Record{
		rec("1/1", "A", "Fase2", "SP", 100),
		rec("2/1", "B", "Fase1", "SP", 1),
	}
	res, err := Compute(records, newSpec(t, nil), nil)
	require.NoError(t, err)

	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	require.Len(t, s.Points, 1)
	assert.Equal(t, "B", s.Points[0].Company)
	assert.Equal(t, 0, s.OthersCompanies)
}

func TestCompute_Dedupe(t *testing.T) {
	records := append(exampleRecords(), rec("1/2020", "A", "Fase1", "SP", 10))
	res, err := Compute(records, newSpec(t, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.All.Records)
	assert.Equal(t, 36.0, res.All.Area)
}

func TestCompute_ProcessInSeveralStates(t *testing.T) {
	sp := rec("1/2020", "A", "Fase1", "SP", 10)
	mg := rec("1/2020", "A", "Fase1", "MG", 10)
	spec := newSpec(t, func(o *filter.Options) { o.States = []types.State{"MG"} })

	for name, records := range map[string][]types.Record{
		"listed state first": {mg, sp},
		"other state first":  {sp, mg},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := Compute(records, spec, nil)
			require.NoError(t, err)
			assert.Equal(t, Stats{Companies: 1, Records: 1, Area: 10}, res.All)
			assert.Equal(t, Stats{Companies: 1, Records: 1, Area: 10}, res.Filtered)
		})
	}

	// Both listings selected: still one process.
	res, err := Compute([]types.Record{sp, mg}, newSpec(t, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.All.Records)
	assert.Equal(t, 10.0, res.All.Area)
}

func TestCompute_ProcessInSeveralPhases(t *testing.T) {
	records := []types.Record{
		rec("1/2020", "A", "Fase2", "SP", 10),
		rec("1/2020", "A", "Fase1", "SP", 10),
	}
	res, err := Compute(records, newSpec(t, nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.All.Records)
	assert.Equal(t, Stats{Companies: 1, Records: 1, Area: 10}, res.Filtered)
}

func TestCompute_Normalizer(t *testing.T) {
	records := []types.Record{
		rec("1/1", "Acme Ltda", "Fase1", "SP", 3),
		rec("2/1", "Acme Mineração", "Fase1", "SP", 4),
		rec("3/1", "Solo", "Fase1", "SP", 5),
	}
	norm := groups.New(map[string]string{"Acme Ltda": "Acme", "Acme Mineração": "Acme"})

	res, err := Compute(records, newSpec(t, nil), norm)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Acme", res.Rows[0].Company)
	assert.Equal(t, 7.0, res.Rows[0].All.Area)
	assert.Equal(t, 2, res.All.Companies)

	// Raw names survive on the entries.
	require.Len(t, res.FilteredEntries, 3)
	assert.Equal(t, "Acme Ltda", res.FilteredEntries[0].Company)
	assert.Equal(t, "Acme", res.FilteredEntries[0].Group)
}

func TestCompute_TitleholderRule(t *testing.T) {
	records := exampleRecords()
	records[2].Titleholder = true // B, MG, Fase2
	spec := newSpec(t, func(o *filter.Options) { o.Rule = filter.RuleTitleholders })

	res, err := Compute(records, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Companies: 1, Records: 1, Area: 20}, res.Filtered)
}

func TestCompute_Cutoff(t *testing.T) {
	cut := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	records := exampleRecords()
	records[0].LastCollection = cut.AddDate(0, 1, 0)
	records[1].LastCollection = cut.AddDate(0, -1, 0)
	records[3].LastCollection = cut
	records[0].AmountCollected = 250

	spec := newSpec(t, func(o *filter.Options) { o.Cutoff = &cut })
	res, err := Compute(records, spec, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Filtered.Records)
	assert.Equal(t, 11.0, res.Filtered.Area)
	assert.Equal(t, 250.0, res.Filtered.Amount)
	assert.Equal(t, 250.0, res.All.Amount)
}

func TestCompute_StateFilter(t *testing.T) {
	spec := newSpec(t, func(o *filter.Options) { o.States = []types.State{"MG"} })
	res, err := Compute(exampleRecords(), spec, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Companies: 1, Records: 1, Area: 20}, res.All)
	assert.Equal(t, Stats{}, res.Filtered)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, Measures{}, res.Rows[0].Filtered)

	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	assert.Empty(t, s.Points)
	_, err = s.Shares()
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestCompute_Empty(t *testing.T) {
	spec := newSpec(t, func(o *filter.Options) { o.States = []types.State{"BA"} })
	res, err := Compute(exampleRecords(), spec, nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	require.NotNil(t, res)
	assert.True(t, res.Empty())
	assert.Empty(t, res.Rows)

	s, err := res.TopN(MeasureArea, SubsetFiltered, true)
	require.NoError(t, err)
	_, err = s.Shares()
	assert.ErrorIs(t, err, ErrDivisionByZero)

	res, err = Compute(nil, spec, nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.True(t, res.Empty())
}

func TestCompute_UnknownCategory(t *testing.T) {
	records := append(exampleRecords(), rec("9/2020", "D", "Fase9", "SP", 1))
	_, err := Compute(records, newSpec(t, nil), nil)
	require.ErrorIs(t, err, ErrUnknownCategory)
	var uc *UnknownCategoryError
	require.True(t, errors.As(err, &uc))
	assert.Equal(t, "9/2020", uc.RecordID)
	assert.Equal(t, "phase", uc.Field)
	assert.Equal(t, "Fase9", uc.Value)

	records = append(exampleRecords(), rec("8/2020", "D", "Fase1", "RJ", 1))
	kept, errs := ExcludeUnknown(records, newSpec(t, nil))
	assert.Len(t, kept, 4)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `unknown state "RJ"`)
}

func TestSorted(t *testing.T) {
	res, err := Compute(exampleRecords(), newSpec(t, nil), nil)
	require.NoError(t, err)

	byFiltered := res.Sorted(MeasureArea, SubsetFiltered)
	assert.Equal(t, "A", byFiltered[0].Company)
	// The result itself keeps the default order.
	assert.Equal(t, "B", res.Rows[0].Company)
}

func TestOuterJoin(t *testing.T) {
	all := map[string]Measures{"A": {Count: 1, Area: 1}, "B": {Count: 2, Area: 2}}
	filtered := map[string]Measures{"B": {Count: 1, Area: 1}, "Z": {Count: 1, Area: 9}}

	rows := outerJoin(all, filtered)
	sortRows(rows, MeasureArea, SubsetAll)
	require.Len(t, rows, 3)
	got := map[string]Row{}
	for _, r := range rows {
		got[r.Company] = r
	}
	assert.Equal(t, Measures{}, got["A"].Filtered)
	assert.Equal(t, Measures{}, got["Z"].All)
	assert.Equal(t, 9.0, got["Z"].Filtered.Area)
}

// Randomised tables: no company lost or duplicated by the join, absent
// companies are zero-filled, and top-N plus others add up to the baseline.
func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	phases := testPhases.Values()
	states := testStates.Values()

	for iter := 0; iter < 50; iter++ {
		// A process may be listed several times, under any phase and state,
		// always with the same company and measures.
		processes := make([]types.Record, 80)
		for i := range processes {
			processes[i] = types.Record{
				ID:              fmt.Sprintf("%d/%d", i, 2000+iter),
				Company:         fmt.Sprintf("co-%02d", rng.Intn(15)),
				AreaHa:          math.Round(rng.Float64()*1e4) / 100,
				AmountCollected: float64(rng.Intn(1000)),
			}
		}
		n := rng.Intn(60)
		records := make([]types.Record, 0, n)
		for i := 0; i < n; i++ {
			r := processes[rng.Intn(len(processes))]
			r.Phase = phases[rng.Intn(len(phases))]
			r.State = states[rng.Intn(len(states))]
			records = append(records, r)
		}
		baseline := filter.BaselineFiltered
		if iter%2 == 0 {
			baseline = filter.BaselineAll
		}
		spec := newSpec(t, func(o *filter.Options) {
			o.TopN = 1 + rng.Intn(10)
			o.Baseline = baseline
		})

		res, err := Compute(records, spec, nil)
		if err != nil {
			require.ErrorIs(t, err, ErrEmptyInput)
			continue
		}

		companiesA := map[string]bool{}
		companiesB := map[string]bool{}
		for _, r := range records {
			if !spec.HasState(r.State) {
				continue
			}
			companiesA[r.Company] = true
			if spec.HasPhase(r.Phase) {
				companiesB[r.Company] = true
			}
		}
		union := map[string]bool{}
		for c := range companiesA {
			union[c] = true
		}
		for c := range companiesB {
			union[c] = true
		}
		require.Len(t, res.Rows, len(union))
		seen := map[string]bool{}
		for _, row := range res.Rows {
			require.False(t, seen[row.Company], "duplicate row %s", row.Company)
			seen[row.Company] = true
			if !companiesB[row.Company] {
				assert.Equal(t, Measures{}, row.Filtered)
			}
		}

		for _, m := range []Measure{MeasureCount, MeasureArea, MeasureAmount} {
			s, err := res.TopN(m, SubsetFiltered, true)
			require.NoError(t, err)
			if baseline == filter.BaselineFiltered {
				assert.InDelta(t, res.Filtered.Total(m), s.TopSum()+s.Others.Value, 1e-6)
			}
			sh, err := s.Shares()
			if s.BaselineTotal == 0 {
				require.ErrorIs(t, err, ErrDivisionByZero)
				continue
			}
			require.NoError(t, err)
			var sum float64
			for _, p := range sh.Points {
				sum += p
			}
			assert.InDelta(t, 100, sum+sh.Others, 0.01)
		}
	}
}

func TestParseMeasureAndSubset(t *testing.T) {
	m, err := ParseMeasure("count")
	require.NoError(t, err)
	assert.Equal(t, MeasureCount, m)
	m, err = ParseMeasure("")
	require.NoError(t, err)
	assert.Equal(t, MeasureArea, m)
	_, err = ParseMeasure("weight")
	assert.ErrorIs(t, err, ErrInvalidFilter)

	s, err := ParseSubset("all")
	require.NoError(t, err)
	assert.Equal(t, SubsetAll, s)
	_, err = ParseSubset("some")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestPercent(t *testing.T) {
	p, err := Percent(1, 16)
	require.NoError(t, err)
	assert.Equal(t, "6.25", FormatPercent(p))

	_, err = Percent(1, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}
