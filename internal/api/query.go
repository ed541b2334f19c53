package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sigmine-dashboard/internal/aggregator"
	"sigmine-dashboard/internal/dashboard"
	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/types"
)

// Query is a parsed dashboard query string.
type Query struct {
	Request dashboard.Request
	// Sort orders exported tables and picks the scatter measure.
	Sort aggregator.Measure
}

// ParseQuery builds a fresh filter from the query string. Phases come from
// the preset (default titleholders) plus any explicit phase values; states
// default to every declared state. Every malformed value wraps
// filter.ErrInvalidFilter.
func ParseQuery(q url.Values, phases *types.Vocabulary[types.Phase], states *types.Vocabulary[types.State]) (Query, error) {
	opts := filter.Options{
		TopN:            filter.DefaultTopN,
		PhaseVocabulary: phases,
		StateVocabulary: states,
	}

	preset := strings.ToLower(strings.TrimSpace(q.Get("preset")))
	explicit := upper[types.Phase](q["phase"])
	switch preset {
	case "all":
		opts.Phases = filter.AllPhases(phases)
	case "titleholders":
		opts.Phases = filter.TitleholderPhases(phases)
	case "none":
		opts.Phases = filter.NoPhases()
	case "":
		if len(explicit) == 0 {
			opts.Phases = filter.TitleholderPhases(phases)
		}
	default:
		return Query{}, fmt.Errorf("%w: unknown preset %q", filter.ErrInvalidFilter, preset)
	}
	opts.Phases = append(opts.Phases, explicit...)

	opts.States = upper[types.State](q["state"])
	if len(opts.States) == 0 {
		opts.States = filter.AllStates(states)
	}

	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Query{}, fmt.Errorf("%w: top %q is not a number", filter.ErrInvalidFilter, v)
		}
		opts.TopN = n
	}

	var err error
	if opts.Baseline, err = filter.ParseBaseline(q.Get("baseline")); err != nil {
		return Query{}, err
	}
	if opts.Rule, err = filter.ParseRule(q.Get("rule")); err != nil {
		return Query{}, err
	}
	if v := q.Get("cutoff"); v != "" {
		cut, err := time.Parse("2006-01-02", v)
		if err != nil {
			return Query{}, fmt.Errorf("%w: cutoff %q: want YYYY-MM-DD", filter.ErrInvalidFilter, v)
		}
		opts.Cutoff = &cut
	}

	spec, err := filter.New(opts)
	if err != nil {
		return Query{}, err
	}

	out := Query{Request: dashboard.Request{Spec: spec, WithOthers: true}}
	if out.Request.Ranking, err = aggregator.ParseSubset(q.Get("rank")); err != nil {
		return Query{}, err
	}
	for _, v := range q["measure"] {
		m, err := aggregator.ParseMeasure(v)
		if err != nil {
			return Query{}, err
		}
		out.Request.Measures = append(out.Request.Measures, m)
	}
	out.Sort = aggregator.MeasureArea
	if len(out.Request.Measures) > 0 {
		out.Sort = out.Request.Measures[0]
	}
	if v := q.Get("others"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Query{}, fmt.Errorf("%w: others %q", filter.ErrInvalidFilter, v)
		}
		out.Request.WithOthers = b
	}
	return out, nil
}

func upper[T ~string](vs []string) []T {
	out := make([]T, 0, len(vs))
	for _, v := range vs {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, T(strings.ToUpper(part)))
			}
		}
	}
	return out
}
