// Package dashboard runs the page pipeline shared by every dashboard view:
// fetch records, aggregate them under a filter, extract the top-N series per
// measure and derive the headline cards.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigmine-dashboard/internal/aggregator"
	"sigmine-dashboard/internal/dataset"
	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/headline"
	"sigmine-dashboard/internal/logger"
	"sigmine-dashboard/internal/store"
	"sigmine-dashboard/internal/types"
)

// DefaultMeasures are the panels of the main page.
var DefaultMeasures = []aggregator.Measure{aggregator.MeasureCount, aggregator.MeasureArea}

// Request is one page build.
type Request struct {
	Spec     filter.Spec
	Ranking  aggregator.Subset
	Measures []aggregator.Measure
	// WithOthers appends the "Outras" row to every series.
	WithOthers bool
}

// Panel is the chart data of one measure.
type Panel struct {
	Measure string            `json:"measure"`
	Ranking string            `json:"ranking"`
	Series  aggregator.Series `json:"series"`
	// Shares is nil when the baseline total is zero.
	Shares *aggregator.Shares `json:"shares,omitempty"`
	Cards  []headline.Card    `json:"cards"`
}

// Filter echoes the filter a page was built with.
type Filter struct {
	Phases    []types.Phase `json:"phases"`
	States    []types.State `json:"states"`
	TopN      int           `json:"top_n"`
	Baseline  string        `json:"baseline"`
	Rule      string        `json:"rule"`
	Cutoff    string        `json:"cutoff,omitempty"`
	Preset    string        `json:"preset,omitempty"`
	WithOther bool          `json:"others"`
}

// Page is the outcome of one build.
type Page struct {
	Filter   Filter           `json:"filter"`
	Empty    bool             `json:"empty"`
	All      aggregator.Stats `json:"all"`
	Filtered aggregator.Stats `json:"filtered"`
	Summary  []headline.Card  `json:"summary"`
	Panels   []Panel          `json:"panels"`
	// Excluded counts records dropped for an undeclared phase or state.
	Excluded   int   `json:"excluded"`
	DurationMs int64 `json:"duration_ms"`

	Result *aggregator.Result `json:"-"`
}

// Builder holds the collaborators of the pipeline.
type Builder struct {
	Source store.Source
	Groups aggregator.Normalizer
	// DropUnknown skips records outside the vocabularies instead of failing
	// the build.
	DropUnknown bool

	log *logger.Logger
}

func NewBuilder(src store.Source, groups aggregator.Normalizer, dropUnknown bool, log *logger.Logger) *Builder {
	return &Builder{
		Source:      src,
		Groups:      groups,
		DropUnknown: dropUnknown,
		log:         log.Component("dashboard"),
	}
}

// Build runs the pipeline. An empty state selection yields a page with Empty
// set and no panels, not an error.
func (b *Builder) Build(ctx context.Context, req Request) (*Page, error) {
	start := time.Now()
	log := b.log.WithField("top_n", req.Spec.TopN()).WithField("ranking", req.Ranking.String())

	records, err := b.Source.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	page := &Page{Filter: describe(req)}
	if b.DropUnknown {
		var dropped []error
		records, dropped = aggregator.ExcludeUnknown(records, req.Spec)
		page.Excluded = len(dropped)
		if len(dropped) > 0 {
			log.WithField("excluded", len(dropped)).WithField("first", dropped[0].Error()).
				Debug("records outside vocabulary dropped")
		}
	}

	res, err := aggregator.Compute(records, req.Spec, b.Groups)
	switch {
	case errors.Is(err, aggregator.ErrEmptyInput):
		page.Empty = true
	case err != nil:
		return nil, err
	}
	page.Result = res
	page.All = res.All
	page.Filtered = res.Filtered
	page.Summary = headline.Summary(res)

	if !page.Empty {
		measures := req.Measures
		if len(measures) == 0 {
			measures = DefaultMeasures
		}
		for _, m := range measures {
			p, err := panel(res, m, req.Ranking, req.WithOthers)
			if err != nil {
				return nil, err
			}
			page.Panels = append(page.Panels, p)
		}
	}

	page.DurationMs = time.Since(start).Milliseconds()
	log.WithField("records", len(records)).
		WithField("companies", res.All.Companies).
		WithField("empty", page.Empty).
		WithField("duration_ms", page.DurationMs).
		Info("page built")
	return page, nil
}

// Inventory describes the current records against the vocabularies, for the
// filter widgets.
func (b *Builder) Inventory(ctx context.Context, phases *types.Vocabulary[types.Phase], states *types.Vocabulary[types.State]) (dataset.Summary, error) {
	records, err := b.Source.Records(ctx)
	if err != nil {
		return dataset.Summary{}, fmt.Errorf("fetch records: %w", err)
	}
	return dataset.Summarize(records, phases, states, b.log), nil
}

func panel(res *aggregator.Result, m aggregator.Measure, ranking aggregator.Subset, withOthers bool) (Panel, error) {
	s, err := res.TopN(m, ranking, withOthers)
	if err != nil {
		return Panel{}, err
	}
	p := Panel{Measure: m.String(), Ranking: ranking.String(), Series: s}

	cards, err := headline.Generate(s)
	p.Cards = cards
	switch {
	case errors.Is(err, aggregator.ErrDivisionByZero):
		// the filtered subset is empty; keep the absolute cards
	case err != nil:
		return Panel{}, err
	default:
		sh, err := s.Shares()
		if err != nil {
			return Panel{}, err
		}
		p.Shares = &sh
	}
	return p, nil
}

func describe(req Request) Filter {
	s := req.Spec
	f := Filter{
		Phases:    s.Phases(),
		States:    s.States(),
		TopN:      s.TopN(),
		Baseline:  s.Baseline().String(),
		Rule:      s.Rule().String(),
		WithOther: req.WithOthers,
	}
	if cut, ok := s.Cutoff(); ok {
		f.Cutoff = cut.Format("2006-01-02")
	}
	if s.UsingTitleholders() {
		f.Preset = "titleholders"
	}
	return f
}
