// Package filter holds the user choices one aggregation pass runs against.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sigmine-dashboard/internal/types"
)

// ErrInvalidFilter is returned for out-of-range or unrecognised choices.
var ErrInvalidFilter = errors.New("invalid filter")

const (
	MinTopN     = 1
	MaxTopN     = 100
	DefaultTopN = 20
)

// Baseline selects the total that percentages and the others bucket are
// measured against.
type Baseline int

const (
	BaselineFiltered Baseline = iota
	BaselineAll
)

func (b Baseline) String() string {
	switch b {
	case BaselineFiltered:
		return "filtered"
	case BaselineAll:
		return "all"
	}
	return fmt.Sprintf("Baseline(%d)", int(b))
}

func ParseBaseline(s string) (Baseline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "filtered":
		return BaselineFiltered, nil
	case "all":
		return BaselineAll, nil
	}
	return 0, fmt.Errorf("%w: unknown baseline %q", ErrInvalidFilter, s)
}

// Rule selects how the filtered subset is derived from the state-scoped one.
type Rule int

const (
	// RulePhases keeps records whose phase is selected.
	RulePhases Rule = iota
	// RuleTitleholders keeps records flagged as titleholder.
	RuleTitleholders
)

func (r Rule) String() string {
	switch r {
	case RulePhases:
		return "phases"
	case RuleTitleholders:
		return "titleholders"
	}
	return fmt.Sprintf("Rule(%d)", int(r))
}

func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "phases":
		return RulePhases, nil
	case "titleholders":
		return RuleTitleholders, nil
	}
	return 0, fmt.Errorf("%w: unknown rule %q", ErrInvalidFilter, s)
}

// Options is the mutable input to New. Nil vocabularies default to the
// SIGMINE ones.
type Options struct {
	Phases   []types.Phase
	States   []types.State
	TopN     int
	Baseline Baseline
	Rule     Rule
	// Cutoff, when non-nil, keeps only records collected on or after it in
	// the filtered subset.
	Cutoff *time.Time

	PhaseVocabulary *types.Vocabulary[types.Phase]
	StateVocabulary *types.Vocabulary[types.State]
}

// Spec is an immutable filter specification.
type Spec struct {
	phases   map[types.Phase]struct{}
	states   map[types.State]struct{}
	topN     int
	baseline Baseline
	rule     Rule
	cutoff   time.Time
	hasCut   bool

	phaseVocab *types.Vocabulary[types.Phase]
	stateVocab *types.Vocabulary[types.State]
}

// New validates opts and returns a Spec.
func New(opts Options) (Spec, error) {
	s := Spec{
		phases:     make(map[types.Phase]struct{}, len(opts.Phases)),
		states:     make(map[types.State]struct{}, len(opts.States)),
		topN:       opts.TopN,
		baseline:   opts.Baseline,
		rule:       opts.Rule,
		phaseVocab: opts.PhaseVocabulary,
		stateVocab: opts.StateVocabulary,
	}
	if s.phaseVocab == nil {
		s.phaseVocab = types.DefaultPhases
	}
	if s.stateVocab == nil {
		s.stateVocab = types.DefaultStates
	}
	if s.topN < MinTopN || s.topN > MaxTopN {
		return Spec{}, fmt.Errorf("%w: top N %d outside [%d,%d]", ErrInvalidFilter, s.topN, MinTopN, MaxTopN)
	}
	if s.baseline != BaselineFiltered && s.baseline != BaselineAll {
		return Spec{}, fmt.Errorf("%w: unknown baseline %d", ErrInvalidFilter, int(s.baseline))
	}
	if s.rule != RulePhases && s.rule != RuleTitleholders {
		return Spec{}, fmt.Errorf("%w: unknown rule %d", ErrInvalidFilter, int(s.rule))
	}
	if len(opts.States) == 0 {
		return Spec{}, fmt.Errorf("%w: no state selected", ErrInvalidFilter)
	}
	for _, p := range opts.Phases {
		if !s.phaseVocab.Contains(p) {
			return Spec{}, fmt.Errorf("%w: unknown phase %q", ErrInvalidFilter, p)
		}
		s.phases[p] = struct{}{}
	}
	for _, st := range opts.States {
		if !s.stateVocab.Contains(st) {
			return Spec{}, fmt.Errorf("%w: unknown state %q", ErrInvalidFilter, st)
		}
		s.states[st] = struct{}{}
	}
	if opts.Cutoff != nil {
		s.cutoff = *opts.Cutoff
		s.hasCut = true
	}
	return s, nil
}

// Default mirrors the dashboard's initial state: titleholder phases, every
// state, top 20, filtered baseline.
func Default() Spec {
	s, err := New(Options{
		Phases: TitleholderPhases(types.DefaultPhases),
		States: AllStates(types.DefaultStates),
		TopN:   DefaultTopN,
	})
	if err != nil {
		panic(err)
	}
	return s
}

// Phases returns the selected phases in vocabulary order.
func (s Spec) Phases() []types.Phase {
	out := make([]types.Phase, 0, len(s.phases))
	for p := range s.phases {
		out = append(out, p)
	}
	s.phaseVocab.Sort(out)
	return out
}

// States returns the selected states in vocabulary order.
func (s Spec) States() []types.State {
	out := make([]types.State, 0, len(s.states))
	for st := range s.states {
		out = append(out, st)
	}
	s.stateVocab.Sort(out)
	return out
}

func (s Spec) HasPhase(p types.Phase) bool {
	_, ok := s.phases[p]
	return ok
}

func (s Spec) HasState(st types.State) bool {
	_, ok := s.states[st]
	return ok
}

func (s Spec) TopN() int          { return s.topN }
func (s Spec) Baseline() Baseline { return s.baseline }
func (s Spec) Rule() Rule         { return s.rule }

// Cutoff returns the collection cutoff and whether one is set.
func (s Spec) Cutoff() (time.Time, bool) { return s.cutoff, s.hasCut }

func (s Spec) PhaseVocabulary() *types.Vocabulary[types.Phase] { return s.phaseVocab }
func (s Spec) StateVocabulary() *types.Vocabulary[types.State] { return s.stateVocab }

// UsingTitleholders reports whether the phase selection is exactly the
// titleholder set.
func (s Spec) UsingTitleholders() bool {
	var want int
	for _, p := range types.TitleholderPhases {
		if !s.phaseVocab.Contains(p) {
			continue
		}
		want++
		if !s.HasPhase(p) {
			return false
		}
	}
	return want > 0 && want == len(s.phases)
}

// AllPhases selects every phase of the vocabulary.
func AllPhases(v *types.Vocabulary[types.Phase]) []types.Phase {
	return v.Values()
}

// TitleholderPhases selects the titleholder phases present in v.
func TitleholderPhases(v *types.Vocabulary[types.Phase]) []types.Phase {
	var out []types.Phase
	for _, p := range v.Values() {
		if types.IsTitleholderPhase(p) {
			out = append(out, p)
		}
	}
	return out
}

// NoPhases clears the phase selection.
func NoPhases() []types.Phase { return nil }

// AllStates selects every state of the vocabulary.
func AllStates(v *types.Vocabulary[types.State]) []types.State {
	return v.Values()
}
