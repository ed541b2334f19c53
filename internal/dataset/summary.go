package dataset

import (
	"sigmine-dashboard/internal/logger"
	"sigmine-dashboard/internal/types"
)

// Summary describes a loaded table: what the filter widgets can offer and how
// much of it falls outside the declared vocabularies.
type Summary struct {
	Records   int            `json:"records"`
	Distinct  int            `json:"distinct_processes"`
	Companies int            `json:"companies"`
	AreaHa    float64        `json:"area_ha"`
	Phases    []types.Phase  `json:"phases"`
	States    []types.State  `json:"states"`
	ByPhase   map[string]int `json:"by_phase"`
	ByState   map[string]int `json:"by_state"`
	// Unknown counts records whose phase or state is not declared.
	Unknown int `json:"unknown"`
}

// Summarize inspects records against the given vocabularies. The phases and
// states listed are the ones present in the data, in vocabulary order; a
// process listed under several phases or states counts under each. log may
// be nil.
func Summarize(records []types.Record, phases *types.Vocabulary[types.Phase], states *types.Vocabulary[types.State], log *logger.Logger) Summary {
	s := Summary{
		Records: len(records),
		ByPhase: map[string]int{},
		ByState: map[string]int{},
	}
	for _, r := range records {
		if s.ByPhase[string(r.Phase)] == 0 {
			s.Phases = append(s.Phases, r.Phase)
		}
		if s.ByState[string(r.State)] == 0 {
			s.States = append(s.States, r.State)
		}
		s.ByPhase[string(r.Phase)]++
		s.ByState[string(r.State)]++
		if !phases.Contains(r.Phase) || !states.Contains(r.State) {
			s.Unknown++
		}
	}
	companies := map[string]struct{}{}
	for _, r := range types.Dedupe(records) {
		s.Distinct++
		s.AreaHa += r.AreaHa
		companies[r.Company] = struct{}{}
	}
	s.Companies = len(companies)
	phases.Sort(s.Phases)
	states.Sort(s.States)

	if log == nil {
		return s
	}
	log.Component("dataset.summary").WithFields(map[string]interface{}{
		"records":   s.Records,
		"distinct":  s.Distinct,
		"companies": s.Companies,
		"unknown":   s.Unknown,
	}).Info("dataset summarization complete")
	return s
}
