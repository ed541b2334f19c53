package aggregator

import (
	"errors"
	"fmt"

	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/types"
)

var (
	// ErrEmptyInput accompanies a valid, empty Result when no record survives
	// the state filter.
	ErrEmptyInput = errors.New("no records after filtering")
	// ErrDivisionByZero is returned when a percentage is asked against a zero
	// baseline total.
	ErrDivisionByZero = errors.New("division by zero baseline")
	// ErrInvalidFilter is filter.ErrInvalidFilter, re-exported for callers
	// that only import this package.
	ErrInvalidFilter = filter.ErrInvalidFilter
	// ErrUnknownCategory is the target of every *UnknownCategoryError.
	ErrUnknownCategory = errors.New("unknown category")
)

// UnknownCategoryError reports a record whose phase or state is outside the
// declared vocabulary.
type UnknownCategoryError struct {
	RecordID string
	Field    string
	Value    string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("record %s: unknown %s %q", e.RecordID, e.Field, e.Value)
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

func checkCategories(r types.Record, spec filter.Spec) error {
	if !spec.PhaseVocabulary().Contains(r.Phase) {
		return &UnknownCategoryError{RecordID: r.ID, Field: "phase", Value: string(r.Phase)}
	}
	if !spec.StateVocabulary().Contains(r.State) {
		return &UnknownCategoryError{RecordID: r.ID, Field: "state", Value: string(r.State)}
	}
	return nil
}

// ExcludeUnknown splits records into those with known categories and one
// error per excluded record.
func ExcludeUnknown(records []types.Record, spec filter.Spec) ([]types.Record, []error) {
	kept := make([]types.Record, 0, len(records))
	var errs []error
	for _, r := range records {
		if err := checkCategories(r, spec); err != nil {
			errs = append(errs, err)
			continue
		}
		kept = append(kept, r)
	}
	return kept, errs
}
