package scoring

import (
	"fmt"
	"strings"
)

// Problem describes why a required indicator was rejected.
type Problem string

const (
	ProblemMissing    Problem = "missing"
	ProblemNotBoolean Problem = "not_boolean"
)

// Violation is one rejected indicator.
type Violation struct {
	Field   Indicator `json:"field"`
	Problem Problem   `json:"problem"`
}

func (v Violation) String() string {
	if v.Problem == ProblemMissing {
		return fmt.Sprintf("missing required feature '%s'", v.Field)
	}
	return fmt.Sprintf("feature '%s' must be a boolean value", v.Field)
}

// ValidationError carries every violation found in a record.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return "invalid observation set: " + strings.Join(e.Details(), "; ")
}

// Details returns one human-readable line per violation.
func (e *ValidationError) Details() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.String()
	}
	return out
}

// validate checks a decoded record in a single pass. Keys outside the
// required set are ignored.
func validate(record map[string]any) (ObservationSet, error) {
	var (
		obs        ObservationSet
		violations []Violation
	)

	for _, ind := range indicators {
		raw, ok := record[string(ind)]
		if !ok {
			violations = append(violations, Violation{Field: ind, Problem: ProblemMissing})
			continue
		}
		b, ok := raw.(bool)
		if !ok {
			violations = append(violations, Violation{Field: ind, Problem: ProblemNotBoolean})
			continue
		}
		obs.set(ind, b)
	}

	if len(violations) > 0 {
		return ObservationSet{}, &ValidationError{Violations: violations}
	}
	return obs, nil
}
