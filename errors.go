package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrModel indicates a task could not evaluate one of its functions:
	// out-of-domain input or a non-finite result.
	ErrModel = errors.New("model evaluation failed")
	// ErrNumeric indicates a statistic could not be computed, e.g. a
	// pseudo-inverse of a matrix with non-finite elements.
	ErrNumeric = errors.New("numeric failure")
	// ErrDimension indicates task, ensemble or result dimensions disagree.
	ErrDimension = errors.New("dimension mismatch")
)

// StepError is returned when a filter step fails.
// Sample is -1 when the failure is not tied to a single ensemble member.
type StepError struct {
	Step   int
	Sample int
	Time   float64
	Err    error
}

func (e *StepError) Error() string {
	if e.Sample < 0 {
		return fmt.Sprintf("step %d (t=%g): %v", e.Step, e.Time, e.Err)
	}
	return fmt.Sprintf("step %d (t=%g) sample %d: %v", e.Step, e.Time, e.Sample, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
