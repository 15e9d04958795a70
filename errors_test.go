package filter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepError(t *testing.T) {
	assert := assert.New(t)

	err := &StepError{Step: 3, Sample: 7, Time: 1.5, Err: fmt.Errorf("%w: altitude below zero", ErrModel)}
	assert.True(errors.Is(err, ErrModel))
	assert.False(errors.Is(err, ErrNumeric))
	assert.Equal("step 3 (t=1.5) sample 7: model evaluation failed: altitude below zero", err.Error())

	err = &StepError{Step: 2, Sample: -1, Time: 2, Err: ErrNumeric}
	assert.True(errors.Is(err, ErrNumeric))
	assert.Equal("step 2 (t=2): numeric failure", err.Error())

	var se *StepError
	wrapped := fmt.Errorf("run failed: %w", err)
	assert.True(errors.As(wrapped, &se))
	assert.Equal(2, se.Step)
}
