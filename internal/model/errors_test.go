package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindError_IsMatchesSentinel(t *testing.T) {
	err := NewInvalidState("ledger.FinalizeEvent", fmt.Errorf("already finalized"))
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrConfigError))
}

func TestKindError_UnwrapExposesUnderlying(t *testing.T) {
	underlying := errors.New("boom")
	err := NewCapabilityError("executor.Run", underlying)
	assert.Equal(t, underlying, errors.Unwrap(err))
}

func TestKindError_ErrorMessageIncludesOp(t *testing.T) {
	err := NewPatternError("gates.Compile", fmt.Errorf("bad regex"))
	assert.Contains(t, err.Error(), "gates.Compile")
	assert.Contains(t, err.Error(), "bad regex")
}
