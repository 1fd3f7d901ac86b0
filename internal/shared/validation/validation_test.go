package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "wego-server/internal/shared/errors"
)

type sample struct {
	Name  string `validate:"required"`
	Count int    `validate:"min=2,max=4"`
	Mode  string `validate:"omitempty,oneof=A B"`
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "x", Count: 3}))
	assert.NoError(t, Struct(&sample{Name: "x", Count: 2, Mode: "B"}))
}

func TestStructListsEveryProblem(t *testing.T) {
	err := Struct(sample{Count: 9, Mode: "C"})

	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
	assert.Contains(t, err.Error(), "Name is required")
	assert.Contains(t, err.Error(), "Count must be at most 4")
	assert.Contains(t, err.Error(), "Mode must be one of [A B]")
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := Struct(42)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}
