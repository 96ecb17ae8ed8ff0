package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"barstock/internal/core/apperror"
)

type sample struct {
	Name  string    `validate:"required"`
	Kind  string    `validate:"oneof=A B"`
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
}

func TestStruct(t *testing.T) {
	now := time.Now()

	assert.NoError(t, Struct(sample{Name: "x", Kind: "A", Start: now, End: now}))

	err := Struct(sample{Kind: "A", Start: now, End: now})
	ae, ok := apperror.AsAppError(err)
	if assert.True(t, ok) {
		assert.Equal(t, apperror.CodeValidation, ae.Code)
		assert.Equal(t, "Name", ae.Details["field"])
	}

	err = Struct(sample{Name: "x", Kind: "A", Start: now, End: now.Add(-time.Hour)})
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), "End must not be before Start")
}
