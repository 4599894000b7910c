package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError(
		model.FieldError{Code: model.CodeTooBig, Path: []string{"latitude"}, Message: "must be at most 90"},
		model.FieldError{Code: model.CodeInvalidType, Path: []string{"driverId"}, Message: "is required"},
	)

	assert.Equal(t, "invalid ping: latitude: must be at most 90; driverId: is required", err.Error())
	assert.True(t, IsValidation(fmt.Errorf("ingest: %w", err)))
	assert.False(t, IsValidation(ErrStoreWrite))
}
