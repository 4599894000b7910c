package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

var (
	// ErrStoreNotReady means the ping collection was used before provisioning
	// completed. It is a configuration fault, not a transient one.
	ErrStoreNotReady = errors.New("ping store not ready")

	// ErrConnection means the backing store could not be reached.
	ErrConnection = errors.New("store connection failed")

	// ErrStoreWrite means an insert failed after the connection was established.
	ErrStoreWrite = errors.New("store write failed")
)

// ValidationError carries the field-level problems found in client input.
// It never reaches the store layer.
type ValidationError struct {
	Details []model.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		msgs = append(msgs, fmt.Sprintf("%s: %s", d.Field(), d.Message))
	}
	return "invalid ping: " + strings.Join(msgs, "; ")
}

// NewValidationError wraps field errors into a *ValidationError.
func NewValidationError(details ...model.FieldError) *ValidationError {
	return &ValidationError{Details: details}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
