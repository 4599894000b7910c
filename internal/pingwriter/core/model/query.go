package model

import (
	"fmt"
	"time"
)

const (
	DefaultQueryLimit = 1000
	MaxQueryLimit     = 10000
)

// PingQuery selects one driver's pings within an inclusive time range.
type PingQuery struct {
	DriverID string
	From     time.Time
	To       time.Time
	Limit    int64
}

// Normalize fills defaults and checks bounds.
func (q *PingQuery) Normalize() []FieldError {
	var errs []FieldError

	if q.DriverID == "" {
		errs = append(errs, FieldError{Code: CodeInvalidType, Path: []string{"driverId"}, Message: "Required"})
	}
	if q.To.IsZero() {
		q.To = time.Now().UTC()
	}
	if q.From.After(q.To) {
		errs = append(errs, FieldError{Code: CodeCustom, Path: []string{"from"}, Message: "from must not be after to"})
	}

	switch {
	case q.Limit == 0:
		q.Limit = DefaultQueryLimit
	case q.Limit < 0:
		errs = append(errs, FieldError{Code: CodeTooSmall, Path: []string{"limit"}, Message: "limit must be positive"})
	case q.Limit > MaxQueryLimit:
		errs = append(errs, FieldError{
			Code:    CodeTooBig,
			Path:    []string{"limit"},
			Message: fmt.Sprintf("limit must be at most %d", MaxQueryLimit),
		})
	}

	return errs
}
