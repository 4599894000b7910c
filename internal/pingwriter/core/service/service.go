package service

import (
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
)

// Service implements the ping use cases: ingestion and range reads.
type Service struct {
	pings     core.PingRepository
	validator core.PingValidator
}

// New creates a new instance of the ping writer core service.
func New(pings core.PingRepository, validator core.PingValidator) *Service {
	return &Service{
		pings:     pings,
		validator: validator,
	}
}
