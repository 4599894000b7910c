package service

import (
	"context"
	"fmt"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

// Pings returns a driver's stored pings within the query range.
func (s *Service) Pings(ctx context.Context, query *model.PingQuery) ([]*model.PingRecord, error) {
	if details := query.Normalize(); len(details) > 0 {
		return nil, core.NewValidationError(details...)
	}

	records, err := s.pings.FindByDriver(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pings for driver %s: %w", query.DriverID, err)
	}

	return records, nil
}
