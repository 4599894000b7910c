package service

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pkg/metrics"
)

// Source labels where a ping entered the system.
type Source string

const (
	SourceHTTP Source = "http"
	SourceMQTT Source = "mqtt"
)

// Ingest validates one ping and writes exactly one record for it.
//
// Invalid input returns *core.ValidationError without touching the store.
// Store failures are returned as-is from the repository, wrapping
// core.ErrStoreNotReady or core.ErrStoreWrite. Nothing is retried.
func (s *Service) Ingest(ctx context.Context, src Source, ping *model.Ping) (err error) {
	start := time.Now()
	defer func() {
		metrics.IngestLatency.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
		metrics.PingsIngested.WithLabelValues(string(src), ingestResult(err)).Inc()
	}()

	if details := s.validator.Validate(ping); len(details) > 0 {
		return core.NewValidationError(details...)
	}

	record := model.NewPingRecord(ping)
	if err := s.pings.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to ingest ping for driver %s: %w", record.DriverID, err)
	}

	return nil
}

func ingestResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case core.IsValidation(err):
		return "invalid"
	default:
		return "failed"
	}
}
