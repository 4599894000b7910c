package core

import (
	"context"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

// PingRepository persists and reads ping records.
// In drivertrack, this is implemented by the Mongo store adapter.
type PingRepository interface {
	// Insert writes exactly one record. Failures wrap ErrStoreWrite, or
	// ErrStoreNotReady when the collection was never provisioned.
	Insert(ctx context.Context, record *model.PingRecord) error

	// FindByDriver returns a driver's records within [From, To], oldest first.
	FindByDriver(ctx context.Context, query *model.PingQuery) ([]*model.PingRecord, error)
}

// PingValidator checks inbound pings against the ping shape.
type PingValidator interface {
	// Validate returns nil when the ping is acceptable.
	Validate(ping *model.Ping) []model.FieldError
}
