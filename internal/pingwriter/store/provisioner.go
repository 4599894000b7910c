package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/pkg/log"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

// Time-series shape of the ping collection.
const (
	TimeField   = "timestamp"
	MetaField   = "driverId"
	Granularity = "seconds"
)

// ErrNotInitialized is returned when the ping collection is requested before
// Initialize succeeded.
var ErrNotInitialized = fmt.Errorf("%w: ping collection not initialized", core.ErrStoreNotReady)

// Provisioner makes sure the ping collection exists with its time-series
// shape and retention, and holds the handle afterwards.
type Provisioner struct {
	opts       *options.PingOptions
	collection atomic.Pointer[Collection]
}

// NewProvisioner creates a Provisioner with no collection handle.
func NewProvisioner(opts *options.PingOptions) *Provisioner {
	return &Provisioner{opts: opts}
}

// Initialize creates the ping collection when it is absent and caches the
// handle. An existing collection is never altered. Safe to call on every start.
func (p *Provisioner) Initialize(ctx context.Context, db Database) error {
	name := p.opts.Collection

	found, err := exists(ctx, db, name)
	if err != nil {
		return err
	}

	if !found {
		log.Info("Creating time series collection", "collection", name, "retentionDays", p.opts.RetentionDays)

		if err := db.CreateCollection(ctx, name, p.createOptions()); err != nil {
			return fmt.Errorf("failed to create time series collection: %w", err)
		}

		log.Info("Time series collection created", "collection", name, "retentionDays", p.opts.RetentionDays)
	} else {
		log.Info("Using existing collection", "collection", name)
	}

	coll := db.Collection(name)
	p.collection.Store(&coll)

	log.Info("Ping collection initialized", "database", db.Name(), "collection", name)
	return nil
}

// Open caches the handle of an existing ping collection without creating or
// altering anything. It returns ErrNotInitialized when the collection is absent.
func (p *Provisioner) Open(ctx context.Context, db Database) error {
	name := p.opts.Collection

	found, err := exists(ctx, db, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: collection %q does not exist in %q", ErrNotInitialized, name, db.Name())
	}

	coll := db.Collection(name)
	p.collection.Store(&coll)
	return nil
}

func exists(ctx context.Context, db Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	return len(names) > 0, nil
}

func (p *Provisioner) createOptions() *mongooptions.CreateCollectionOptions {
	tso := mongooptions.TimeSeries().
		SetTimeField(TimeField).
		SetMetaField(MetaField).
		SetGranularity(Granularity)

	return mongooptions.CreateCollection().
		SetTimeSeriesOptions(tso).
		SetExpireAfterSeconds(int64(p.opts.Retention().Seconds()))
}

// Collection returns the provisioned handle, or ErrNotInitialized. It never
// creates anything on its own.
func (p *Provisioner) Collection() (Collection, error) {
	coll := p.collection.Load()
	if coll == nil {
		return nil, ErrNotInitialized
	}
	return *coll, nil
}

// Initialized reports whether Initialize has completed.
func (p *Provisioner) Initialized() bool {
	return p.collection.Load() != nil
}
