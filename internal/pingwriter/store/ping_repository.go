package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

var _ core.PingRepository = (*PingRepository)(nil)

// PingRepository reads and writes ping records through the provisioned
// collection.
type PingRepository struct {
	provisioner *Provisioner
}

// NewPingRepository creates a repository over p. Writes fail with
// ErrNotInitialized until p.Initialize succeeds.
func NewPingRepository(p *Provisioner) *PingRepository {
	return &PingRepository{provisioner: p}
}

func (r *PingRepository) Insert(ctx context.Context, record *model.PingRecord) error {
	coll, err := r.provisioner.Collection()
	if err != nil {
		return err
	}

	if _, err := coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreWrite, err)
	}

	return nil
}

func (r *PingRepository) FindByDriver(ctx context.Context, query *model.PingQuery) ([]*model.PingRecord, error) {
	coll, err := r.provisioner.Collection()
	if err != nil {
		return nil, err
	}

	filter := bson.D{
		{Key: MetaField, Value: query.DriverID},
		{Key: TimeField, Value: bson.D{
			{Key: "$gte", Value: query.From},
			{Key: "$lte", Value: query.To},
		}},
	}
	opts := mongooptions.Find().
		SetSort(bson.D{{Key: TimeField, Value: 1}}).
		SetLimit(query.Limit).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pings: %w", err)
	}

	records := make([]*model.PingRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode pings: %w", err)
	}

	return records, nil
}
