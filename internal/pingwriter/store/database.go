package store

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
)

// Database is the subset of *mongo.Database the ping store needs.
type Database interface {
	Name() string
	ListCollectionNames(ctx context.Context, filter any, opts ...*mongooptions.ListCollectionsOptions) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts ...*mongooptions.CreateCollectionOptions) error
	Collection(name string) Collection
}

// Collection is the subset of *mongo.Collection the ping store needs.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, document any, opts ...*mongooptions.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...*mongooptions.FindOptions) (*mongo.Cursor, error)
}

// Database returns a view of the named database bound to the connection.
// Every call resolves the live client first, so a dropped connection is
// re-established by the next request rather than reused.
func (c *Connection) Database(name string) Database {
	return &boundDatabase{conn: c, name: name}
}

type boundDatabase struct {
	conn *Connection
	name string
}

func (d *boundDatabase) Name() string { return d.name }

func (d *boundDatabase) db(ctx context.Context) (*mongo.Database, error) {
	client, err := d.conn.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(d.name), nil
}

func (d *boundDatabase) ListCollectionNames(ctx context.Context, filter any, opts ...*mongooptions.ListCollectionsOptions) ([]string, error) {
	db, err := d.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.ListCollectionNames(ctx, filter, opts...)
}

func (d *boundDatabase) CreateCollection(ctx context.Context, name string, opts ...*mongooptions.CreateCollectionOptions) error {
	db, err := d.db(ctx)
	if err != nil {
		return err
	}
	return db.CreateCollection(ctx, name, opts...)
}

func (d *boundDatabase) Collection(name string) Collection {
	return &boundCollection{db: d, name: name}
}

type boundCollection struct {
	db   *boundDatabase
	name string
}

func (c *boundCollection) Name() string { return c.name }

func (c *boundCollection) InsertOne(ctx context.Context, document any, opts ...*mongooptions.InsertOneOptions) (*mongo.InsertOneResult, error) {
	db, err := c.db.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(c.name).InsertOne(ctx, document, opts...)
}

func (c *boundCollection) Find(ctx context.Context, filter any, opts ...*mongooptions.FindOptions) (*mongo.Cursor, error) {
	db, err := c.db.db(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(c.name).Find(ctx, filter, opts...)
}
