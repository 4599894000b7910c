package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
)

// fakeDatabase is an in-memory Database recording every call.
type fakeDatabase struct {
	mu sync.Mutex

	collections map[string]*fakeCollection
	listCalls   int
	created     []*mongooptions.CreateCollectionOptions

	listErr   error
	createErr error
}

func newFakeDatabase(existing ...string) *fakeDatabase {
	db := &fakeDatabase{collections: map[string]*fakeCollection{}}
	for _, name := range existing {
		db.collections[name] = &fakeCollection{name: name}
	}
	return db
}

func (d *fakeDatabase) Name() string { return "drivers_tracking" }

func (d *fakeDatabase) ListCollectionNames(_ context.Context, filter any, _ ...*mongooptions.ListCollectionsOptions) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listCalls++
	if d.listErr != nil {
		return nil, d.listErr
	}

	var want string
	for _, e := range filter.(bson.D) {
		if e.Key == "name" {
			want = e.Value.(string)
		}
	}

	var names []string
	for name := range d.collections {
		if want == "" || name == want {
			names = append(names, name)
		}
	}
	return names, nil
}

func (d *fakeDatabase) CreateCollection(_ context.Context, name string, opts ...*mongooptions.CreateCollectionOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return d.createErr
	}
	d.created = append(d.created, opts...)
	d.collections[name] = &fakeCollection{name: name}
	return nil
}

func (d *fakeDatabase) Collection(name string) Collection {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.collections[name]
	if !ok {
		c = &fakeCollection{name: name}
		d.collections[name] = c
	}
	return c
}

type fakeCollection struct {
	mu sync.Mutex

	name      string
	docs      []any
	insertErr error
	findErr   error

	lastFilter any
	lastFind   *mongooptions.FindOptions
}

func (c *fakeCollection) Name() string { return c.name }

func (c *fakeCollection) InsertOne(_ context.Context, doc any, _ ...*mongooptions.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{}, nil
}

func (c *fakeCollection) Find(_ context.Context, filter any, opts ...*mongooptions.FindOptions) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFilter = filter
	if len(opts) > 0 {
		c.lastFind = opts[0]
	}
	if c.findErr != nil {
		return nil, c.findErr
	}
	return mongo.NewCursorFromDocuments(c.docs, nil, nil)
}

func (c *fakeCollection) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}
