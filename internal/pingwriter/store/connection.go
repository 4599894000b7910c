package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/ptr"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pkg/metrics"
	"github.com/autopeer-io/drivertrack/pkg/log"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

const connectKey = "connect"

var errClosedWhileConnecting = errors.New("connection closed while connecting")

// Option customizes internal client dependencies (primarily for tests).
type Option func(*clientDeps)

type clientDeps struct {
	connect    func(context.Context, *mongooptions.ClientOptions) (*mongo.Client, error)
	ping       func(context.Context, *mongo.Client) error
	disconnect func(context.Context, *mongo.Client) error
}

func defaultDeps() clientDeps {
	return clientDeps{
		connect: func(ctx context.Context, opts *mongooptions.ClientOptions) (*mongo.Client, error) {
			return mongo.Connect(ctx, opts)
		},
		ping: func(ctx context.Context, client *mongo.Client) error {
			return client.Ping(ctx, readpref.Primary())
		},
		disconnect: func(ctx context.Context, client *mongo.Client) error {
			return client.Disconnect(ctx)
		},
	}
}

// Connection owns the single physical client to the backing store.
//
// Concurrent first callers of Connect share one in-flight attempt. The client
// pointer, its generation and the state machine only change together under mu,
// so readers never observe a connected state without a client.
type Connection struct {
	opts *options.MongoOptions
	deps clientDeps

	group singleflight.Group

	mu     sync.RWMutex
	client *mongo.Client
	// gen identifies the client of the latest attempt. Driver notifications
	// carry the generation they were registered with; older ones are ignored.
	gen   uint64
	state *stateMachine

	listenersMu sync.RWMutex
	listeners   []func(State)
}

// NewConnection creates a disconnected Connection. Pool settings are fixed here.
func NewConnection(opts *options.MongoOptions, o ...Option) *Connection {
	c := &Connection{
		opts: opts,
		deps: defaultDeps(),
	}
	for _, fn := range o {
		fn(&c.deps)
	}
	c.state = newStateMachine(c.notify)
	return c
}

// OnStateChange registers fn to be called on every state transition.
// fn runs while the connection is locked and must not call back into it.
func (c *Connection) OnStateChange(fn func(State)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Connection) notify(s State) {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	for _, fn := range c.listeners {
		fn(s)
	}
}

// State returns the current connection state.
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State(c.state.Current())
}

// Connect returns the live client, establishing it if needed.
//
// A caller whose ctx ends stops waiting, but the shared attempt keeps running
// for the other callers, bounded by the server selection and socket timeouts.
// A failed attempt is reported to every joined caller and is not retried; the
// next call starts a fresh one.
func (c *Connection) Connect(ctx context.Context) (*mongo.Client, error) {
	if client := c.live(); client != nil {
		return client, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(connectKey, func() (any, error) {
		return c.connect(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, ctx.Err())
	}
}

// Client returns the live client, reconnecting transparently when the
// connection is not established.
func (c *Connection) Client(ctx context.Context) (*mongo.Client, error) {
	return c.Connect(ctx)
}

// Disconnect closes the physical client if there is one. It is safe to call
// in any state.
func (c *Connection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.gen++
	if c.state.Can(EventClose) {
		if err := c.state.fire(EventClose); err != nil {
			log.Error(err, "Unexpected store state transition", "event", EventClose)
		}
	}
	c.mu.Unlock()

	if client == nil {
		return nil
	}

	log.Info("Disconnecting from store")
	if err := c.deps.disconnect(ctx, client); err != nil {
		return fmt.Errorf("failed to disconnect from store: %w", err)
	}
	log.Info("Store connection closed")
	return nil
}

func (c *Connection) live() *mongo.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// connect runs one physical attempt. Only the singleflight leader calls it.
func (c *Connection) connect(ctx context.Context) (*mongo.Client, error) {
	c.mu.Lock()
	if c.client != nil {
		client := c.client
		c.mu.Unlock()
		return client, nil
	}
	c.gen++
	gen := c.gen
	if err := c.state.fire(EventConnect); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}
	c.mu.Unlock()

	log.Info("Connecting to store", "database", c.opts.Database,
		"maxPoolSize", c.opts.MaxPoolSize, "minPoolSize", c.opts.MinPoolSize)
	start := time.Now()

	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout())
	defer cancel()

	client, err := c.deps.connect(attemptCtx, c.clientOptions(gen))
	if err == nil {
		if err = c.deps.ping(attemptCtx, client); err != nil {
			c.closeInBackground(client)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Disconnect ran while the attempt was in flight and already moved the
	// state; the new client is not published.
	if c.gen != gen {
		if err == nil {
			c.closeInBackground(client)
			err = errClosedWhileConnecting
		}
		metrics.StoreConnectAttempts.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}

	if err != nil {
		metrics.StoreConnectAttempts.WithLabelValues("failure").Inc()
		if ferr := c.state.fire(EventFail); ferr != nil {
			log.Error(ferr, "Unexpected store state transition", "event", EventFail)
		}
		log.Error(err, "Store connection failed", "elapsed", time.Since(start))
		return nil, fmt.Errorf("%w: %w", core.ErrConnection, err)
	}

	c.client = client
	if ferr := c.state.fire(EventEstablished); ferr != nil {
		log.Error(ferr, "Unexpected store state transition", "event", EventEstablished)
	}
	metrics.StoreConnectAttempts.WithLabelValues("success").Inc()
	log.Info("Store connected", "elapsed", time.Since(start))

	return client, nil
}

// markLost drops the client of generation gen after the driver reported it
// unusable. The next caller reconnects.
func (c *Connection) markLost(gen uint64, reason string) {
	c.mu.Lock()
	if gen != c.gen || c.client == nil {
		c.mu.Unlock()
		return
	}
	stale := c.client
	c.client = nil
	c.gen++
	if err := c.state.fire(EventLose); err != nil {
		log.Error(err, "Unexpected store state transition", "event", EventLose)
	}
	c.mu.Unlock()

	log.Warn("Store connection lost", "reason", reason)
	c.closeInBackground(stale)
}

// closeInBackground disconnects a client that is no longer served. It never
// blocks the caller, which may be a driver callback.
func (c *Connection) closeInBackground(client *mongo.Client) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.SocketTimeout)
		defer cancel()
		if err := c.deps.disconnect(ctx, client); err != nil {
			log.Debug("Failed to close stale store client", "error", err)
		}
	}()
}

func (c *Connection) clientOptions(gen uint64) *mongooptions.ClientOptions {
	return mongooptions.Client().
		ApplyURI(c.opts.URI).
		SetMaxPoolSize(c.opts.MaxPoolSize).
		SetMinPoolSize(c.opts.MinPoolSize).
		SetMaxConnIdleTime(c.opts.MaxIdleTime).
		SetServerSelectionTimeout(c.opts.ServerSelectionTimeout).
		SetSocketTimeout(c.opts.SocketTimeout).
		SetWriteConcern(&writeconcern.WriteConcern{W: 1, Journal: ptr.To(false)}).
		SetPoolMonitor(c.poolMonitor(gen)).
		SetServerMonitor(c.serverMonitor(gen)).
		SetLoggerOptions(mongooptions.Logger().SetSink(log.Logr().GetSink()))
}

func (c *Connection) poolMonitor(gen uint64) *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			if e.Type == event.PoolClosedEvent {
				c.markLost(gen, "connection pool closed for "+e.Address)
			}
		},
	}
}

func (c *Connection) serverMonitor(gen uint64) *event.ServerMonitor {
	return &event.ServerMonitor{
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			if !hasKnownServer(e.NewDescription) {
				c.markLost(gen, "no reachable servers")
			}
		},
	}
}

func hasKnownServer(t description.Topology) bool {
	for _, s := range t.Servers {
		if s.Kind != description.Unknown {
			return true
		}
	}
	return false
}
