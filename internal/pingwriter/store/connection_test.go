package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

type fakeDriver struct {
	connects    atomic.Int32
	disconnects atomic.Int32

	// gate, when set, blocks connect until closed.
	gate       chan struct{}
	connectErr error
	pingErr    error

	mu      sync.Mutex
	lastOpt *mongooptions.ClientOptions
}

func (f *fakeDriver) option() Option {
	return func(d *clientDeps) {
		d.connect = func(ctx context.Context, opts *mongooptions.ClientOptions) (*mongo.Client, error) {
			f.connects.Add(1)
			f.mu.Lock()
			f.lastOpt = opts
			f.mu.Unlock()
			if f.gate != nil {
				select {
				case <-f.gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if f.connectErr != nil {
				return nil, f.connectErr
			}
			return &mongo.Client{}, nil
		}
		d.ping = func(context.Context, *mongo.Client) error { return f.pingErr }
		d.disconnect = func(context.Context, *mongo.Client) error {
			f.disconnects.Add(1)
			return nil
		}
	}
}

func newTestConnection(f *fakeDriver) *Connection {
	opts := options.NewMongoOptions()
	opts.URI = "mongodb://localhost:27017"
	return NewConnection(opts, f.option())
}

func TestConnectSingleFlight(t *testing.T) {
	f := &fakeDriver{gate: make(chan struct{})}
	conn := newTestConnection(f)

	const n = 32
	var wg sync.WaitGroup
	clients := make([]*mongo.Client, n)
	errs := make([]error, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clients[i], errs[i] = conn.Connect(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return conn.State() == StateConnecting }, time.Second, time.Millisecond)
	// Give the remaining goroutines time to join the in-flight attempt.
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.EqualValues(t, 1, f.connects.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Same(t, clients[0], clients[i])
	}
	assert.Equal(t, StateConnected, conn.State())

	// Connected: no further I/O.
	again, err := conn.Connect(context.Background())
	require.NoError(t, err)
	assert.Same(t, clients[0], again)
	assert.EqualValues(t, 1, f.connects.Load())
}

func TestConnectFailurePropagatesThenRetriesFresh(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	f := &fakeDriver{gate: make(chan struct{}), connectErr: netErr}
	conn := newTestConnection(f)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = conn.Connect(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return conn.State() == StateConnecting }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.EqualValues(t, 1, f.connects.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, core.ErrConnection)
		assert.ErrorIs(t, err, netErr)
	}
	assert.Equal(t, StateDisconnected, conn.State())

	f.connectErr = nil
	client, err := conn.Connect(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.EqualValues(t, 2, f.connects.Load())
	assert.Equal(t, StateConnected, conn.State())
}

func TestConnectPingFailureClosesClient(t *testing.T) {
	f := &fakeDriver{pingErr: errors.New("server selection timeout")}
	conn := newTestConnection(f)

	_, err := conn.Connect(context.Background())
	require.ErrorIs(t, err, core.ErrConnection)
	assert.Equal(t, StateDisconnected, conn.State())
	assert.Eventually(t, func() bool { return f.disconnects.Load() == 1 }, time.Second, time.Millisecond)
}

func TestConnectCallerCancelDoesNotAbortAttempt(t *testing.T) {
	f := &fakeDriver{gate: make(chan struct{})}
	conn := newTestConnection(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := conn.Connect(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return conn.State() == StateConnecting }, time.Second, time.Millisecond)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, core.ErrConnection)

	close(f.gate)
	assert.Eventually(t, func() bool { return conn.State() == StateConnected }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, f.connects.Load())
}

func TestDisconnectIdempotent(t *testing.T) {
	f := &fakeDriver{}
	conn := newTestConnection(f)

	require.NoError(t, conn.Disconnect(context.Background()))
	assert.Equal(t, StateDisconnected, conn.State())
	assert.EqualValues(t, 0, f.disconnects.Load())

	_, err := conn.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Disconnect(context.Background()))
	require.NoError(t, conn.Disconnect(context.Background()))
	assert.EqualValues(t, 1, f.disconnects.Load())
	assert.Equal(t, StateDisconnected, conn.State())

	_, err = conn.Client(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.connects.Load())
}

func TestDisconnectWhileConnecting(t *testing.T) {
	f := &fakeDriver{gate: make(chan struct{})}
	conn := newTestConnection(f)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Connect(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return conn.State() == StateConnecting }, time.Second, time.Millisecond)

	require.NoError(t, conn.Disconnect(context.Background()))
	close(f.gate)

	err := <-done
	assert.ErrorIs(t, err, errClosedWhileConnecting)
	assert.Equal(t, StateDisconnected, conn.State())
	assert.Eventually(t, func() bool { return f.disconnects.Load() == 1 }, time.Second, time.Millisecond)
}

func TestConnectionLoss(t *testing.T) {
	f := &fakeDriver{}
	conn := newTestConnection(f)

	var (
		mu     sync.Mutex
		states []State
	)
	conn.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	first, err := conn.Connect(context.Background())
	require.NoError(t, err)

	// The monitors registered with the first attempt.
	f.mu.Lock()
	opts := f.lastOpt
	f.mu.Unlock()
	require.NotNil(t, opts.PoolMonitor)
	require.NotNil(t, opts.ServerMonitor)

	opts.PoolMonitor.Event(&event.PoolEvent{Type: event.PoolClosedEvent, Address: "localhost:27017"})
	assert.Equal(t, StateDisconnected, conn.State())
	assert.Eventually(t, func() bool { return f.disconnects.Load() == 1 }, time.Second, time.Millisecond)

	second, err := conn.Client(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, f.connects.Load())

	// A late notification from the first client must not drop the second.
	opts.ServerMonitor.TopologyDescriptionChanged(&event.TopologyDescriptionChangedEvent{
		NewDescription: description.Topology{Servers: []description.Server{{Kind: description.Unknown}}},
	})
	assert.Equal(t, StateConnected, conn.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected, StateConnecting, StateConnected}, states)
}

func TestServerMonitorDetectsUnreachableTopology(t *testing.T) {
	f := &fakeDriver{}
	conn := newTestConnection(f)

	_, err := conn.Connect(context.Background())
	require.NoError(t, err)

	f.mu.Lock()
	opts := f.lastOpt
	f.mu.Unlock()

	opts.ServerMonitor.TopologyDescriptionChanged(&event.TopologyDescriptionChangedEvent{
		NewDescription: description.Topology{Servers: []description.Server{{Kind: description.Standalone}}},
	})
	assert.Equal(t, StateConnected, conn.State())

	opts.ServerMonitor.TopologyDescriptionChanged(&event.TopologyDescriptionChangedEvent{
		NewDescription: description.Topology{Servers: []description.Server{{Kind: description.Unknown}}},
	})
	assert.Equal(t, StateDisconnected, conn.State())
}

func TestClientOptions(t *testing.T) {
	f := &fakeDriver{}
	conn := newTestConnection(f)

	_, err := conn.Connect(context.Background())
	require.NoError(t, err)

	f.mu.Lock()
	opts := f.lastOpt
	f.mu.Unlock()

	require.NotNil(t, opts.MaxPoolSize)
	assert.EqualValues(t, 100, *opts.MaxPoolSize)
	require.NotNil(t, opts.MinPoolSize)
	assert.EqualValues(t, 20, *opts.MinPoolSize)
	require.NotNil(t, opts.ServerSelectionTimeout)
	assert.Equal(t, 5*time.Second, *opts.ServerSelectionTimeout)
	require.NotNil(t, opts.SocketTimeout)
	assert.Equal(t, 45*time.Second, *opts.SocketTimeout)
	require.NotNil(t, opts.WriteConcern)
	assert.Equal(t, 1, opts.WriteConcern.W)
	require.NotNil(t, opts.WriteConcern.Journal)
	assert.False(t, *opts.WriteConcern.Journal)
}
