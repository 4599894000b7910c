package mqtt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	pkgmqtt "github.com/autopeer-io/drivertrack/pkg/mqtt"
	"github.com/autopeer-io/drivertrack/pkg/mqtt/topic"
)

type memRepo struct {
	mu      sync.Mutex
	records []*model.PingRecord
	err     error
}

func (m *memRepo) Insert(_ context.Context, rec *model.PingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memRepo) FindByDriver(context.Context, *model.PingQuery) ([]*model.PingRecord, error) {
	return nil, nil
}

func (m *memRepo) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeClient records subscriptions and lets tests deliver messages.
type fakeClient struct {
	mu       sync.Mutex
	handlers map[string]pkgmqtt.MessageHandler
	awaitErr error
	unsubErr error
	stopped  bool

	// calls records Unsubscribe and Disconnect in order.
	calls []string
}

var _ pkgmqtt.Client = (*fakeClient)(nil)

func (f *fakeClient) Start(context.Context) error { return nil }
func (f *fakeClient) Disconnect(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.calls = append(f.calls, "disconnect")
}
func (f *fakeClient) Publish(context.Context, string, int, bool, []byte) error { return nil }
func (f *fakeClient) Subscribe(_ context.Context, t string, _ int, h pkgmqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = map[string]pkgmqtt.MessageHandler{}
	}
	f.handlers[t] = h
	return nil
}
func (f *fakeClient) Unsubscribe(_ context.Context, t string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "unsubscribe "+t)
	return f.unsubErr
}
func (f *fakeClient) AwaitConnection(context.Context) error { return f.awaitErr }
func (f *fakeClient) IsConnected() bool                     { return true }

func (f *fakeClient) handler(t string) pkgmqtt.MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[t]
}

func newTestServer(t *testing.T, repo *memRepo, client *fakeClient) *Server {
	t.Helper()
	v, err := model.NewValidator()
	require.NoError(t, err)
	return NewServer(client, topic.NewTopicBuilder("drivertrack/v1"), "ping-writer", service.New(repo, v))
}

func TestStartSubscribesAndIngests(t *testing.T) {
	repo := &memRepo{}
	client := &fakeClient{}
	srv := newTestServer(t, repo, client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	const filter = "$share/ping-writer/drivertrack/v1/drivers/+/ping"
	require.Eventually(t, func() bool { return client.handler(filter) != nil }, time.Second, time.Millisecond)

	client.handler(filter)(context.Background(), "drivertrack/v1/drivers/d7/ping",
		[]byte(`{"latitude":10,"longitude":20,"timestamp":1700000000}`))
	require.Equal(t, 1, repo.len())
	assert.Equal(t, "d7", repo.records[0].DriverID)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, client.stopped)
	assert.Equal(t, []string{"unsubscribe " + filter, "disconnect"}, client.calls)
}

func TestStartUnsubscribeFailureStillDisconnects(t *testing.T) {
	client := &fakeClient{unsubErr: errors.New("not connected")}
	srv := newTestServer(t, &memRepo{}, client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	const filter = "$share/ping-writer/drivertrack/v1/drivers/+/ping"
	require.Eventually(t, func() bool { return client.handler(filter) != nil }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"unsubscribe " + filter, "disconnect"}, client.calls)
}

func TestHandlePingDrops(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"bad topic", "drivertrack/v1/vehicles/d1/ping", `{"latitude":10,"longitude":20,"timestamp":1700000000}`},
		{"malformed", "drivertrack/v1/drivers/d1/ping", `{"latitude":`},
		{"driver mismatch", "drivertrack/v1/drivers/d1/ping", `{"driverId":"d2","latitude":10,"longitude":20,"timestamp":1700000000}`},
		{"invalid", "drivertrack/v1/drivers/d1/ping", `{"latitude":100,"longitude":20,"timestamp":1700000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{}
			srv := newTestServer(t, repo, &fakeClient{})

			srv.handlePing(context.Background(), tt.topic, []byte(tt.payload))
			assert.Equal(t, 0, repo.len())
		})
	}
}

func TestHandlePingStoreFailure(t *testing.T) {
	repo := &memRepo{err: errors.New("socket timeout")}
	srv := newTestServer(t, repo, &fakeClient{})

	srv.handlePing(context.Background(), "drivertrack/v1/drivers/d1/ping",
		[]byte(`{"driverId":"d1","latitude":10,"longitude":20,"timestamp":1700000000}`))
	assert.Equal(t, 0, repo.len())
}

func TestStartCancelledBeforeConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{awaitErr: context.Canceled}
	srv := newTestServer(t, &memRepo{}, client)

	assert.NoError(t, srv.Start(ctx))
	assert.True(t, client.stopped)
	assert.Equal(t, []string{"disconnect"}, client.calls)
}
