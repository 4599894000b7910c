package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

type nopRepo struct{}

func (nopRepo) Insert(context.Context, *model.PingRecord) error { return nil }
func (nopRepo) FindByDriver(context.Context, *model.PingQuery) ([]*model.PingRecord, error) {
	return nil, nil
}

func testConfig() *Config {
	return &Config{
		HttpOptions: options.NewHttpOptions(),
		GrpcOptions: options.NewGrpcOptions(),
		MqttOptions: options.NewMqttOptions(),
	}
}

func testService(t *testing.T) *service.Service {
	t.Helper()
	v, err := model.NewValidator()
	require.NoError(t, err)
	return service.New(nopRepo{}, v)
}

func TestNewManagerOptionalServers(t *testing.T) {
	cfg := testConfig()
	m, err := NewManager(cfg, testService(t), nil)
	require.NoError(t, err)
	assert.Len(t, m.servers, 2)
	assert.NotNil(t, m.health)

	cfg.GrpcOptions.Addr = ""
	m, err = NewManager(cfg, testService(t), nil)
	require.NoError(t, err)
	assert.Len(t, m.servers, 1)
	assert.Nil(t, m.health)
	m.SetServing(true)

	cfg.MqttOptions.Broker = "mqtt://localhost:1883"
	m, err = NewManager(cfg, testService(t), nil)
	require.NoError(t, err)
	assert.Len(t, m.servers, 2)
}

type stubServer struct{ err error }

func (s stubServer) Start(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func TestManagerStartStopsOnFirstError(t *testing.T) {
	boom := errors.New("address already in use")
	m := &Manager{servers: []Server{stubServer{}, stubServer{err: boom}}}

	assert.ErrorIs(t, m.Start(context.Background()), boom)
}
