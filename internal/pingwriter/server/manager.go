package server

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/server/grpc"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/server/http"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/server/mqtt"
	"github.com/autopeer-io/drivertrack/pkg/log"
	pkgmqtt "github.com/autopeer-io/drivertrack/pkg/mqtt"
	"github.com/autopeer-io/drivertrack/pkg/mqtt/topic"
)

// Server defines the common interface for all sub-servers (http, grpc, mqtt).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
	health  *grpc.Server
}

// NewManager creates a new server manager and initializes all sub-servers.
// gRPC and MQTT are optional and only built when configured.
func NewManager(cfg *Config, svc *service.Service, ready http.ReadinessFunc) (*Manager, error) {
	m := &Manager{}

	// 1. HTTP Server (Ping API, Health & Metrics)
	m.servers = append(m.servers, http.NewServer(cfg.HttpOptions, svc, ready))

	// 2. gRPC Server (Health)
	if cfg.GrpcOptions.Addr != "" {
		m.health = grpc.NewServer(cfg.GrpcOptions)
		m.servers = append(m.servers, m.health)
	}

	// 3. MQTT Server (Device ping ingress)
	if cfg.MqttOptions.Enabled() {
		client, err := newMQTTClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt server: %w", err)
		}
		builder := topic.NewTopicBuilder(cfg.MqttOptions.TopicRoot)
		m.servers = append(m.servers, mqtt.NewServer(client, builder, cfg.MqttOptions.SharedGroup, svc))
	}

	return m, nil
}

func newMQTTClient(cfg *Config) (pkgmqtt.Client, error) {
	clientCfg := cfg.MqttOptions.ToClientConfig()
	if clientCfg.ClientID == "" {
		hostname, _ := os.Hostname()
		clientCfg.ClientID = fmt.Sprintf("ping-writer-%s", hostname)
	}
	return pkgmqtt.NewClient(clientCfg)
}

// SetServing updates the gRPC health status, if the gRPC server is enabled.
func (m *Manager) SetServing(serving bool) {
	if m.health != nil {
		m.health.SetServing(serving)
	}
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
