package pingwriter

import (
	"fmt"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/server"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/store"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

type Config struct {
	MongoOptions *options.MongoOptions
	PingOptions  *options.PingOptions
	HttpOptions  *options.HttpOptions
	GrpcOptions  *options.GrpcOptions
	MqttOptions  *options.MqttOptions
}

func (cfg *Config) NewPingWriter() (*PingWriter, error) {
	// 1. Infrastructure: Store (Secondary Adapter)
	conn := store.NewConnection(cfg.MongoOptions)
	provisioner := store.NewProvisioner(cfg.PingOptions)
	repo := store.NewPingRepository(provisioner)

	validator, err := model.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to init validator: %w", err)
	}

	// 2. Core Domain Service
	svc := service.New(repo, validator)

	w := &PingWriter{
		conn:        conn,
		provisioner: provisioner,
		database:    cfg.MongoOptions.Database,
	}

	// 3. Ingress Servers (Primary Adapters)
	serverConfig := &server.Config{
		HttpOptions: cfg.HttpOptions,
		GrpcOptions: cfg.GrpcOptions,
		MqttOptions: cfg.MqttOptions,
	}
	srvManager, err := server.NewManager(serverConfig, svc, w.Ready)
	if err != nil {
		return nil, fmt.Errorf("failed to init server manager: %w", err)
	}
	w.serverManager = srvManager

	conn.OnStateChange(func(s store.State) {
		srvManager.SetServing(s == store.StateConnected && provisioner.Initialized())
	})

	return w, nil
}
