package app

import (
	"context"
	"fmt"

	"github.com/autopeer-io/drivertrack/cmd/pingctl/app/options"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/store"
	"github.com/autopeer-io/drivertrack/pkg/log"
)

// openService connects to the ping store and returns the service reading it
// along with the func releasing the connection. The ping collection must
// already exist; creating it is left to the ping writer.
func openService(ctx context.Context, opts *options.PingctlOptions) (*service.Service, func(), error) {
	conn := store.NewConnection(opts.MongoOptions)
	if _, err := conn.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	release := func() {
		if err := conn.Disconnect(context.Background()); err != nil {
			log.Error(err, "Failed to close store connection")
		}
	}

	provisioner := store.NewProvisioner(opts.PingOptions)
	if err := provisioner.Open(ctx, conn.Database(opts.MongoOptions.Database)); err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to open ping collection: %w", err)
	}

	validator, err := model.NewValidator()
	if err != nil {
		release()
		return nil, nil, err
	}

	return service.New(store.NewPingRepository(provisioner), validator), release, nil
}
