package pingwriter

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/store"
	"github.com/autopeer-io/drivertrack/pkg/log"
)

const shutdownTimeout = 10 * time.Second

// connection is the part of *store.Connection the writer drives.
type connection interface {
	Connect(ctx context.Context) (*mongo.Client, error)
	Disconnect(ctx context.Context) error
	State() store.State
	Database(name string) store.Database
}

type provisioner interface {
	Initialize(ctx context.Context, db store.Database) error
	Initialized() bool
}

type servers interface {
	Start(ctx context.Context) error
	SetServing(serving bool)
}

// PingWriter is the main application struct of the ping ingestion service.
type PingWriter struct {
	conn          connection
	provisioner   provisioner
	serverManager servers
	database      string
}

// Run connects and provisions the store, then serves until ctx is done.
// A failed connect or provisioning step aborts startup.
func (w *PingWriter) Run(ctx context.Context) error {
	log.Info("Starting ping writer...")

	if _, err := w.conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer w.disconnect()

	if err := w.provisioner.Initialize(ctx, w.conn.Database(w.database)); err != nil {
		return fmt.Errorf("failed to provision ping store: %w", err)
	}
	w.serverManager.SetServing(true)

	return w.serverManager.Start(ctx)
}

// Ready reports whether pings can currently be written.
func (w *PingWriter) Ready() error {
	if s := w.conn.State(); s != store.StateConnected {
		return fmt.Errorf("%w: store connection is %s", core.ErrStoreNotReady, s)
	}
	if !w.provisioner.Initialized() {
		return store.ErrNotInitialized
	}
	return nil
}

func (w *PingWriter) disconnect() {
	w.serverManager.SetServing(false)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := w.conn.Disconnect(ctx); err != nil {
		log.Error(err, "Failed to close store connection")
	}
}
