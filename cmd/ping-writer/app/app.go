package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/drivertrack/cmd/ping-writer/app/options"
	"github.com/autopeer-io/drivertrack/pkg/app"
)

const (
	commandName = "ping-writer"
	commandDesc = `The ping writer accepts driver geolocation pings over HTTP (and MQTT when a
broker is configured), validates them and stores them in a MongoDB time-series
collection that expires old pings automatically.

Every flag can also be set through the environment, e.g. --mongo.uri as
MONGO_URI and --ping.retention-days as PING_RETENTION_DAYS.`
)

func NewApp() *app.App {
	opts := options.NewPingWriterOptions()
	application := app.NewApp(
		commandName,
		"Launch the driver ping ingestion service",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.PingWriterOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		writer, err := cfg.NewPingWriter()
		if err != nil {
			return fmt.Errorf("failed to create ping writer: %w", err)
		}

		return writer.Run(ctx)
	}
}
