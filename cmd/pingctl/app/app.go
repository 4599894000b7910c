package app

import (
	"github.com/autopeer-io/drivertrack/cmd/pingctl/app/options"
	"github.com/autopeer-io/drivertrack/pkg/app"
)

const (
	commandName = "pingctl"
	commandDesc = `pingctl inspects the driver ping store: it lists a driver's pings for a time
range, exports them to S3 compatible object storage, probes the health of a
running ping writer and publishes simulated pings over MQTT.`
)

func NewApp() *app.App {
	opts := options.NewPingctlOptions()
	application := app.NewApp(
		commandName,
		"Operate on stored driver pings",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithSubCommands(
			newQueryCommand(opts),
			newExportCommand(opts),
			newHealthCommand(),
			newSimulateCommand(opts),
		),
	)
	return application
}
