package app

import (
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/drivertrack/pkg/log"
)

// NamedFlagSetOptions is implemented by the option struct of every command.
type NamedFlagSetOptions interface {
	// Flags returns the command's flags grouped by concern.
	Flags() cliflag.NamedFlagSets

	// Complete fills derived values once flags, env and config are loaded.
	Complete() error

	// Validate reports every invalid option at once.
	Validate() error
}

// LogOptionsProvider is implemented by options that configure logging. The
// app initializes the global logger from them before the run func starts.
type LogOptionsProvider interface {
	LogOptions() *log.Options
}
