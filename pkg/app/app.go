package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/drivertrack/pkg/log"
)

// RunFunc is the entry point of a command once its options are loaded.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// App is a cobra command whose options are loaded from flags, environment
// variables and an optional config file before the run func is called.
type App struct {
	name        string
	shortDesc   string
	description string
	envPrefix   string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	commands    []*cobra.Command
	cfgFile     string
	cmd         *cobra.Command
}

// WithDescription sets the long description shown in help output.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions sets the options loaded before the run func starts.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function called after the options are validated.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithEnvPrefix namespaces environment variables, e.g. PINGCTL_MONGO_URI.
func WithEnvPrefix(prefix string) Option {
	return func(a *App) { a.envPrefix = prefix }
}

// WithSubCommands adds subcommands. They share the root's persistent flags.
func WithSubCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.commands = append(a.commands, cmds...) }
}

// NewApp creates an App and builds its cobra command.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()

	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
		fs := cmd.PersistentFlags()
		for _, f := range fss.FlagSets {
			fs.AddFlagSet(f)
		}
	}
	addConfigFlag(fss.FlagSet("global"), &a.cfgFile)
	cmd.PersistentFlags().AddFlagSet(fss.FlagSet("global"))

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.loadOptions(cmd)
	}
	if a.runFunc != nil {
		cmd.RunE = func(*cobra.Command, []string) error {
			defer log.Sync() //nolint:errcheck
			return a.runFunc()
		}
	}
	cmd.AddCommand(a.commands...)

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)

	a.cmd = cmd
}

// loadOptions layers config file, environment and flags onto the options,
// then completes, validates and initializes logging.
func (a *App) loadOptions(cmd *cobra.Command) error {
	if a.options == nil {
		return nil
	}

	v, err := newViper(cmd.Flags(), a.envPrefix)
	if err != nil {
		return err
	}
	if err := loadConfigFile(v, a.cfgFile); err != nil {
		return err
	}
	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}

	if err := a.options.Complete(); err != nil {
		return fmt.Errorf("failed to complete options: %w", err)
	}
	if err := a.options.Validate(); err != nil {
		return err
	}

	if p, ok := a.options.(LogOptionsProvider); ok {
		log.Init(p.LogOptions())
	}

	return nil
}
