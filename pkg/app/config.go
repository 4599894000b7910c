package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/drivertrack/pkg/log"
)

const configFlagName = "config"

// addConfigFlag registers --config on fs.
func addConfigFlag(fs *pflag.FlagSet, cfgFile *string) {
	fs.StringVarP(cfgFile, configFlagName, "c", *cfgFile,
		"Path to a configuration file (yaml, json or toml). Flags and environment variables take precedence.")
}

// newViper binds flags and environment variables. Environment keys are the
// flag names upper-cased with '.' and '-' replaced by '_', so --mongo.db-name
// is read from MONGO_DB_NAME.
func newViper(fs *pflag.FlagSet, envPrefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	return v, nil
}

// logLevelKey is the one setting applied live when the config file changes.
const logLevelKey = "log.level"

// loadConfigFile reads cfgFile into v and reloads it when it changes. The log
// level is applied immediately; every other setting needs a restart.
func loadConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile == "" {
		return nil
	}

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", cfgFile, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		applyLogLevel(v)
		log.Info("Configuration file changed, restart to apply other settings", "file", e.Name, "op", e.Op.String())
	})
	v.WatchConfig()

	return nil
}

func applyLogLevel(v *viper.Viper) {
	level := v.GetString(logLevelKey)
	if level == "" {
		return
	}
	if err := log.SetLevel(level); err != nil {
		log.Error(err, "Ignoring log level from configuration file")
		return
	}
	log.Info("Log level updated", "level", level)
}
