package options

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/drivertrack/pkg/app"
	"github.com/autopeer-io/drivertrack/pkg/log"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

// PingctlOptions holds the connection settings shared by all subcommands.
// Each subcommand validates only the groups it uses.
type PingctlOptions struct {
	MongoOptions *options.MongoOptions `json:"mongo" mapstructure:"mongo"`
	PingOptions  *options.PingOptions  `json:"ping" mapstructure:"ping"`
	S3Options    *options.S3Options    `json:"s3" mapstructure:"s3"`
	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*PingctlOptions)(nil)
	_ app.LogOptionsProvider  = (*PingctlOptions)(nil)
)

func NewPingctlOptions() *PingctlOptions {
	o := &PingctlOptions{
		MongoOptions: options.NewMongoOptions(),
		PingOptions:  options.NewPingOptions(),
		S3Options:    options.NewS3Options(),
		MqttOptions:  options.NewMqttOptions(),
		Log:          log.NewOptions(),
	}
	// Keep command output readable; logs only report problems.
	o.Log.Level = "warn"

	return o
}

func (o *PingctlOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.MongoOptions.AddFlags(fss.FlagSet("mongo"))
	o.PingOptions.AddFlags(fss.FlagSet("ping"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *PingctlOptions) Complete() error {
	return nil
}

func (o *PingctlOptions) Validate() error {
	return utilerrors.NewAggregate(o.Log.Validate())
}

// ValidateStore checks the options needed to read the ping store.
func (o *PingctlOptions) ValidateStore() error {
	errs := []error{}
	errs = append(errs, o.MongoOptions.Validate()...)
	errs = append(errs, o.PingOptions.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// ValidateArchive checks the options needed to export to object storage.
func (o *PingctlOptions) ValidateArchive() error {
	errs := []error{}
	errs = append(errs, o.MongoOptions.Validate()...)
	errs = append(errs, o.PingOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// ValidateMqtt checks the options needed to publish over MQTT.
func (o *PingctlOptions) ValidateMqtt() error {
	if !o.MqttOptions.Enabled() {
		return errors.New("--mqtt.broker (MQTT_BROKER) is required")
	}
	return utilerrors.NewAggregate(o.MqttOptions.Validate())
}

func (o *PingctlOptions) LogOptions() *log.Options {
	return o.Log
}
