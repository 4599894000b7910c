package options

import (
	"errors"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/drivertrack/internal/pingwriter"
	"github.com/autopeer-io/drivertrack/pkg/app"
	"github.com/autopeer-io/drivertrack/pkg/log"
	"github.com/autopeer-io/drivertrack/pkg/options"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type PingWriterOptions struct {
	// NodeEnv selects the runtime profile: development or production.
	NodeEnv string `json:"node-env" mapstructure:"node-env"`

	// Port is the HTTP listen port. It replaces the port of --http.addr.
	Port int `json:"port" mapstructure:"port"`

	MongoOptions *options.MongoOptions `json:"mongo" mapstructure:"mongo"`
	PingOptions  *options.PingOptions  `json:"ping" mapstructure:"ping"`
	HttpOptions  *options.HttpOptions  `json:"http" mapstructure:"http"`
	GrpcOptions  *options.GrpcOptions  `json:"grpc" mapstructure:"grpc"`
	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*PingWriterOptions)(nil)
	_ app.LogOptionsProvider  = (*PingWriterOptions)(nil)
)

func NewPingWriterOptions() *PingWriterOptions {
	o := &PingWriterOptions{
		MongoOptions: options.NewMongoOptions(),
		PingOptions:  options.NewPingOptions(),
		HttpOptions:  options.NewHttpOptions(),
		GrpcOptions:  options.NewGrpcOptions(),
		MqttOptions:  options.NewMqttOptions(),
		Log:          log.NewOptions(),
	}

	return o
}

func (o *PingWriterOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}

	fs := fss.FlagSet("generic")
	fs.StringVar(&o.NodeEnv, "node-env", o.NodeEnv, "Runtime environment, 'development' or 'production'. Required.")
	fs.IntVar(&o.Port, "port", o.Port, "Port of the HTTP API. Required.")

	o.MongoOptions.AddFlags(fss.FlagSet("mongo"))
	o.PingOptions.AddFlags(fss.FlagSet("ping"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GrpcOptions.AddFlags(fss.FlagSet("grpc"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *PingWriterOptions) Complete() error {
	if o.Port > 0 {
		o.HttpOptions.Addr = options.WithPort(o.HttpOptions.Addr, o.Port)
	}
	if o.NodeEnv == EnvProduction {
		o.Log.ForProduction()
	}
	return nil
}

func (o *PingWriterOptions) Validate() error {
	errs := []error{}

	switch o.NodeEnv {
	case EnvDevelopment, EnvProduction:
	case "":
		errs = append(errs, errors.New("--node-env (NODE_ENV) is required"))
	default:
		errs = append(errs, fmt.Errorf("--node-env must be %q or %q, got %q", EnvDevelopment, EnvProduction, o.NodeEnv))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, errors.New("--port (PORT) is required and must be a valid port"))
	}

	errs = append(errs, o.MongoOptions.Validate()...)
	errs = append(errs, o.PingOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GrpcOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *PingWriterOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *PingWriterOptions) Config() (*pingwriter.Config, error) {
	return &pingwriter.Config{
		MongoOptions: o.MongoOptions,
		PingOptions:  o.PingOptions,
		HttpOptions:  o.HttpOptions,
		GrpcOptions:  o.GrpcOptions,
		MqttOptions:  o.MqttOptions,
	}, nil
}
