package options

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MongoOptions)(nil)

// MongoOptions configures the shared connection to the ping store.
type MongoOptions struct {
	// URI is the MongoDB connection string. Required.
	URI string `json:"uri" mapstructure:"uri"`

	// Database is the database holding the pings collection.
	Database string `json:"db-name" mapstructure:"db-name"`

	// Pool sizing. MinPoolSize connections are kept warm.
	MaxPoolSize uint64 `json:"max-pool-size" mapstructure:"max-pool-size"`
	MinPoolSize uint64 `json:"min-pool-size" mapstructure:"min-pool-size"`

	// MaxIdleTime closes pooled connections idle for longer than this.
	MaxIdleTime time.Duration `json:"max-idle-time" mapstructure:"max-idle-time"`

	// ServerSelectionTimeout bounds how long an operation waits for a usable server.
	ServerSelectionTimeout time.Duration `json:"server-selection-timeout" mapstructure:"server-selection-timeout"`

	// SocketTimeout bounds a single network round trip.
	SocketTimeout time.Duration `json:"socket-timeout" mapstructure:"socket-timeout"`
}

// NewMongoOptions creates a MongoOptions object with default parameters.
func NewMongoOptions() *MongoOptions {
	return &MongoOptions{
		Database:               "drivers_tracking",
		MaxPoolSize:            100,
		MinPoolSize:            20,
		MaxIdleTime:            60 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          45 * time.Second,
	}
}

// ConnectTimeout is the upper bound for one connection attempt, including
// server selection and the initial ping.
func (o *MongoOptions) ConnectTimeout() time.Duration {
	return o.ServerSelectionTimeout + o.SocketTimeout
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MongoOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if strings.TrimSpace(o.URI) == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	} else if !strings.HasPrefix(o.URI, "mongodb://") && !strings.HasPrefix(o.URI, "mongodb+srv://") {
		errs = append(errs, errors.New("MONGO_URI must use the mongodb:// or mongodb+srv:// scheme"))
	}

	if strings.TrimSpace(o.Database) == "" {
		errs = append(errs, errors.New("MONGO_DB_NAME cannot be empty"))
	}

	if o.MaxPoolSize == 0 {
		errs = append(errs, errors.New("MONGO_MAX_POOL_SIZE must be greater than zero"))
	}

	if o.MinPoolSize > o.MaxPoolSize {
		errs = append(errs, fmt.Errorf("MONGO_MIN_POOL_SIZE (%d) cannot exceed MONGO_MAX_POOL_SIZE (%d)", o.MinPoolSize, o.MaxPoolSize))
	}

	if o.ServerSelectionTimeout <= 0 || o.SocketTimeout <= 0 {
		errs = append(errs, errors.New("mongo timeouts must be positive"))
	}

	return errs
}

// AddFlags adds flags for MongoOptions to the specified FlagSet.
func (o *MongoOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URI, "mongo.uri", o.URI, "MongoDB connection string (env MONGO_URI).")
	fs.StringVar(&o.Database, "mongo.db-name", o.Database, "Database holding the pings collection (env MONGO_DB_NAME).")
	fs.Uint64Var(&o.MaxPoolSize, "mongo.max-pool-size", o.MaxPoolSize, "Maximum number of pooled connections (env MONGO_MAX_POOL_SIZE).")
	fs.Uint64Var(&o.MinPoolSize, "mongo.min-pool-size", o.MinPoolSize, "Minimum number of pooled connections (env MONGO_MIN_POOL_SIZE).")
	fs.DurationVar(&o.MaxIdleTime, "mongo.max-idle-time", o.MaxIdleTime, "Close pooled connections idle for longer than this.")
	fs.DurationVar(&o.ServerSelectionTimeout, "mongo.server-selection-timeout", o.ServerSelectionTimeout, "How long to wait for a usable server.")
	fs.DurationVar(&o.SocketTimeout, "mongo.socket-timeout", o.SocketTimeout, "Timeout for a single network round trip.")
}
