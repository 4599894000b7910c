package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*PingOptions)(nil)

// PingOptions shapes the pings time series collection.
type PingOptions struct {
	// Collection is the name of the time series collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// RetentionDays is how long a ping is kept, measured from its timestamp.
	RetentionDays int `json:"retention-days" mapstructure:"retention-days"`
}

// NewPingOptions creates a PingOptions object with default parameters.
func NewPingOptions() *PingOptions {
	return &PingOptions{
		Collection:    "pings",
		RetentionDays: 30,
	}
}

// Retention returns RetentionDays as a duration.
func (o *PingOptions) Retention() time.Duration {
	return time.Duration(o.RetentionDays) * 24 * time.Hour
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *PingOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if o.Collection == "" {
		errs = append(errs, errors.New("ping collection name cannot be empty"))
	}

	if o.RetentionDays <= 0 {
		errs = append(errs, errors.New("PING_RETENTION_DAYS must be a positive number of days"))
	}

	return errs
}

// AddFlags adds flags for PingOptions to the specified FlagSet.
func (o *PingOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Collection, "ping.collection", o.Collection, "Name of the pings time series collection.")
	fs.IntVar(&o.RetentionDays, "ping.retention-days", o.RetentionDays, "Days a ping is retained before expiry (env PING_RETENTION_DAYS).")
}
