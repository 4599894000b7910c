package app

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

// rangeFlags selects one driver's pings. Bounds are unix seconds.
type rangeFlags struct {
	driverID string
	from     int64
	to       int64
	since    time.Duration
	limit    int64
}

func (f *rangeFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.driverID, "driver", f.driverID, "Driver ID. Required.")
	fs.Int64Var(&f.from, "from", f.from, "Range start in unix seconds.")
	fs.Int64Var(&f.to, "to", f.to, "Range end in unix seconds. Defaults to now.")
	fs.DurationVar(&f.since, "since", f.since, "Range start relative to the end, e.g. 1h. Overrides --from.")
	fs.Int64Var(&f.limit, "limit", f.limit, fmt.Sprintf("Maximum number of pings, up to %d.", model.MaxQueryLimit))
}

func (f *rangeFlags) query(now time.Time) *model.PingQuery {
	q := &model.PingQuery{
		DriverID: f.driverID,
		From:     time.Unix(f.from, 0).UTC(),
		To:       now.UTC(),
		Limit:    f.limit,
	}
	if f.to > 0 {
		q.To = time.Unix(f.to, 0).UTC()
	}
	if f.since > 0 {
		q.From = q.To.Add(-f.since)
	}
	return q
}
