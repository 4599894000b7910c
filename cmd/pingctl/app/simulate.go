package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/drivertrack/cmd/pingctl/app/options"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/pkg/log"
	"github.com/autopeer-io/drivertrack/pkg/mqtt"
	"github.com/autopeer-io/drivertrack/pkg/mqtt/topic"
)

// stepDegrees is the largest move of a simulated driver per tick, ~100m.
const stepDegrees = 0.001

type simulateFlags struct {
	drivers  int
	interval time.Duration
	count    int
	qos      int
	lat, lon float64
}

func newSimulateCommand(opts *options.PingctlOptions) *cobra.Command {
	sf := &simulateFlags{
		drivers:  5,
		interval: time.Second,
		qos:      1,
		lat:      52.52,
		lon:      13.405,
	}

	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Publish random-walk pings for simulated drivers over MQTT",
		Example: `  pingctl simulate --mqtt.broker mqtt://localhost:1883 --drivers 20 --interval 500ms`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.ValidateMqtt(); err != nil {
				return err
			}

			cfg := opts.MqttOptions.ToClientConfig()
			if cfg.ClientID == "" {
				hostname, _ := os.Hostname()
				cfg.ClientID = fmt.Sprintf("pingctl-sim-%s", hostname)
			}
			client, err := mqtt.NewClient(cfg)
			if err != nil {
				return err
			}

			ctx := genericapiserver.SetupSignalContext()
			if err := client.Start(ctx); err != nil {
				return fmt.Errorf("failed to start mqtt client: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				client.Disconnect(shutdownCtx)
			}()

			sim := newSimulator(client, topic.NewTopicBuilder(opts.MqttOptions.TopicRoot), sf)
			sent, err := sim.run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Published %d ping(s)\n", sent)
			return err
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&sf.drivers, "drivers", sf.drivers, "Number of simulated drivers.")
	fs.DurationVar(&sf.interval, "interval", sf.interval, "Time between two pings of a driver.")
	fs.IntVar(&sf.count, "count", sf.count, "Pings per driver before exiting. 0 runs until interrupted.")
	fs.IntVar(&sf.qos, "qos", sf.qos, "MQTT QoS level.")
	fs.Float64Var(&sf.lat, "lat", sf.lat, "Latitude the drivers start from.")
	fs.Float64Var(&sf.lon, "lon", sf.lon, "Longitude the drivers start from.")

	return cmd
}

type position struct {
	lat, lon float64
}

type simulator struct {
	client    mqtt.Client
	topics    *topic.TopicBuilder
	flags     *simulateFlags
	positions map[string]*position
	rand      *rand.Rand
	now       func() time.Time
}

func newSimulator(client mqtt.Client, topics *topic.TopicBuilder, flags *simulateFlags) *simulator {
	s := &simulator{
		client:    client,
		topics:    topics,
		flags:     flags,
		positions: make(map[string]*position, flags.drivers),
		rand:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		now:       time.Now,
	}
	for i := range flags.drivers {
		s.positions[fmt.Sprintf("sim-driver-%03d", i+1)] = &position{lat: flags.lat, lon: flags.lon}
	}
	return s
}

// run publishes one ping per driver every interval until ctx ends or count
// rounds are done. It returns the number of pings accepted by the client.
func (s *simulator) run(ctx context.Context) (int, error) {
	ticker := time.NewTicker(s.flags.interval)
	defer ticker.Stop()

	sent := 0
	for round := 0; s.flags.count == 0 || round < s.flags.count; round++ {
		if err := s.client.AwaitConnection(ctx); err != nil {
			// Only happens once ctx is cancelled.
			return sent, nil
		}

		for driverID := range s.positions {
			if err := s.publish(ctx, driverID); err != nil {
				log.Error(err, "Failed to publish ping", "driverId", driverID)
				continue
			}
			sent++
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return sent, nil
		}
	}
	return sent, nil
}

func (s *simulator) publish(ctx context.Context, driverID string) error {
	payload, err := json.Marshal(s.next(driverID))
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.topics.DriverPing(driverID), s.flags.qos, false, payload)
}

// next moves the driver and returns its ping, clamped to valid coordinates.
func (s *simulator) next(driverID string) *model.Ping {
	p := s.positions[driverID]
	p.lat = clamp(p.lat+(s.rand.Float64()*2-1)*stepDegrees, -90, 90)
	p.lon = clamp(p.lon+(s.rand.Float64()*2-1)*stepDegrees, -180, 180)

	lat, lon := p.lat, p.lon
	ts := float64(s.now().Unix())
	return &model.Ping{DriverID: driverID, Latitude: &lat, Longitude: &lon, Timestamp: &ts}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
