package mqtt

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/service"
	"github.com/autopeer-io/drivertrack/pkg/log"
	pkgmqtt "github.com/autopeer-io/drivertrack/pkg/mqtt"
	"github.com/autopeer-io/drivertrack/pkg/mqtt/topic"
)

const (
	qos             = 1
	shutdownTimeout = 5 * time.Second
)

// Server implements the MQTT ping ingress. Devices publish the same JSON body
// as the HTTP API to {root}/drivers/{driverId}/ping.
type Server struct {
	client pkgmqtt.Client
	topics *topic.TopicBuilder
	group  string
	svc    *service.Service
}

// NewServer creates a new MQTT server (client).
func NewServer(client pkgmqtt.Client, builder *topic.TopicBuilder, group string, svc *service.Service) *Server {
	return &Server{
		client: client,
		topics: builder,
		group:  group,
		svc:    svc,
	}
}

// Start connects to the broker and subscribes to the ping topics.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
	}()

	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		// Cancelled during startup.
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	log.Info("MQTT Connected")

	filter := topic.Shared(s.group, s.topics.DriverPingWildcard())
	if err := s.client.Subscribe(ctx, filter, qos, s.handlePing); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
	}

	<-ctx.Done()
	s.unsubscribe(filter)
	return nil
}

// unsubscribe leaves the shared group so the broker routes pending pings to
// the remaining members instead of queueing them for this session.
func (s *Server) unsubscribe(filter string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.client.Unsubscribe(ctx, filter); err != nil {
		log.Warn("Failed to unsubscribe from ping topic", "topic", filter, "error", err)
		return
	}
	log.Info("Unsubscribed from ping topic", "topic", filter)
}

// handlePing ingests one MQTT ping. A body without driverId takes it from the
// topic; a body that names a different driver than the topic is rejected.
// There is no reply channel, so outcomes are only logged.
func (s *Server) handlePing(ctx context.Context, t string, payload []byte) {
	topicDriver, ok := s.topics.DriverIDFromPing(t)
	if !ok {
		log.Warn("Dropping ping on unexpected topic", "topic", t)
		return
	}

	ping, details := model.DecodePing(payload)
	if len(details) > 0 {
		log.Warn("Dropping malformed MQTT ping", "topic", t, "error", core.NewValidationError(details...))
		return
	}

	switch ping.DriverID {
	case "":
		ping.DriverID = topicDriver
	case topicDriver:
	default:
		log.Warn("Dropping MQTT ping for another driver", "topic", t, "driverId", ping.DriverID)
		return
	}

	if err := s.svc.Ingest(ctx, service.SourceMQTT, ping); err != nil {
		if core.IsValidation(err) {
			log.Warn("Dropping invalid MQTT ping", "topic", t, "error", err)
			return
		}
		log.Error(err, "Failed to ingest MQTT ping", "driverId", ping.DriverID)
	}
}
