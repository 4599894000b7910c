package topic

import (
	"fmt"
	"strings"
)

// Topic segments shared between drivers' devices and the ping writer.
// Changing these values breaks compatibility with deployed clients.
const (
	// SegmentDrivers is the collection segment that precedes the driver id.
	// Structure: {root}/drivers/{driverID}/ping
	SegmentDrivers = "drivers"

	// SuffixPing is the upstream location ping topic (Device -> Cloud).
	SuffixPing = "ping"
)

// TopicBuilder constructs MQTT topic strings under one root namespace.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "drivertrack/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.TrimSuffix(root, "/")}
}

// DriverPing returns the topic a single driver's device publishes pings to.
func (b *TopicBuilder) DriverPing(driverID string) string {
	return b.build(driverID, SuffixPing)
}

// DriverPingWildcard returns the filter matching every driver's ping topic.
// Result: {root}/drivers/+/ping
func (b *TopicBuilder) DriverPingWildcard() string {
	return b.build(Wildcard, SuffixPing)
}

// Shared wraps a filter in an MQTT v5 shared subscription so that replicas in
// the same group split the load.
func Shared(group, filter string) string {
	if group == "" {
		return filter
	}
	return fmt.Sprintf("$share/%s/%s", group, filter)
}

// DriverIDFromPing extracts the driver id from a concrete ping topic.
func (b *TopicBuilder) DriverIDFromPing(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.root+"/"+SegmentDrivers+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/"+SuffixPing)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// build constructs {root}/drivers/{id}/{suffix}.
func (b *TopicBuilder) build(id, suffix string) string {
	return fmt.Sprintf("%s/%s/%s/%s", b.root, SegmentDrivers, id, suffix)
}
