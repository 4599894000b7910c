package topic

// MQTT wildcards.
const (
	// Wildcard matches exactly one topic level.
	Wildcard = "+"

	// MultiWildcard matches the current level and all below it. It must be
	// the last character of a filter.
	MultiWildcard = "#"
)
