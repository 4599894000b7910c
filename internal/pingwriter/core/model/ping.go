package model

import (
	"strings"
	"time"
)

// Ping is one inbound location report. Numeric fields are pointers so that a
// missing field is distinguishable from zero.
type Ping struct {
	DriverID  string   `json:"driverId" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`

	// Timestamp is Unix seconds. It is decoded as a number so that fractional
	// values reach validation instead of failing as a type error.
	Timestamp *float64 `json:"timestamp" validate:"required,unix_seconds"`
}

// PingRecord is the persisted form of a Ping. Timestamp is a real instant
// because the time-series collection buckets on it.
type PingRecord struct {
	DriverID  string    `bson:"driverId" json:"driverId"`
	Latitude  float64   `bson:"latitude" json:"latitude"`
	Longitude float64   `bson:"longitude" json:"longitude"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// MaxUnixSeconds is the largest accepted timestamp: the largest integer a
// float64 holds exactly (2^53-1). Its millisecond value still fits in int64.
const MaxUnixSeconds = 1<<53 - 1

// NewPingRecord converts a validated ping: seconds are multiplied by 1000 and
// read as Unix milliseconds.
func NewPingRecord(p *Ping) *PingRecord {
	seconds := int64(*p.Timestamp)
	return &PingRecord{
		DriverID:  p.DriverID,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Timestamp: time.UnixMilli(seconds * 1000).UTC(),
	}
}

// Zod-compatible issue codes, kept for clients written against the first
// version of the API.
const (
	CodeInvalidType = "invalid_type"
	CodeTooSmall    = "too_small"
	CodeTooBig      = "too_big"
	CodeInvalidJSON = "invalid_json"
	CodeCustom      = "custom"
)

// FieldError describes a single problem with client input.
type FieldError struct {
	Code    string   `json:"code"`
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Field returns the dotted path of the offending field.
func (e FieldError) Field() string {
	if len(e.Path) == 0 {
		return "(root)"
	}
	return strings.Join(e.Path, ".")
}
