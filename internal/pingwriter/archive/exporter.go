package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	"github.com/autopeer-io/drivertrack/pkg/log"
)

const contentTypeNDJSON = "application/x-ndjson"

// ObjectStore receives exported archives.
type ObjectStore interface {
	CheckBucket(ctx context.Context) error
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// PingReader loads a driver's pings for a time range. *service.Service
// satisfies it.
type PingReader interface {
	Pings(ctx context.Context, q *model.PingQuery) ([]*model.PingRecord, error)
}

// Exporter writes a driver's pings for a range to object storage as NDJSON,
// one record per line.
type Exporter struct {
	store ObjectStore
	pings PingReader
}

func NewExporter(store ObjectStore, pings PingReader) *Exporter {
	return &Exporter{store: store, pings: pings}
}

// Result describes one uploaded archive.
type Result struct {
	Key   string
	Count int
	Bytes int
}

// Export uploads the matching pings. An empty range uploads nothing.
func (e *Exporter) Export(ctx context.Context, q *model.PingQuery) (*Result, error) {
	records, err := e.pings.Pings(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load pings: %w", err)
	}

	res := &Result{Key: ObjectKey(q)}
	if len(records) == 0 {
		log.Info("No pings in range, skipping export", "driverId", q.DriverID)
		return res, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("failed to encode ping: %w", err)
		}
	}

	if err := e.store.CheckBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to object storage: %w", err)
	}
	if err := e.store.Put(ctx, res.Key, contentTypeNDJSON, buf.Bytes()); err != nil {
		return nil, err
	}

	res.Count = len(records)
	res.Bytes = buf.Len()
	log.Info("Pings exported", "key", res.Key, "count", res.Count)
	return res, nil
}

// ObjectKey is pings/{driverId}/{from}-{to}.ndjson with unix second bounds.
// The driver id is path-escaped so it always stays a single key segment.
func ObjectKey(q *model.PingQuery) string {
	return fmt.Sprintf("pings/%s/%d-%d.ndjson", keySegment(q.DriverID), q.From.Unix(), q.To.Unix())
}

func keySegment(s string) string {
	escaped := url.PathEscape(s)
	if escaped == "." || escaped == ".." {
		return strings.ReplaceAll(escaped, ".", "%2E")
	}
	return escaped
}
