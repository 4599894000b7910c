package app

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
	grpcserver "github.com/autopeer-io/drivertrack/internal/pingwriter/server/grpc"
)

func TestRangeFlagsQuery(t *testing.T) {
	now := time.Unix(1700003600, 0)

	q := (&rangeFlags{driverID: "d1", from: 1700000000}).query(now)
	assert.Equal(t, "d1", q.DriverID)
	assert.Equal(t, int64(1700000000), q.From.Unix())
	assert.Equal(t, now.Unix(), q.To.Unix())

	q = (&rangeFlags{driverID: "d1", to: 1700001000, since: time.Minute, limit: 5}).query(now)
	assert.Equal(t, int64(1700000940), q.From.Unix())
	assert.Equal(t, int64(1700001000), q.To.Unix())
	assert.EqualValues(t, 5, q.Limit)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []*model.PingRecord{
		{DriverID: "d1", Latitude: 52.52, Longitude: 13.405, Timestamp: time.Unix(1700000000, 0).UTC()},
	})

	out := buf.String()
	assert.Contains(t, out, "DRIVER")
	assert.Contains(t, out, "2023-11-14T22:13:20Z")
	assert.Contains(t, out, "52.520000")
	assert.Contains(t, out, "1 ping(s)")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, []*model.PingRecord{
		{DriverID: "d1", Timestamp: time.Unix(1, 0).UTC()},
		{DriverID: "d1", Timestamp: time.Unix(2, 0).UTC()},
	}))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
}

func TestCheckHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	status, err := checkHealth(context.Background(), lis.Addr().String(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)

	hs.SetServingStatus(grpcserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	status, err = checkHealth(context.Background(), lis.Addr().String(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)
}

func TestSubcommands(t *testing.T) {
	cmd := NewApp().Command()
	for _, name := range []string{"query", "export", "health"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}
