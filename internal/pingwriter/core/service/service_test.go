package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/autopeer-io/drivertrack/internal/pingwriter/core"
	"github.com/autopeer-io/drivertrack/internal/pingwriter/core/model"
)

type fakeRepo struct {
	mu        sync.Mutex
	inserted  []*model.PingRecord
	insertErr error
	queries   []*model.PingQuery
	found     []*model.PingRecord
}

func (f *fakeRepo) Insert(_ context.Context, rec *model.PingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, rec)
	return nil
}

func (f *fakeRepo) FindByDriver(_ context.Context, q *model.PingQuery) ([]*model.PingRecord, error) {
	f.queries = append(f.queries, q)
	return f.found, nil
}

func newService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()
	v, err := model.NewValidator()
	require.NoError(t, err)
	return New(repo, v)
}

func ping(driver string, lat, lon, ts float64) *model.Ping {
	return &model.Ping{DriverID: driver, Latitude: ptr.To(lat), Longitude: ptr.To(lon), Timestamp: ptr.To(ts)}
}

func TestIngestValid(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(t, repo)

	require.NoError(t, svc.Ingest(context.Background(), SourceHTTP, ping("d1", 10, 20, 1700000000)))

	require.Len(t, repo.inserted, 1)
	rec := repo.inserted[0]
	assert.Equal(t, "d1", rec.DriverID)
	assert.Equal(t, 10.0, rec.Latitude)
	assert.Equal(t, 20.0, rec.Longitude)
	assert.Equal(t, int64(1700000000000), rec.Timestamp.UnixMilli())
}

func TestIngestInvalidNeverWrites(t *testing.T) {
	tests := []struct {
		name string
		ping *model.Ping
	}{
		{"latitude out of range", ping("d1", 91, 20, 1700000000)},
		{"longitude out of range", ping("d1", 10, -181, 1700000000)},
		{"empty driver", ping("", 10, 20, 1700000000)},
		{"zero timestamp", ping("d1", 10, 20, 0)},
		{"fractional timestamp", ping("d1", 10, 20, 1.5)},
		{"nil ping", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := newService(t, repo)

			err := svc.Ingest(context.Background(), SourceHTTP, tt.ping)

			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Details)
			assert.Empty(t, repo.inserted)
		})
	}
}

func TestIngestStoreFailures(t *testing.T) {
	netErr := errors.New("connection reset by peer")

	tests := []struct {
		name    string
		repoErr error
		want    error
	}{
		{"not ready", fmt.Errorf("%w: ping collection not initialized", core.ErrStoreNotReady), core.ErrStoreNotReady},
		{"write failure", fmt.Errorf("%w: %w", core.ErrStoreWrite, netErr), netErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{insertErr: tt.repoErr}
			svc := newService(t, repo)

			err := svc.Ingest(context.Background(), SourceMQTT, ping("d1", 10, 20, 1700000000))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, core.IsValidation(err))
			assert.Empty(t, repo.inserted)
		})
	}
}

func TestIngestConcurrent(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(t, repo)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.Ingest(context.Background(), SourceHTTP, ping("d1", 1, 1, float64(1700000000+i))))
		}()
	}
	wg.Wait()

	assert.Len(t, repo.inserted, 50)
}

func TestPings(t *testing.T) {
	repo := &fakeRepo{found: []*model.PingRecord{{DriverID: "d1"}}}
	svc := newService(t, repo)

	got, err := svc.Pings(context.Background(), &model.PingQuery{DriverID: "d1", From: time.Unix(0, 0)})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	require.Len(t, repo.queries, 1)
	assert.EqualValues(t, model.DefaultQueryLimit, repo.queries[0].Limit)

	_, err = svc.Pings(context.Background(), &model.PingQuery{})
	assert.True(t, core.IsValidation(err))
	assert.Len(t, repo.queries, 1)
}
