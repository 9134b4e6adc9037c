package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
)

type fakeDashboardStore struct {
	mu     sync.Mutex
	err    error
	totals models.EventTotals
	snaps  models.SnapshotTotals
	rows   []models.TimelineRow
	starts map[string]int64
	ends   map[string]int64
	bucket int64
}

func newFakeDashboardStore() *fakeDashboardStore {
	return &fakeDashboardStore{starts: map[string]int64{}, ends: map[string]int64{}}
}

func (f *fakeDashboardStore) record(name string, start, end int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts[name] = start
	f.ends[name] = end
	return f.err
}

func (f *fakeDashboardStore) EventTotals(_ context.Context, start int64) (models.EventTotals, error) {
	return f.totals, f.record("totals", start, 0)
}

func (f *fakeDashboardStore) TopTopics(_ context.Context, start, end int64) ([]models.TopicCount, error) {
	return nil, f.record("topics", start, end)
}

func (f *fakeDashboardStore) GeoDistribution(_ context.Context, start int64) ([]models.LocationCount, error) {
	return nil, f.record("geo", start, 0)
}

func (f *fakeDashboardStore) CameraActivity(_ context.Context, start int64) ([]models.CameraActivity, error) {
	return nil, f.record("cameras", start, 0)
}

func (f *fakeDashboardStore) SnapshotTotals(_ context.Context, start int64) (models.SnapshotTotals, error) {
	return f.snaps, f.record("snapshots", start, 0)
}

func (f *fakeDashboardStore) Timeline(_ context.Context, start int64, bucketMs int64, _, _ string) ([]models.TimelineRow, error) {
	f.mu.Lock()
	f.bucket = bucketMs
	f.mu.Unlock()
	return f.rows, f.record("timeline", start, 0)
}

func (f *fakeDashboardStore) EventsByLevel(_ context.Context, start, end int64) ([]models.LevelCount, error) {
	return nil, f.record("levels", start, end)
}

func (f *fakeDashboardStore) TopCameras(_ context.Context, start, end int64) ([]models.CameraCount, error) {
	return nil, f.record("topCameras", start, end)
}

func (f *fakeDashboardStore) SnapshotsByType(_ context.Context, start, end int64) ([]models.TypeCount, error) {
	return nil, f.record("snapshotTypes", start, end)
}

type fakeDashboardGeo struct {
	filter models.GeoFilter
	events []models.Event
}

func (f *fakeDashboardGeo) DashboardGeo(_ context.Context, filter models.GeoFilter) ([]models.Event, error) {
	f.filter = filter
	return f.events, nil
}

func TestDashboardMetricsTotalsAndEmptyLists(t *testing.T) {
	store := newFakeDashboardStore()
	store.totals = models.EventTotals{Total: 120, Recent: 7}
	store.snaps = models.SnapshotTotals{Total: 40, WithImages: 31}
	svc := NewDashboardService(store, nil, zap.NewNop())

	before := time.Now().Add(-time.Hour).UnixMilli()
	out, err := svc.Metrics(context.Background(), "1h")
	require.NoError(t, err)

	assert.Equal(t, "1h", out.TimeRange)
	assert.Equal(t, int64(120), out.TotalEvents)
	assert.Equal(t, int64(7), out.RecentEvents)
	assert.Equal(t, int64(40), out.TotalSnapshots)
	assert.Equal(t, int64(31), out.SnapshotsWithImages)
	assert.NotEmpty(t, out.Timestamp)
	assert.InDelta(t, before, store.starts["totals"], 5000)
	assert.Zero(t, store.ends["topics"])

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	for _, key := range []string{"eventTypes", "geoDistribution", "cameraActivity"} {
		assert.Equal(t, []any{}, body[key], key)
	}
}

func TestDashboardMetricsWrapsStoreError(t *testing.T) {
	store := newFakeDashboardStore()
	boom := errors.New("connection refused")
	store.err = boom
	svc := NewDashboardService(store, nil, zap.NewNop())

	_, err := svc.Metrics(context.Background(), "24h")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dashboard metrics")
}

func TestDashboardTimelineBuckets(t *testing.T) {
	topic := "Face"
	bucket := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	store := newFakeDashboardStore()
	store.rows = []models.TimelineRow{{Bucket: bucket, Topic: &topic, Count: 5}}
	svc := NewDashboardService(store, nil, zap.NewNop())

	out, err := svc.Timeline(context.Background(), "30m", "", "")
	require.NoError(t, err)
	assert.Equal(t, "5 minutes", out.Interval)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), store.bucket)
	require.Len(t, out.Data, 1)
	assert.Equal(t, int64(5), out.Data[0].EventCount)
	assert.Equal(t, &topic, out.Data[0].Topic)
	assert.Equal(t, "2026-03-01T12:00:00.000Z", out.Data[0].TimeBucket)

	out, err = svc.Timeline(context.Background(), "7d", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1 day", out.Interval)

	store.rows = nil
	out, err = svc.Timeline(context.Background(), "unknown", "", "")
	require.NoError(t, err)
	assert.Equal(t, "1 hour", out.Interval)
	assert.NotNil(t, out.Data)
	assert.Empty(t, out.Data)
}

func TestDashboardTimelineWrapsStoreError(t *testing.T) {
	store := newFakeDashboardStore()
	store.err = errors.New("timeout")
	svc := NewDashboardService(store, nil, zap.NewNop())

	_, err := svc.Timeline(context.Background(), "1h", "", "")
	assert.ErrorContains(t, err, "dashboard timeline: timeout")
}

func TestDashboardAnalyticsEndBound(t *testing.T) {
	now := time.Now()

	t.Run("range token leaves end open", func(t *testing.T) {
		store := newFakeDashboardStore()
		svc := NewDashboardService(store, nil, zap.NewNop())
		p := timewindow.Params{Range: "30m", Window: timewindow.Resolve(0, 0, "30m", now)}

		out, err := svc.Analytics(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, p.Window, out.Window)
		for _, name := range []string{"levels", "topics", "topCameras", "snapshotTypes"} {
			assert.Equal(t, p.Window.Start, store.starts[name], name)
			assert.Zero(t, store.ends[name], name)
		}
		assert.NotNil(t, out.EventsByLevel)
		assert.NotNil(t, out.TopTopics)
		assert.NotNil(t, out.TopCameras)
		assert.NotNil(t, out.SnapshotsByType)
	})

	t.Run("explicit pair bounds end", func(t *testing.T) {
		store := newFakeDashboardStore()
		svc := NewDashboardService(store, nil, zap.NewNop())
		p := timewindow.Params{Range: "30m", Window: timewindow.Window{Start: 1000, End: 5000}, Absolute: true}

		_, err := svc.Analytics(context.Background(), p)
		require.NoError(t, err)
		for _, name := range []string{"levels", "topics", "topCameras", "snapshotTypes"} {
			assert.Equal(t, int64(1000), store.starts[name], name)
			assert.Equal(t, int64(5000), store.ends[name], name)
		}
	})
}

func TestDashboardAnalyticsWrapsStoreError(t *testing.T) {
	store := newFakeDashboardStore()
	store.err = errors.New("relation does not exist")
	svc := NewDashboardService(store, nil, zap.NewNop())

	_, err := svc.Analytics(context.Background(), timewindow.Params{Range: "1h"})
	assert.ErrorContains(t, err, "dashboard analytics")
}

func TestDashboardGeo(t *testing.T) {
	geo := &fakeDashboardGeo{}
	svc := NewDashboardService(newFakeDashboardStore(), geo, zap.NewNop())

	out, err := svc.Geo(context.Background(), "4h", "", 25)
	require.NoError(t, err)
	assert.NotNil(t, out.Events)
	assert.Zero(t, out.Total)
	assert.Nil(t, out.EventType)
	assert.Equal(t, 25, geo.filter.Limit)
	assert.InDelta(t, time.Now().Add(-4*time.Hour).UnixMilli(), geo.filter.Start, 5000)

	geo.events = []models.Event{{ID: 1}, {ID: 2}}
	out, err = svc.Geo(context.Background(), "4h", "Face", 25)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	require.NotNil(t, out.EventType)
	assert.Equal(t, "Face", *out.EventType)
	assert.Equal(t, "Face", geo.filter.EventType)
}
