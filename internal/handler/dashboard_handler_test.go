package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/bucketing"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/postgres"
	"eli-dashboard/internal/service"
)

type panelStore struct {
	mu   sync.Mutex
	err  error
	ends []int64
}

func (p *panelStore) end(v int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ends = append(p.ends, v)
	return p.err
}

func (p *panelStore) EventTotals(context.Context, int64) (models.EventTotals, error) {
	return models.EventTotals{Total: 12, Recent: 3}, p.err
}

func (p *panelStore) TopTopics(_ context.Context, _, end int64) ([]models.TopicCount, error) {
	return []models.TopicCount{{Topic: "Face", Count: 12}}, p.end(end)
}

func (p *panelStore) GeoDistribution(context.Context, int64) ([]models.LocationCount, error) {
	return nil, p.err
}

func (p *panelStore) CameraActivity(context.Context, int64) ([]models.CameraActivity, error) {
	return nil, p.err
}

func (p *panelStore) SnapshotTotals(context.Context, int64) (models.SnapshotTotals, error) {
	return models.SnapshotTotals{Total: 4, WithImages: 2}, p.err
}

func (p *panelStore) Timeline(context.Context, int64, int64, string, string) ([]models.TimelineRow, error) {
	return nil, p.err
}

func (p *panelStore) EventsByLevel(_ context.Context, _, end int64) ([]models.LevelCount, error) {
	return nil, p.end(end)
}

func (p *panelStore) TopCameras(_ context.Context, _, end int64) ([]models.CameraCount, error) {
	return nil, p.end(end)
}

func (p *panelStore) SnapshotsByType(_ context.Context, _, end int64) ([]models.TypeCount, error) {
	return nil, p.end(end)
}

type geoLimit struct{ limit int }

func (g *geoLimit) DashboardGeo(_ context.Context, f models.GeoFilter) ([]models.Event, error) {
	g.limit = f.Limit
	return []models.Event{{ID: 5}}, nil
}

type snapshotRows struct{ filter models.SnapshotFilter }

func (s *snapshotRows) List(_ context.Context, f models.SnapshotFilter) ([]models.SnapshotListItem, int64, error) {
	s.filter = f
	return nil, 0, nil
}

func (s *snapshotRows) GetByID(_ context.Context, id int64) (*models.SnapshotDetail, error) {
	if id == 7 {
		return &models.SnapshotDetail{Snapshot: models.Snapshot{ID: 7, EventID: 1}}, nil
	}
	return nil, postgres.ErrNotFound
}

func (s *snapshotRows) Types(context.Context) ([]models.TypeCount, error) { return nil, nil }

func withPanels(store *panelStore, geo *geoLimit) func(*Handlers, *RouterOptions) {
	return func(h *Handlers, _ *RouterOptions) {
		logger := zap.NewNop()
		h.Dashboard = NewDashboardHandler(
			service.NewDashboardService(store, geo, logger),
			service.NewGraphService(nil, nil, bucketing.NewBucketingManager(), logger),
			logger,
		)
	}
}

func withSnapshots(rows *snapshotRows) func(*Handlers, *RouterOptions) {
	return func(h *Handlers, _ *RouterOptions) {
		h.Snapshots = NewSnapshotHandler(service.NewSnapshotService(rows, zap.NewNop()), zap.NewNop())
	}
}

func TestDashboardMetricsRoute(t *testing.T) {
	h := newTestRouter(t, withPanels(&panelStore{}, &geoLimit{}))
	token := login(t, h)

	rec := do(t, h, http.MethodGet, "/api/dashboard/metrics?timeRange=1h", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "1h", body["timeRange"])
	assert.Equal(t, float64(12), body["totalEvents"])
	assert.Equal(t, float64(2), body["snapshotsWithImages"])
	assert.Equal(t, []any{}, body["geoDistribution"])
	assert.Len(t, body["eventTypes"], 1)

	rec = do(t, h, http.MethodGet, "/api/dashboard/metrics", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "24h", decode(t, rec)["timeRange"])
}

func TestDashboardMetricsStoreFailure(t *testing.T) {
	h := newTestRouter(t, withPanels(&panelStore{err: errors.New("db down")}, &geoLimit{}))

	rec := do(t, h, http.MethodGet, "/api/dashboard/metrics", "", bearer(login(t, h)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch dashboard metrics", decode(t, rec)["error"])
}

func TestDashboardTimelineRoute(t *testing.T) {
	h := newTestRouter(t, withPanels(&panelStore{}, &geoLimit{}))

	rec := do(t, h, http.MethodGet, "/api/dashboard/timeline?timeRange=4h", "", bearer(login(t, h)))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "4h", body["timeRange"])
	assert.Equal(t, "30 minutes", body["interval"])
	assert.Equal(t, []any{}, body["data"])
}

func TestDashboardAnalyticsRoute(t *testing.T) {
	store := &panelStore{}
	h := newTestRouter(t, withPanels(store, &geoLimit{}))
	token := login(t, h)

	rec := do(t, h, http.MethodGet, "/api/dashboard/analytics?start=1000&end=9000", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, map[string]any{"start": float64(1000), "end": float64(9000)}, body["window"])
	assert.Equal(t, []int64{9000, 9000, 9000, 9000}, store.ends)

	store.ends = nil
	rec = do(t, h, http.MethodGet, "/api/dashboard/analytics?timeRange=1h", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1h", decode(t, rec)["timeRange"])
	assert.Equal(t, []int64{0, 0, 0, 0}, store.ends)
}

func TestDashboardGeoRoute(t *testing.T) {
	geo := &geoLimit{}
	h := newTestRouter(t, withPanels(&panelStore{}, geo))

	rec := do(t, h, http.MethodGet, "/api/dashboard/events/geo?limit=50000", "", bearer(login(t, h)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000, geo.limit)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["total"])
	assert.NotContains(t, body, "eventType")
}

func TestDashboardIdentitiesWithoutNeo4j(t *testing.T) {
	h := newTestRouter(t, withPanels(&panelStore{}, &geoLimit{}))

	rec := do(t, h, http.MethodGet, "/api/dashboard/identities", "", bearer(login(t, h)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshotRoutes(t *testing.T) {
	h := newTestRouter(t, withSnapshots(&snapshotRows{}))
	token := login(t, h)

	rec := do(t, h, http.MethodGet, "/api/snapshots/7", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode(t, rec)["snapshot"].(map[string]any)
	assert.Equal(t, float64(7), snap["id"])

	rec = do(t, h, http.MethodGet, "/api/snapshots/8", "", bearer(token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Snapshot not found", decode(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/api/snapshots/x", "", bearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageIsCapped(t *testing.T) {
	rows := &snapshotRows{}
	h := newTestRouter(t, withSnapshots(rows))
	token := login(t, h)

	rec := do(t, h, http.MethodGet, "/api/snapshots?page=2147483647&limit=500", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	pagination := decode(t, rec)["pagination"].(map[string]any)
	assert.Equal(t, float64(maxPage), pagination["page"])
	assert.Equal(t, (maxPage-1)*500, rows.filter.Offset)

	rec = do(t, h, http.MethodGet, "/api/events?page=9223372036854775807", "", bearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	pagination = decode(t, rec)["pagination"].(map[string]any)
	assert.Equal(t, float64(maxPage), pagination["page"])
}
