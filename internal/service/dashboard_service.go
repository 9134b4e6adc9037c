package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

// DashboardStore is implemented by postgres.DashboardRepository.
type DashboardStore interface {
	EventTotals(ctx context.Context, start int64) (models.EventTotals, error)
	TopTopics(ctx context.Context, start, end int64) ([]models.TopicCount, error)
	GeoDistribution(ctx context.Context, start int64) ([]models.LocationCount, error)
	CameraActivity(ctx context.Context, start int64) ([]models.CameraActivity, error)
	SnapshotTotals(ctx context.Context, start int64) (models.SnapshotTotals, error)
	Timeline(ctx context.Context, start int64, bucketMs int64, eventType, cameraID string) ([]models.TimelineRow, error)
	EventsByLevel(ctx context.Context, start, end int64) ([]models.LevelCount, error)
	TopCameras(ctx context.Context, start, end int64) ([]models.CameraCount, error)
	SnapshotsByType(ctx context.Context, start, end int64) ([]models.TypeCount, error)
}

// DashboardGeoStore is the map-panel query of postgres.EventRepository.
type DashboardGeoStore interface {
	DashboardGeo(ctx context.Context, f models.GeoFilter) ([]models.Event, error)
}

type DashboardService struct {
	store  DashboardStore
	geo    DashboardGeoStore
	logger *zap.Logger
}

func NewDashboardService(store DashboardStore, geo DashboardGeoStore, logger *zap.Logger) *DashboardService {
	return &DashboardService{store: store, geo: geo, logger: logger}
}

// Metrics computes the executive KPIs for the range counted back from now.
func (s *DashboardService) Metrics(ctx context.Context, token string) (*models.DashboardMetrics, error) {
	start := time.Now().Add(-timewindow.RangeDuration(token)).UnixMilli()
	out := &models.DashboardMetrics{TimeRange: token}

	var totals models.EventTotals
	var snaps models.SnapshotTotals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.store.EventTotals(gctx, start)
		return err
	})
	g.Go(func() (err error) {
		out.EventTypes, err = s.store.TopTopics(gctx, start, 0)
		return err
	})
	g.Go(func() (err error) {
		out.GeoDistribution, err = s.store.GeoDistribution(gctx, start)
		return err
	})
	g.Go(func() (err error) {
		out.CameraActivity, err = s.store.CameraActivity(gctx, start)
		return err
	})
	g.Go(func() (err error) {
		snaps, err = s.store.SnapshotTotals(gctx, start)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard metrics: %w", err)
	}

	out.TotalEvents = totals.Total
	out.RecentEvents = totals.Recent
	out.TotalSnapshots = snaps.Total
	out.SnapshotsWithImages = snaps.WithImages
	out.EventTypes = nonNil(out.EventTypes)
	out.GeoDistribution = nonNil(out.GeoDistribution)
	out.CameraActivity = nonNil(out.CameraActivity)
	out.Timestamp = util.NowISO()
	return out, nil
}

// Timeline buckets events by the interval that belongs to token.
func (s *DashboardService) Timeline(ctx context.Context, token, eventType, cameraID string) (*models.Timeline, error) {
	start := time.Now().Add(-timewindow.RangeDuration(token)).UnixMilli()
	width := timewindow.Interval(token)

	rows, err := s.store.Timeline(ctx, start, width.Milliseconds(), eventType, cameraID)
	if err != nil {
		return nil, fmt.Errorf("dashboard timeline: %w", err)
	}
	data := make([]models.TimelinePoint, 0, len(rows))
	for _, r := range rows {
		data = append(data, models.TimelinePoint{
			TimeBucket: util.ISOTime(r.Bucket),
			EventCount: r.Count,
			Topic:      r.Topic,
		})
	}
	return &models.Timeline{
		TimeRange: token,
		Interval:  timewindow.IntervalLabel(token),
		Data:      data,
		Timestamp: util.NowISO(),
	}, nil
}

// Analytics bounds the window above only when an explicit pair was given.
func (s *DashboardService) Analytics(ctx context.Context, p timewindow.Params) (*models.Analytics, error) {
	start := p.Window.Start
	var end int64
	if p.Absolute {
		end = p.Window.End
	}
	out := &models.Analytics{TimeRange: p.Range, Window: p.Window}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.EventsByLevel, err = s.store.EventsByLevel(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		out.TopTopics, err = s.store.TopTopics(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		out.TopCameras, err = s.store.TopCameras(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		out.SnapshotsByType, err = s.store.SnapshotsByType(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard analytics: %w", err)
	}

	out.EventsByLevel = nonNil(out.EventsByLevel)
	out.TopTopics = nonNil(out.TopTopics)
	out.TopCameras = nonNil(out.TopCameras)
	out.SnapshotsByType = nonNil(out.SnapshotsByType)
	out.Timestamp = util.NowISO()
	return out, nil
}

// Geo lists geolocated events with their snapshot counts.
func (s *DashboardService) Geo(ctx context.Context, token, eventType string, limit int) (*models.GeoEvents, error) {
	start := time.Now().Add(-timewindow.RangeDuration(token)).UnixMilli()
	events, err := s.geo.DashboardGeo(ctx, models.GeoFilter{EventType: eventType, Start: start, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("dashboard geo: %w", err)
	}
	events = nonNil(events)
	return &models.GeoEvents{
		Events:    events,
		TimeRange: token,
		EventType: optionalString(eventType),
		Total:     len(events),
		Timestamp: util.NowISO(),
	}, nil
}
