package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/elasticsearch"
	"eli-dashboard/internal/repository/postgres"
	"eli-dashboard/internal/util"
)

// EventStore is implemented by postgres.EventRepository.
type EventStore interface {
	List(ctx context.Context, f models.EventFilter) ([]models.Event, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	Types(ctx context.Context) ([]models.TopicCount, error)
	Cameras(ctx context.Context) ([]models.CameraActivity, error)
	Geo(ctx context.Context, f models.GeoFilter) ([]models.Event, error)
}

// EventSnapshotStore lists the snapshots of a single event.
type EventSnapshotStore interface {
	ByEvent(ctx context.Context, eventID int64) ([]models.Snapshot, error)
}

// EventSearcher is implemented by elasticsearch.EventIndex.
type EventSearcher interface {
	Search(ctx context.Context, p elasticsearch.SearchParams) (int64, []models.EventSearchHit, error)
}

type EventService struct {
	events    EventStore
	snapshots EventSnapshotStore
	search    EventSearcher
	logger    *zap.Logger
}

// NewEventService accepts a nil searcher; Search then reports ErrNotConfigured.
func NewEventService(events EventStore, snapshots EventSnapshotStore, search EventSearcher, logger *zap.Logger) *EventService {
	return &EventService{events: events, snapshots: snapshots, search: search, logger: logger}
}

// EventListQuery carries the parsed /api/events query.
type EventListQuery struct {
	Filter    models.EventFilter
	Page      int
	TimeRange string
}

func (s *EventService) List(ctx context.Context, q EventListQuery) (*models.EventPage, error) {
	events, total, err := s.events.List(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return &models.EventPage{
		Events:     events,
		Pagination: models.NewPagination(q.Page, q.Filter.Limit, total),
		Filters: map[string]any{
			"search":    q.Filter.Search,
			"eventType": optionalString(q.Filter.EventType),
			"cameraId":  optionalString(q.Filter.CameraID),
			"timeRange": q.TimeRange,
		},
		Timestamp: util.NowISO(),
	}, nil
}

// Get returns the event and its snapshots, or ErrNotFound.
func (s *EventService) Get(ctx context.Context, id int64) (*models.EventDetail, error) {
	event, err := s.events.GetByID(ctx, id)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	snaps, err := s.snapshots.ByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.EventDetail{Event: *event, Snapshots: nonNil(snaps), Timestamp: util.NowISO()}, nil
}

func (s *EventService) Types(ctx context.Context) ([]models.TopicCount, error) {
	return s.events.Types(ctx)
}

func (s *EventService) Cameras(ctx context.Context) ([]models.CameraActivity, error) {
	return s.events.Cameras(ctx)
}

func (s *EventService) Geo(ctx context.Context, f models.GeoFilter, token string) (*models.EventGeoPage, error) {
	events, err := s.events.Geo(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("geo events: %w", err)
	}
	return &models.EventGeoPage{
		Events: events,
		Count:  len(events),
		Filters: map[string]any{
			"eventType": optionalString(f.EventType),
			"timeRange": token,
			"limit":     f.Limit,
		},
		Timestamp: util.NowISO(),
	}, nil
}

// Search runs a full-text query against the event index.
func (s *EventService) Search(ctx context.Context, p elasticsearch.SearchParams) (*models.EventSearchResult, error) {
	if s.search == nil {
		return nil, fmt.Errorf("event search: %w", ErrNotConfigured)
	}
	if p.Query == "" {
		return nil, fmt.Errorf("event search: empty query: %w", ErrInvalidInput)
	}
	total, hits, err := s.search.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	return &models.EventSearchResult{
		Query:     p.Query,
		Total:     total,
		Hits:      hits,
		Timestamp: util.NowISO(),
	}, nil
}
