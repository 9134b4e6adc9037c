package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/postgres"
	"eli-dashboard/internal/util"
)

type SnapshotStore interface {
	List(ctx context.Context, f models.SnapshotFilter) ([]models.SnapshotListItem, int64, error)
	GetByID(ctx context.Context, id int64) (*models.SnapshotDetail, error)
	Types(ctx context.Context) ([]models.TypeCount, error)
}

type SnapshotService struct {
	store  SnapshotStore
	logger *zap.Logger
}

func NewSnapshotService(store SnapshotStore, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{store: store, logger: logger}
}

func (s *SnapshotService) List(ctx context.Context, f models.SnapshotFilter, page int, token string) (*models.SnapshotPage, error) {
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &models.SnapshotPage{
		Snapshots:  items,
		Pagination: models.NewPagination(page, f.Limit, total),
		Filters: map[string]any{
			"eventId":   optionalString(f.EventID),
			"type":      optionalString(f.Type),
			"timeRange": token,
		},
		Timestamp: util.NowISO(),
	}, nil
}

func (s *SnapshotService) Get(ctx context.Context, id int64) (*models.SnapshotDetail, error) {
	snap, err := s.store.GetByID(ctx, id)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	return snap, err
}

func (s *SnapshotService) Types(ctx context.Context) ([]models.TypeCount, error) {
	return s.store.Types(ctx)
}
