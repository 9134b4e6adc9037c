package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/postgres"
)

type fakeSnapshotStore struct {
	items  []models.SnapshotListItem
	total  int64
	filter models.SnapshotFilter
	err    error
}

func (f *fakeSnapshotStore) List(_ context.Context, filter models.SnapshotFilter) ([]models.SnapshotListItem, int64, error) {
	f.filter = filter
	return f.items, f.total, f.err
}

func (f *fakeSnapshotStore) GetByID(_ context.Context, id int64) (*models.SnapshotDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, it := range f.items {
		if it.ID == id {
			return &models.SnapshotDetail{Snapshot: it.Snapshot}, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeSnapshotStore) Types(context.Context) ([]models.TypeCount, error) {
	return nil, f.err
}

func TestSnapshotListPagination(t *testing.T) {
	store := &fakeSnapshotStore{
		items: []models.SnapshotListItem{{Snapshot: models.Snapshot{ID: 3}}},
		total: 101,
	}
	svc := NewSnapshotService(store, zap.NewNop())

	page, err := svc.List(context.Background(), models.SnapshotFilter{EventID: "42", Limit: 50, Offset: 50}, 2, "7d")
	require.NoError(t, err)
	assert.Equal(t, models.Pagination{Page: 2, Limit: 50, Total: 101, Pages: 3}, page.Pagination)
	assert.Equal(t, 50, store.filter.Offset)
	assert.Equal(t, "7d", page.Filters["timeRange"])
	assert.Nil(t, page.Filters["type"])
	require.NotNil(t, page.Filters["eventId"])
	assert.Equal(t, "42", *page.Filters["eventId"].(*string))
}

func TestSnapshotListPassesStoreError(t *testing.T) {
	boom := errors.New("pool closed")
	svc := NewSnapshotService(&fakeSnapshotStore{err: boom}, zap.NewNop())

	_, err := svc.List(context.Background(), models.SnapshotFilter{Limit: 10}, 1, "24h")
	assert.ErrorIs(t, err, boom)
}

func TestSnapshotGet(t *testing.T) {
	store := &fakeSnapshotStore{items: []models.SnapshotListItem{{Snapshot: models.Snapshot{ID: 3, EventID: 9}}}}
	svc := NewSnapshotService(store, zap.NewNop())

	snap, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.EventID)

	_, err = svc.Get(context.Background(), 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "snapshot 4")
}

func TestSnapshotGetKeepsOtherErrors(t *testing.T) {
	boom := errors.New("timeout")
	svc := NewSnapshotService(&fakeSnapshotStore{err: boom}, zap.NewNop())

	_, err := svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
