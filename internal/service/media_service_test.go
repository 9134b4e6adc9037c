package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/postgres"
)

type fakeMediaStore struct {
	exact    map[string]models.MediaLocation
	suffixes map[string]models.MediaLocation
	lookups  []string
}

func (f *fakeMediaStore) FindByPath(_ context.Context, p string) (*models.MediaLocation, error) {
	f.lookups = append(f.lookups, "exact:"+p)
	if loc, ok := f.exact[p]; ok {
		return &loc, nil
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeMediaStore) FindByPathSuffix(_ context.Context, suffix string) (*models.MediaLocation, error) {
	f.lookups = append(f.lookups, "suffix:"+suffix)
	for stored, loc := range f.suffixes {
		if strings.HasSuffix(stored, suffix) {
			return &loc, nil
		}
	}
	return nil, postgres.ErrNotFound
}

type fakePresigner struct{}

func (fakePresigner) Presign(_ context.Context, location string) (string, error) {
	return "https://signed.example/" + strings.TrimPrefix(location, "s3://"), nil
}

func TestMediaResolveExactPath(t *testing.T) {
	url := "https://cdn.example/a.jpg"
	store := &fakeMediaStore{exact: map[string]models.MediaLocation{"/api/v1/media/a.jpg": {ImageURL: &url}}}
	svc := NewMediaService(store, nil, zap.NewNop())

	got, err := svc.Resolve(context.Background(), "/api/v1/media/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, url, got)
}

func TestMediaResolveLegacySnapshotSuffix(t *testing.T) {
	p := "/data/snapshot/2024/b.jpg"
	store := &fakeMediaStore{suffixes: map[string]models.MediaLocation{p: {Path: &p}}}
	svc := NewMediaService(store, nil, zap.NewNop())

	got, err := svc.Resolve(context.Background(), "/api/snapshot/2024/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, []string{"exact:/api/snapshot/2024/b.jpg", "suffix:snapshot/2024/b.jpg"}, store.lookups)
}

func TestMediaResolveFallsBackToFilename(t *testing.T) {
	p := "/elsewhere/c.jpg"
	store := &fakeMediaStore{suffixes: map[string]models.MediaLocation{p: {Path: &p}}}
	svc := NewMediaService(store, nil, zap.NewNop())

	got, err := svc.Resolve(context.Background(), "/api/v1/media/nested/dir/c.jpg")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "suffix:c.jpg", store.lookups[len(store.lookups)-1])
}

func TestMediaResolveNotFound(t *testing.T) {
	svc := NewMediaService(&fakeMediaStore{}, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "/api/v1/media/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMediaResolvePresignsS3(t *testing.T) {
	p := "s3://bucket/snapshot/d.jpg"
	store := &fakeMediaStore{exact: map[string]models.MediaLocation{"/api/v1/media/snapshot/d.jpg": {Path: &p}}}

	got, err := NewMediaService(store, fakePresigner{}, zap.NewNop()).Resolve(context.Background(), "/api/v1/media/snapshot/d.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/bucket/snapshot/d.jpg", got)

	got, err = NewMediaService(store, nil, zap.NewNop()).Resolve(context.Background(), "/api/v1/media/snapshot/d.jpg")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}
