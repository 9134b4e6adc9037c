package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pagedSource(ids []int64, written *[][]int64) fetchFunc {
	return func(_ context.Context, after int64, limit int) ([]int64, func(context.Context) error, error) {
		var page []int64
		for _, id := range ids {
			if id > after && len(page) < limit {
				page = append(page, id)
			}
		}
		return page, func(context.Context) error {
			*written = append(*written, page)
			return nil
		}, nil
	}
}

func TestCopyBatchesPagesByID(t *testing.T) {
	var written [][]int64
	n, err := copyBatches(context.Background(), 2, pagedSource([]int64{3, 5, 8, 13, 21}, &written))

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, [][]int64{{3, 5}, {8, 13}, {21}}, written)
}

func TestCopyBatchesFullLastPage(t *testing.T) {
	var written [][]int64
	n, err := copyBatches(context.Background(), 2, pagedSource([]int64{1, 2}, &written))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, written, 1)
}

func TestCopyBatchesStopsOnWriteError(t *testing.T) {
	boom := errors.New("boom")
	fetch := func(context.Context, int64, int) ([]int64, func(context.Context) error, error) {
		return []int64{1}, func(context.Context) error { return boom }, nil
	}

	n, err := copyBatches(context.Background(), 10, fetch)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
}

func TestCopyBatchesHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := copyBatches(ctx, 10, func(context.Context, int64, int) ([]int64, func(context.Context) error, error) {
		t.Fatal("fetch after cancel")
		return nil, nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
