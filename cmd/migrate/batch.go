package main

import (
	"context"

	"eli-dashboard/internal/util"
)

// fetchFunc returns the ids of the next page after the given id plus a
// callback that writes the page.
type fetchFunc func(ctx context.Context, after int64, limit int) ([]int64, func(context.Context) error, error)

// copyBatches walks an id-ordered source page by page until a short page.
func copyBatches(ctx context.Context, limit int, fetch fetchFunc) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	var after int64
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		ids, write, err := fetch(ctx, after, limit)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		if err := write(ctx); err != nil {
			return total, err
		}
		total += len(ids)
		after = ids[len(ids)-1]
		util.Debug("Batch copied", util.Int("rows", len(ids)), util.Int64("after", after))
		if len(ids) < limit {
			return total, nil
		}
	}
}
