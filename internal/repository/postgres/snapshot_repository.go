package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/util"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func snapshotFilterWhere(f models.SnapshotFilter) *where {
	w := &where{}
	w.add("e.start_time >= ?", f.Start)
	if f.End > 0 {
		w.add("e.start_time <= ?", f.End)
	}
	if f.EventID != "" {
		w.add("s.event_id::text = ?", f.EventID)
	}
	if f.Type != "" {
		w.add("s.type = ?", f.Type)
	}
	return w
}

// List pages snapshots joined with their event, newest first. The window
// applies to the event's start_time.
func (r *SnapshotRepository) List(ctx context.Context, f models.SnapshotFilter) ([]models.SnapshotListItem, int64, error) {
	w := snapshotFilterWhere(f)

	var total int64
	countSQL := `SELECT COUNT(*)
FROM snapshots s
JOIN events e ON s.event_id = e.id
WHERE ` + w.String()
	if err := r.db.QueryRowContext(ctx, countSQL, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count snapshots: %w", err)
	}

	listSQL := fmt.Sprintf(`SELECT s.id, s.event_id, s.type, s.path, s.image_url, s.created_at,
       e.topic, e.channel_id, e.channel_name, e.start_time
FROM snapshots s
JOIN events e ON s.event_id = e.id
WHERE %s
ORDER BY s.created_at DESC
LIMIT $%d OFFSET $%d`, w.String(), len(w.args)+1, len(w.args)+2)
	args := append(append([]any{}, w.args...), f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := []models.SnapshotListItem{}
	for rows.Next() {
		var s models.SnapshotListItem
		if err := rows.Scan(&s.ID, &s.EventID, &s.Type, &s.Path, &s.ImageURL, &s.CreatedAt,
			&s.Topic, &s.ChannelID, &s.ChannelName, &s.StartTime); err != nil {
			return nil, 0, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, total, nil
}

// GetByID returns the snapshot joined with its event or ErrNotFound.
func (r *SnapshotRepository) GetByID(ctx context.Context, id int64) (*models.SnapshotDetail, error) {
	const q = `SELECT s.id, s.event_id, s.type, s.path, s.image_url, s.created_at,
       e.topic, e.module, e.level, e.channel_id, e.channel_name,
       e.channel_type, e.start_time, e.latitude, e.longitude
FROM snapshots s
JOIN events e ON s.event_id = e.id
WHERE s.id = $1`

	var s models.SnapshotDetail
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.EventID, &s.Type, &s.Path, &s.ImageURL, &s.CreatedAt,
		&s.Topic, &s.Module, &s.Level, &s.ChannelID, &s.ChannelName, &s.ChannelType, &s.StartTime, &s.Latitude, &s.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	return &s, nil
}

// ByEvent lists the snapshots of one event, newest first.
func (r *SnapshotRepository) ByEvent(ctx context.Context, eventID int64) ([]models.Snapshot, error) {
	const q = `SELECT id, event_id, type, path, image_url, created_at
FROM snapshots
WHERE event_id = $1
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("snapshots for event %d: %w", eventID, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// Since pages snapshots of events starting at or after start, in id order.
func (r *SnapshotRepository) Since(ctx context.Context, start int64, afterID int64, limit int) ([]models.Snapshot, error) {
	const q = `SELECT s.id, s.event_id, s.type, s.path, s.image_url, s.created_at
FROM snapshots s
JOIN events e ON s.event_id = e.id
WHERE e.start_time >= $1 AND s.id > $2
ORDER BY s.id
LIMIT $3`

	rows, err := r.db.QueryContext(ctx, q, start, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("snapshots since: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]models.Snapshot, error) {
	out := []models.Snapshot{}
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.EventID, &s.Type, &s.Path, &s.ImageURL, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Types counts snapshots per non-null type.
func (r *SnapshotRepository) Types(ctx context.Context) ([]models.TypeCount, error) {
	const q = `SELECT type, COUNT(*) AS count
FROM snapshots
WHERE type IS NOT NULL
GROUP BY type
ORDER BY count DESC`
	return queryTypeCounts(ctx, r.db, q)
}

// FindByPath matches snapshots.path exactly.
func (r *SnapshotRepository) FindByPath(ctx context.Context, path string) (*models.MediaLocation, error) {
	const q = `SELECT image_url, path FROM snapshots WHERE path = $1 LIMIT 1`
	return r.findMedia(ctx, q, path)
}

// FindByPathSuffix returns the newest snapshot whose path ends in "/"+suffix.
func (r *SnapshotRepository) FindByPathSuffix(ctx context.Context, suffix string) (*models.MediaLocation, error) {
	const q = `SELECT image_url, path FROM snapshots WHERE path LIKE $1 ORDER BY created_at DESC LIMIT 1`
	return r.findMedia(ctx, q, "%/"+util.EscapeLike(suffix))
}

func (r *SnapshotRepository) findMedia(ctx context.Context, q string, arg string) (*models.MediaLocation, error) {
	var loc models.MediaLocation
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&loc.ImageURL, &loc.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find media: %w", err)
	}
	return &loc, nil
}

func queryTypeCounts(ctx context.Context, db *sql.DB, q string, args ...any) ([]models.TypeCount, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("type counts: %w", err)
	}
	defer rows.Close()

	out := []models.TypeCount{}
	for rows.Next() {
		var t models.TypeCount
		if err := rows.Scan(&t.Type, &t.Count); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
