package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/util"
)

const eventListColumns = `id, topic, module, level, start_time, latitude, longitude,
       channel_id, channel_name, channel_type, created_at,
       (SELECT COUNT(*) FROM snapshots WHERE event_id = events.id) AS snapshot_count`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func eventFilterWhere(f models.EventFilter) *where {
	w := &where{}
	w.add("start_time >= ?", f.Start)
	if f.End > 0 {
		w.add("start_time <= ?", f.End)
	}
	if f.Search != "" {
		pattern := util.ContainsPattern(f.Search)
		w.addShared("(id::text ILIKE ? OR topic ILIKE ? OR channel_name ILIKE ?)", pattern)
	}
	if f.EventType != "" {
		w.add("topic = ?", f.EventType)
	}
	if f.CameraID != "" {
		w.add("channel_id = ?", f.CameraID)
	}
	return w
}

// List returns one page of events plus the total matching count.
func (r *EventRepository) List(ctx context.Context, f models.EventFilter) ([]models.Event, int64, error) {
	w := eventFilterWhere(f)

	var total int64
	countSQL := "SELECT COUNT(*) FROM events WHERE " + w.String()
	if err := r.db.QueryRowContext(ctx, countSQL, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	listSQL := fmt.Sprintf(`SELECT %s
FROM events
WHERE %s
ORDER BY start_time DESC
LIMIT $%d OFFSET $%d`, eventListColumns, w.String(), len(w.args)+1, len(w.args)+2)
	args := append(append([]any{}, w.args...), f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventList(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func scanEventList(rows *sql.Rows) ([]models.Event, error) {
	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		var snapCount int64
		if err := rows.Scan(&e.ID, &e.Topic, &e.Module, &e.Level, &e.StartTime, &e.Latitude, &e.Longitude,
			&e.ChannelID, &e.ChannelName, &e.ChannelType, &e.CreatedAt, &snapCount); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.SnapshotCount = &snapCount
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// GetByID returns the full event row or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	const q = `SELECT id, topic, module, level, start_time, end_time, latitude, longitude,
       channel_id, channel_name, channel_type, metadata, created_at
FROM events WHERE id = $1`

	var e models.Event
	var metadata []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Topic, &e.Module, &e.Level, &e.StartTime, &e.EndTime,
		&e.Latitude, &e.Longitude, &e.ChannelID, &e.ChannelName, &e.ChannelType, &metadata, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	e.Metadata = nullableJSON(metadata)
	return &e, nil
}

// Types counts every non-null topic, most frequent first.
func (r *EventRepository) Types(ctx context.Context) ([]models.TopicCount, error) {
	const q = `SELECT topic, COUNT(*) AS count
FROM events
WHERE topic IS NOT NULL
GROUP BY topic
ORDER BY count DESC`
	return queryTopicCounts(ctx, r.db, q)
}

// Cameras lists every channel with its event count.
func (r *EventRepository) Cameras(ctx context.Context) ([]models.CameraActivity, error) {
	const q = `SELECT channel_id, channel_name, channel_type, COUNT(*) AS event_count
FROM events
WHERE channel_id IS NOT NULL
GROUP BY channel_id, channel_name, channel_type
ORDER BY event_count DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	out := []models.CameraActivity{}
	for rows.Next() {
		var c models.CameraActivity
		if err := rows.Scan(&c.ChannelID, &c.ChannelName, &c.ChannelType, &c.EventCount); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Geo returns geolocated events with valid coordinates.
func (r *EventRepository) Geo(ctx context.Context, f models.GeoFilter) ([]models.Event, error) {
	w := &where{}
	w.add("start_time >= ?", f.Start)
	w.add("latitude IS NOT NULL")
	w.add("longitude IS NOT NULL")
	w.add("latitude BETWEEN -90 AND 90")
	w.add("longitude BETWEEN -180 AND 180")
	if f.EventType != "" {
		w.add("topic = ?", f.EventType)
	}
	q := fmt.Sprintf(`SELECT %s
FROM events
WHERE %s
ORDER BY start_time DESC
LIMIT %s`, eventListColumns, w.String(), w.next())
	args := append(w.args, f.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("geo events: %w", err)
	}
	defer rows.Close()
	return scanEventList(rows)
}

// DashboardGeo is the map-panel variant: snapshot counts come from a join.
func (r *EventRepository) DashboardGeo(ctx context.Context, f models.GeoFilter) ([]models.Event, error) {
	w := &where{}
	w.add("e.start_time >= ?", f.Start)
	w.add("e.latitude IS NOT NULL")
	w.add("e.longitude IS NOT NULL")
	if f.EventType != "" {
		w.add("e.topic = ?", f.EventType)
	}
	q := fmt.Sprintf(`SELECT e.id, e.topic, e.module, e.level, e.start_time, e.latitude, e.longitude,
       e.channel_id, e.channel_name, e.channel_type, e.created_at, COUNT(s.id) AS snapshot_count
FROM events e
LEFT JOIN snapshots s ON e.id = s.event_id
WHERE %s
GROUP BY e.id, e.topic, e.module, e.level, e.channel_id, e.channel_name,
         e.channel_type, e.start_time, e.latitude, e.longitude, e.created_at
ORDER BY e.start_time DESC
LIMIT %s`, w.String(), w.next())
	args := append(w.args, f.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("dashboard geo events: %w", err)
	}
	defer rows.Close()
	return scanEventList(rows)
}

// Since returns events with start_time >= start in id order, for the
// search indexer and the graph sync.
func (r *EventRepository) Since(ctx context.Context, start int64, afterID int64, limit int) ([]models.Event, error) {
	const q = `SELECT id, topic, module, level, start_time, end_time, latitude, longitude,
       channel_id, channel_name, channel_type, metadata, created_at
FROM events
WHERE start_time >= $1 AND id > $2
ORDER BY id
LIMIT $3`

	rows, err := r.db.QueryContext(ctx, q, start, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("events since: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		var e models.Event
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.Topic, &e.Module, &e.Level, &e.StartTime, &e.EndTime,
			&e.Latitude, &e.Longitude, &e.ChannelID, &e.ChannelName, &e.ChannelType, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Metadata = nullableJSON(metadata)
		out = append(out, e)
	}
	return out, rows.Err()
}

func queryTopicCounts(ctx context.Context, db *sql.DB, q string, args ...any) ([]models.TopicCount, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("topic counts: %w", err)
	}
	defer rows.Close()

	out := []models.TopicCount{}
	for rows.Next() {
		var t models.TopicCount
		if err := rows.Scan(&t.Topic, &t.Count); err != nil {
			return nil, fmt.Errorf("scan topic count: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
