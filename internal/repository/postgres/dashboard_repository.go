package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"eli-dashboard/internal/models"
)

// DashboardRepository serves the executive KPI, timeline and analytics panels.
type DashboardRepository struct {
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// windowWhere builds "<col> >= $1 [AND <col> <= $2]".
func windowWhere(col string, start, end int64) *where {
	w := &where{}
	w.add(col+" >= ?", start)
	if end > 0 {
		w.add(col+" <= ?", end)
	}
	return w
}

// EventTotals counts all events and those starting at or after start.
func (r *DashboardRepository) EventTotals(ctx context.Context, start int64) (models.EventTotals, error) {
	const q = `SELECT COUNT(*) AS total_events,
       COUNT(CASE WHEN start_time >= $1 THEN 1 END) AS recent_events
FROM events`

	var t models.EventTotals
	if err := r.db.QueryRowContext(ctx, q, start).Scan(&t.Total, &t.Recent); err != nil {
		return t, fmt.Errorf("event totals: %w", err)
	}
	return t, nil
}

// TopTopics returns the ten most frequent topics in the window.
func (r *DashboardRepository) TopTopics(ctx context.Context, start, end int64) ([]models.TopicCount, error) {
	w := windowWhere("start_time", start, end)
	w.add("topic IS NOT NULL")
	q := `SELECT topic, COUNT(*) AS count
FROM events
WHERE ` + w.String() + `
GROUP BY topic
ORDER BY count DESC
LIMIT 10`
	return queryTopicCounts(ctx, r.db, q, w.args...)
}

// GeoDistribution splits window events by whether they carry coordinates.
func (r *DashboardRepository) GeoDistribution(ctx context.Context, start int64) ([]models.LocationCount, error) {
	const q = `SELECT CASE WHEN latitude IS NOT NULL AND longitude IS NOT NULL THEN 'with_location'
            ELSE 'without_location' END AS location_status,
       COUNT(*) AS count
FROM events
WHERE start_time >= $1
GROUP BY location_status`

	rows, err := r.db.QueryContext(ctx, q, start)
	if err != nil {
		return nil, fmt.Errorf("geo distribution: %w", err)
	}
	defer rows.Close()

	out := []models.LocationCount{}
	for rows.Next() {
		var l models.LocationCount
		if err := rows.Scan(&l.LocationStatus, &l.Count); err != nil {
			return nil, fmt.Errorf("scan location count: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CameraActivity returns the ten busiest channels since start.
func (r *DashboardRepository) CameraActivity(ctx context.Context, start int64) ([]models.CameraActivity, error) {
	const q = `SELECT channel_id, channel_name, COUNT(*) AS event_count
FROM events
WHERE start_time >= $1 AND channel_id IS NOT NULL
GROUP BY channel_id, channel_name
ORDER BY event_count DESC
LIMIT 10`

	rows, err := r.db.QueryContext(ctx, q, start)
	if err != nil {
		return nil, fmt.Errorf("camera activity: %w", err)
	}
	defer rows.Close()

	out := []models.CameraActivity{}
	for rows.Next() {
		var c models.CameraActivity
		if err := rows.Scan(&c.ChannelID, &c.ChannelName, &c.EventCount); err != nil {
			return nil, fmt.Errorf("scan camera activity: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SnapshotTotals counts snapshots of window events and those with an image URL.
func (r *DashboardRepository) SnapshotTotals(ctx context.Context, start int64) (models.SnapshotTotals, error) {
	const q = `SELECT COUNT(*) AS total_snapshots,
       COUNT(CASE WHEN s.image_url IS NOT NULL THEN 1 END) AS with_images
FROM snapshots s
JOIN events e ON s.event_id = e.id
WHERE e.start_time >= $1`

	var t models.SnapshotTotals
	if err := r.db.QueryRowContext(ctx, q, start).Scan(&t.Total, &t.WithImages); err != nil {
		return t, fmt.Errorf("snapshot totals: %w", err)
	}
	return t, nil
}

// Timeline counts events per (bucket, topic). bucketMs is the interval width.
func (r *DashboardRepository) Timeline(ctx context.Context, start int64, bucketMs int64, eventType, cameraID string) ([]models.TimelineRow, error) {
	w := &where{}
	w.add("start_time >= ?", start)
	if eventType != "" {
		w.add("topic = ?", eventType)
	}
	if cameraID != "" {
		w.add("channel_id = ?", cameraID)
	}
	bucket := w.next()
	args := append(w.args, bucketMs)
	q := fmt.Sprintf(`SELECT (start_time / %[1]s) * %[1]s AS bucket, topic, COUNT(*) AS event_count
FROM events
WHERE %[2]s
GROUP BY bucket, topic
ORDER BY bucket`, bucket+"::bigint", w.String())

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	defer rows.Close()

	out := []models.TimelineRow{}
	for rows.Next() {
		var t models.TimelineRow
		if err := rows.Scan(&t.Bucket, &t.Topic, &t.Count); err != nil {
			return nil, fmt.Errorf("scan timeline row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EventsByLevel groups window events by level, NULL reported as UNKNOWN.
func (r *DashboardRepository) EventsByLevel(ctx context.Context, start, end int64) ([]models.LevelCount, error) {
	w := windowWhere("start_time", start, end)
	q := `SELECT COALESCE(level, 'UNKNOWN') AS level, COUNT(*)::int AS count
FROM events
WHERE ` + w.String() + `
GROUP BY level
ORDER BY count DESC`

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("events by level: %w", err)
	}
	defer rows.Close()

	out := []models.LevelCount{}
	for rows.Next() {
		var l models.LevelCount
		if err := rows.Scan(&l.Level, &l.Count); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// TopCameras returns the ten busiest channels in the window.
func (r *DashboardRepository) TopCameras(ctx context.Context, start, end int64) ([]models.CameraCount, error) {
	w := windowWhere("start_time", start, end)
	w.add("channel_id IS NOT NULL")
	q := `SELECT channel_id, channel_name, COUNT(*)::int AS count
FROM events
WHERE ` + w.String() + `
GROUP BY channel_id, channel_name
ORDER BY count DESC
LIMIT 10`

	rows, err := r.db.QueryContext(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("top cameras: %w", err)
	}
	defer rows.Close()

	out := []models.CameraCount{}
	for rows.Next() {
		var c models.CameraCount
		if err := rows.Scan(&c.ChannelID, &c.ChannelName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan camera count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SnapshotsByType counts snapshots of window events per type.
func (r *DashboardRepository) SnapshotsByType(ctx context.Context, start, end int64) ([]models.TypeCount, error) {
	w := windowWhere("e.start_time", start, end)
	q := `SELECT s.type, COUNT(*)::int AS count
FROM snapshots s
JOIN events e ON e.id = s.event_id
WHERE ` + w.String() + `
GROUP BY s.type
ORDER BY count DESC`
	return queryTypeCounts(ctx, r.db, q, w.args...)
}

// EventsPerMinute counts events per minute bucket (epoch ms) in [start, end].
func (r *DashboardRepository) EventsPerMinute(ctx context.Context, start, end int64) ([]models.MinuteCount, error) {
	const q = `SELECT (start_time / 60000) * 60000 AS minute, COUNT(*) AS count
FROM events
WHERE start_time >= $1 AND start_time <= $2
GROUP BY minute
ORDER BY minute`
	return queryMinuteCounts(ctx, r.db, q, start, end)
}

// TopChannels ranks channels by event count in [start, end].
func (r *DashboardRepository) TopChannels(ctx context.Context, start, end int64, limit int) ([]models.ChannelCount, error) {
	const q = `SELECT channel_id, channel_name, COUNT(*)::int AS events
FROM events
WHERE start_time BETWEEN $1 AND $2
GROUP BY channel_id, channel_name
ORDER BY events DESC
LIMIT $3`

	rows, err := r.db.QueryContext(ctx, q, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("top channels: %w", err)
	}
	defer rows.Close()

	out := []models.ChannelCount{}
	for rows.Next() {
		var c models.ChannelCount
		if err := rows.Scan(&c.ChannelID, &c.ChannelName, &c.Events); err != nil {
			return nil, fmt.Errorf("scan channel count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ChannelBaselines summarizes per-channel activity for behavior analysis.
func (r *DashboardRepository) ChannelBaselines(ctx context.Context, start, end int64, limit int) ([]models.ChannelBaseline, error) {
	const q = `SELECT channel_id, channel_name,
       COUNT(*)::int AS events,
       COUNT(DISTINCT topic)::int AS topics,
       MIN(start_time)::bigint AS first_ts,
       MAX(start_time)::bigint AS last_ts
FROM events
WHERE start_time >= $1 AND start_time <= $2
GROUP BY channel_id, channel_name
ORDER BY events DESC
LIMIT $3`

	rows, err := r.db.QueryContext(ctx, q, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("channel baselines: %w", err)
	}
	defer rows.Close()

	out := []models.ChannelBaseline{}
	for rows.Next() {
		var b models.ChannelBaseline
		if err := rows.Scan(&b.ChannelID, &b.ChannelName, &b.Events, &b.Topics, &b.FirstTs, &b.LastTs); err != nil {
			return nil, fmt.Errorf("scan channel baseline: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryMinuteCounts(ctx context.Context, db *sql.DB, q string, args ...any) ([]models.MinuteCount, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("minute counts: %w", err)
	}
	defer rows.Close()

	out := []models.MinuteCount{}
	for rows.Next() {
		var m models.MinuteCount
		if err := rows.Scan(&m.Minute, &m.Count); err != nil {
			return nil, fmt.Errorf("scan minute count: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
