package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"eli-dashboard/internal/models"
)

// DetectionRepository runs the ai/metrics aggregates over ai_detections,
// ai_inference_jobs and ai_anomalies. An empty channelID means all channels.
type DetectionRepository struct {
	db *sql.DB
}

func NewDetectionRepository(db *sql.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ScoreSeries returns the per-minute mean score and count by type.
func (r *DetectionRepository) ScoreSeries(ctx context.Context, start, end int64, channelID string) ([]models.TypeMinuteRow, error) {
	const q = `SELECT (ts / 60000) * 60000 AS minute, type, AVG(score)::float AS avg_score, COUNT(*)::int AS count
FROM ai_detections
WHERE ts BETWEEN $1 AND $2 AND ($3::text IS NULL OR channel_id = $3)
GROUP BY minute, type
ORDER BY minute`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("score series: %w", err)
	}
	defer rows.Close()

	out := []models.TypeMinuteRow{}
	for rows.Next() {
		var m models.TypeMinuteRow
		if err := rows.Scan(&m.Minute, &m.Type, &m.AvgScore, &m.Count); err != nil {
			return nil, fmt.Errorf("scan score series: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TypeTotals counts person and vehicle detections in the window.
func (r *DetectionRepository) TypeTotals(ctx context.Context, start, end int64, channelID string) ([]models.TypeCountRow, error) {
	const q = `SELECT type, COUNT(*)::int AS cnt
FROM ai_detections
WHERE ts BETWEEN $1 AND $2 AND type IN ('person', 'vehicle') AND ($3::text IS NULL OR channel_id = $3)
GROUP BY type`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("type totals: %w", err)
	}
	defer rows.Close()

	out := []models.TypeCountRow{}
	for rows.Next() {
		var t models.TypeCountRow
		if err := rows.Scan(&t.Type, &t.Count); err != nil {
			return nil, fmt.Errorf("scan type total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TypeCountSeries counts person and vehicle detections per minute.
func (r *DetectionRepository) TypeCountSeries(ctx context.Context, start, end int64, channelID string) ([]models.TypeMinuteRow, error) {
	const q = `SELECT (ts / 60000) * 60000 AS minute, type, COUNT(*)::int AS cnt
FROM ai_detections
WHERE ts BETWEEN $1 AND $2 AND type IN ('person', 'vehicle') AND ($3::text IS NULL OR channel_id = $3)
GROUP BY minute, type
ORDER BY minute`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("type count series: %w", err)
	}
	defer rows.Close()

	out := []models.TypeMinuteRow{}
	for rows.Next() {
		var m models.TypeMinuteRow
		if err := rows.Scan(&m.Minute, &m.Type, &m.Count); err != nil {
			return nil, fmt.Errorf("scan type count series: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// JobThroughput counts jobs completed per minute of updated_at.
func (r *DetectionRepository) JobThroughput(ctx context.Context, start, end int64) ([]models.MinuteCount, error) {
	const q = `SELECT (updated_at / 60000) * 60000 AS minute, COUNT(*)::int AS completed
FROM ai_inference_jobs
WHERE status = 'done' AND updated_at BETWEEN $1 AND $2
GROUP BY minute
ORDER BY minute`
	return queryMinuteCounts(ctx, r.db, q, start, end)
}

// JobDurations returns updated_at - created_at for completed jobs.
func (r *DetectionRepository) JobDurations(ctx context.Context, start, end int64) ([]int64, error) {
	const q = `SELECT (updated_at - created_at) AS dur
FROM ai_inference_jobs
WHERE status = 'done' AND updated_at BETWEEN $1 AND $2`

	rows, err := r.db.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, fmt.Errorf("job durations: %w", err)
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var d sql.NullInt64
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan job duration: %w", err)
		}
		if d.Valid {
			out = append(out, d.Int64)
		}
	}
	return out, rows.Err()
}

// JobStatusCounts counts done and error jobs in the window.
func (r *DetectionRepository) JobStatusCounts(ctx context.Context, start, end int64) ([]models.StatusCount, error) {
	const q = `SELECT status, COUNT(*)::int AS cnt
FROM ai_inference_jobs
WHERE updated_at BETWEEN $1 AND $2 AND status IN ('done', 'error')
GROUP BY status`

	rows, err := r.db.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, fmt.Errorf("job status counts: %w", err)
	}
	defer rows.Close()

	out := []models.StatusCount{}
	for rows.Next() {
		var s models.StatusCount
		if err := rows.Scan(&s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("scan job status: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HourHistogram counts detections per UTC hour of day.
func (r *DetectionRepository) HourHistogram(ctx context.Context, start, end int64, channelID string) ([]models.HourCount, error) {
	const q = `SELECT EXTRACT(HOUR FROM to_timestamp(ts / 1000.0) AT TIME ZONE 'UTC')::int AS hour, COUNT(*)::int AS count
FROM ai_detections
WHERE ts BETWEEN $1 AND $2 AND ($3::text IS NULL OR channel_id = $3)
GROUP BY hour
ORDER BY hour`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("hour histogram: %w", err)
	}
	defer rows.Close()

	out := []models.HourCount{}
	for rows.Next() {
		var h models.HourCount
		if err := rows.Scan(&h.Hour, &h.Count); err != nil {
			return nil, fmt.Errorf("scan hour count: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Hotspots ranks channels by detections, named from events in the same window.
func (r *DetectionRepository) Hotspots(ctx context.Context, start, end int64) ([]models.Hotspot, error) {
	const q = `SELECT d.channel_id,
       COALESCE(MAX(e.channel_name), d.channel_id) AS channel_name,
       COUNT(*)::int AS count
FROM ai_detections d
LEFT JOIN events e ON e.channel_id = d.channel_id AND e.start_time BETWEEN $1 AND $2
WHERE d.ts BETWEEN $1 AND $2
GROUP BY d.channel_id
ORDER BY count DESC
LIMIT 10`

	rows, err := r.db.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, fmt.Errorf("hotspots: %w", err)
	}
	defer rows.Close()

	out := []models.Hotspot{}
	for rows.Next() {
		var h models.Hotspot
		var channelID, channelName sql.NullString
		if err := rows.Scan(&channelID, &channelName, &h.Count); err != nil {
			return nil, fmt.Errorf("scan hotspot: %w", err)
		}
		h.ChannelID = channelID.String
		h.ChannelName = channelName.String
		out = append(out, h)
	}
	return out, rows.Err()
}

// ConfidenceHistogram buckets scores into 10 bins over [0,1]. Scores of 1.0
// land in bin 11, below 0 in bin 0.
func (r *DetectionRepository) ConfidenceHistogram(ctx context.Context, start, end int64, channelID string) ([]models.BinCount, error) {
	const q = `SELECT width_bucket(score, 0.0, 1.0, 10) AS bkt, COUNT(*)::int AS count
FROM ai_detections
WHERE ts BETWEEN $1 AND $2 AND ($3::text IS NULL OR channel_id = $3)
GROUP BY bkt
ORDER BY bkt`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("confidence histogram: %w", err)
	}
	defer rows.Close()

	out := []models.BinCount{}
	for rows.Next() {
		var b models.BinCount
		if err := rows.Scan(&b.Bin, &b.Count); err != nil {
			return nil, fmt.Errorf("scan confidence bin: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BaselineAverages returns the mean score per type in [start, end].
func (r *DetectionRepository) BaselineAverages(ctx context.Context, start, end int64, channelID string) ([]models.TypeAverage, error) {
	const q = `SELECT type, AVG(score)::float AS avg_score
FROM ai_detections
WHERE ts BETWEEN $1 AND $2 AND ($3::text IS NULL OR channel_id = $3)
GROUP BY type`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("baseline averages: %w", err)
	}
	defer rows.Close()

	out := []models.TypeAverage{}
	for rows.Next() {
		var a models.TypeAverage
		if err := rows.Scan(&a.Type, &a.AvgScore); err != nil {
			return nil, fmt.Errorf("scan baseline average: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SeverityHistogram bins anomaly scores into 0-1, 1-2, 2-3 and 3+.
func (r *DetectionRepository) SeverityHistogram(ctx context.Context, start, end int64, channelID string) ([]models.SeverityBin, error) {
	const q = `SELECT CASE
         WHEN score < 1 THEN '0-1'
         WHEN score < 2 THEN '1-2'
         WHEN score < 3 THEN '2-3'
         ELSE '3+'
       END AS bin,
       COUNT(*)::int AS count
FROM ai_anomalies
WHERE ts BETWEEN $1 AND $2 AND ($3::text IS NULL OR (entity_type = 'channel' AND entity_id = $3))
GROUP BY bin
ORDER BY bin`

	rows, err := r.db.QueryContext(ctx, q, start, end, optional(channelID))
	if err != nil {
		return nil, fmt.Errorf("severity histogram: %w", err)
	}
	defer rows.Close()

	out := []models.SeverityBin{}
	for rows.Next() {
		var b models.SeverityBin
		if err := rows.Scan(&b.Bin, &b.Count); err != nil {
			return nil, fmt.Errorf("scan severity bin: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AnomalyCount counts anomalies with ts in [since, until].
func (r *DetectionRepository) AnomalyCount(ctx context.Context, since, until int64, channelID string) (int64, error) {
	const q = `SELECT COUNT(*)::int AS cnt
FROM ai_anomalies
WHERE ts >= $1 AND ts <= $2 AND ($3::text IS NULL OR (entity_type = 'channel' AND entity_id = $3))`

	var n int64
	if err := r.db.QueryRowContext(ctx, q, since, until, optional(channelID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("anomaly count: %w", err)
	}
	return n, nil
}
