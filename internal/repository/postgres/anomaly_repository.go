package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"eli-dashboard/internal/models"
)

type AnomalyRepository struct {
	db *sql.DB
}

func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{db: db}
}

// InsertBatch writes all anomalies in one multi-row INSERT.
func (r *AnomalyRepository) InsertBatch(ctx context.Context, anomalies []models.Anomaly) error {
	if len(anomalies) == 0 {
		return nil
	}

	const cols = 9
	values := make([]string, 0, len(anomalies))
	args := make([]any, 0, len(anomalies)*cols)
	for i, a := range anomalies {
		base := i * cols
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args, a.Metric, a.EntityType, a.EntityID, a.Value, a.Score, a.Threshold,
			jsonArg(a.Window), jsonArg(a.Context), a.Ts)
	}

	q := `INSERT INTO ai_anomalies (metric, entity_type, entity_id, value, score, threshold, "window", context, ts)
VALUES ` + strings.Join(values, ", ")
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert anomalies: %w", err)
	}
	return nil
}

// After returns up to limit anomalies with ts > after, oldest first.
func (r *AnomalyRepository) After(ctx context.Context, after int64, limit int) ([]models.Anomaly, error) {
	const q = `SELECT id, metric, entity_type, entity_id, value, score, threshold, "window", context, ts
FROM ai_anomalies
WHERE ts > $1
ORDER BY ts ASC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, after, limit)
	if err != nil {
		return nil, fmt.Errorf("anomalies after %d: %w", after, err)
	}
	defer rows.Close()

	out := []models.Anomaly{}
	for rows.Next() {
		var a models.Anomaly
		var window, ctxJSON []byte
		if err := rows.Scan(&a.ID, &a.Metric, &a.EntityType, &a.EntityID, &a.Value, &a.Score, &a.Threshold,
			&window, &ctxJSON, &a.Ts); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Window = nullableJSON(window)
		a.Context = nullableJSON(ctxJSON)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Recent returns up to limit anomalies in [start, end], newest first.
func (r *AnomalyRepository) Recent(ctx context.Context, start, end int64, limit int) ([]models.Anomaly, error) {
	const q = `SELECT metric, entity_type, entity_id, value, score, threshold, ts
FROM ai_anomalies
WHERE ts BETWEEN $1 AND $2
ORDER BY ts DESC
LIMIT $3`

	rows, err := r.db.QueryContext(ctx, q, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("recent anomalies: %w", err)
	}
	defer rows.Close()

	out := []models.Anomaly{}
	for rows.Next() {
		var a models.Anomaly
		if err := rows.Scan(&a.Metric, &a.EntityType, &a.EntityID, &a.Value, &a.Score, &a.Threshold, &a.Ts); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// jsonArg binds a RawMessage as JSONB text, NULL when empty.
func jsonArg(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
