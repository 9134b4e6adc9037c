package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"eli-dashboard/internal/models"
)

type InsightRepository struct {
	db *sql.DB
}

func NewInsightRepository(db *sql.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Insert stores one generated insight and returns its id.
func (r *InsightRepository) Insert(ctx context.Context, in models.Insight) (int64, error) {
	const q = `INSERT INTO ai_insights (scope, scope_id, summary, recommendations, context, ts)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

	recs := in.Recommendations
	if recs == nil {
		recs = []string{}
	}
	var id int64
	err := r.db.QueryRowContext(ctx, q, in.Scope, in.ScopeID, in.Summary, pq.Array(recs), jsonArg(in.Context), in.Ts).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert insight: %w", err)
	}
	return id, nil
}

// List returns insights for a scope since f.Since, newest first.
func (r *InsightRepository) List(ctx context.Context, f models.InsightFilter) ([]models.Insight, error) {
	w := &where{}
	w.add("scope = ?", f.Scope)
	w.add("ts >= ?", f.Since)
	if f.ScopeID != "" {
		w.add("scope_id = ?", f.ScopeID)
	}
	q := fmt.Sprintf(`SELECT id, scope, scope_id, summary, recommendations, context, ts
FROM ai_insights
WHERE %s
ORDER BY ts DESC
LIMIT %s`, w.String(), w.next())
	args := append(w.args, f.Limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := []models.Insight{}
	for rows.Next() {
		var in models.Insight
		var recs pq.StringArray
		var ctxJSON []byte
		if err := rows.Scan(&in.ID, &in.Scope, &in.ScopeID, &in.Summary, &recs, &ctxJSON, &in.Ts); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		in.Recommendations = []string(recs)
		if in.Recommendations == nil {
			in.Recommendations = []string{}
		}
		in.Context = nullableJSON(ctxJSON)
		out = append(out, in)
	}
	return out, rows.Err()
}
