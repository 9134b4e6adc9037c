// Package clickhouse stores the login audit trail.
package clickhouse

import (
	"context"
	"fmt"
	"regexp"

	"eli-dashboard/internal/models"
)

// Store is the subset of *client.ClickHouseClient the audit trail needs.
type Store interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
	BatchInsert(ctx context.Context, query string, data [][]interface{}) error
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type AuthAuditRepository struct {
	store Store
	table string
}

func NewAuthAuditRepository(store Store, table string) (*AuthAuditRepository, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid audit table name %q", table)
	}
	return &AuthAuditRepository{store: store, table: table}, nil
}

// EnsureTable creates the audit table with a 90 day TTL.
func (r *AuthAuditRepository) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    event_id   String,
    event_time DateTime64(3, 'UTC'),
    event_type LowCardinality(String),
    outcome    LowCardinality(String),
    ip_address String,
    user_agent String,
    request_id String,
    details    String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(event_time)
ORDER BY (event_time, event_id)
TTL toDateTime(event_time) + INTERVAL 90 DAY`, r.table)

	if err := r.store.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

// Record appends auth events in one batch.
func (r *AuthAuditRepository) Record(ctx context.Context, events ...models.AuthEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, []interface{}{
			e.EventID, e.EventTime.UTC(), e.EventType, e.Outcome,
			e.IPAddress, e.UserAgent, e.RequestID, e.Details,
		})
	}
	q := fmt.Sprintf("INSERT INTO %s (event_id, event_time, event_type, outcome, ip_address, user_agent, request_id, details)", r.table)
	if err := r.store.BatchInsert(ctx, q, rows); err != nil {
		return fmt.Errorf("insert auth events: %w", err)
	}
	return nil
}
