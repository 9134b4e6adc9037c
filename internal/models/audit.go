package models

import "time"

// Login outcomes recorded in the audit trail.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
	LoginLocked  = "locked"
	LoginLogout  = "logout"
)

// AuthEvent is one row of the ClickHouse auth_events table.
type AuthEvent struct {
	EventID   string    `db:"event_id"`
	EventTime time.Time `db:"event_time"`
	EventType string    `db:"event_type"`
	Outcome   string    `db:"outcome"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	RequestID string    `db:"request_id"`
	Details   string    `db:"details"`
}
