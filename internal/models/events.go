package models

import (
	"encoding/json"
	"time"
)

// Event is one row of the events table. start_time and end_time are epoch ms.
type Event struct {
	ID            int64           `json:"id"`
	Topic         *string         `json:"topic"`
	Module        *string         `json:"module"`
	Level         *string         `json:"level"`
	StartTime     int64           `json:"start_time"`
	EndTime       *int64          `json:"end_time,omitempty"`
	Latitude      *float64        `json:"latitude"`
	Longitude     *float64        `json:"longitude"`
	ChannelID     *string         `json:"channel_id"`
	ChannelName   *string         `json:"channel_name"`
	ChannelType   *string         `json:"channel_type"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     *time.Time      `json:"created_at"`
	SnapshotCount *int64          `json:"snapshot_count,omitempty"`
}

type EventFilter struct {
	Search    string
	EventType string
	CameraID  string
	Start     int64
	End       int64
	Limit     int
	Offset    int
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// NewPagination computes the page count the way the dashboard expects (ceil).
func NewPagination(page, limit int, total int64) Pagination {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type EventPage struct {
	Events     []Event        `json:"events"`
	Pagination Pagination     `json:"pagination"`
	Filters    map[string]any `json:"filters"`
	Timestamp  string         `json:"timestamp"`
}

type EventDetail struct {
	Event     Event      `json:"event"`
	Snapshots []Snapshot `json:"snapshots"`
	Timestamp string     `json:"timestamp"`
}

type GeoFilter struct {
	EventType string
	Start     int64
	End       int64
	Limit     int
}

// EventSearchHit is an event document returned by full-text search.
type EventSearchHit struct {
	Event
	Score float64 `json:"score"`
}

type EventSearchResult struct {
	Query     string           `json:"query"`
	Total     int64            `json:"total"`
	Hits      []EventSearchHit `json:"hits"`
	Timestamp string           `json:"timestamp"`
}

// GeoEvents is the dashboard map panel payload.
type GeoEvents struct {
	Events    []Event `json:"events"`
	TimeRange string  `json:"timeRange"`
	EventType *string `json:"eventType,omitempty"`
	Total     int     `json:"total"`
	Timestamp string  `json:"timestamp"`
}

type EventGeoPage struct {
	Events    []Event        `json:"events"`
	Count     int            `json:"count"`
	Filters   map[string]any `json:"filters"`
	Timestamp string         `json:"timestamp"`
}
