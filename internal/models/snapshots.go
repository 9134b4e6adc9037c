package models

import "time"

type Snapshot struct {
	ID        int64      `json:"id"`
	EventID   int64      `json:"event_id"`
	Type      *string    `json:"type"`
	Path      *string    `json:"path"`
	ImageURL  *string    `json:"image_url"`
	CreatedAt *time.Time `json:"created_at"`
}

// SnapshotListItem is a snapshot with the owning event's headline fields.
type SnapshotListItem struct {
	Snapshot
	Topic       *string `json:"topic"`
	ChannelID   *string `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	StartTime   *int64  `json:"start_time"`
}

type SnapshotDetail struct {
	Snapshot
	Topic       *string  `json:"topic"`
	Module      *string  `json:"module"`
	Level       *string  `json:"level"`
	ChannelID   *string  `json:"channel_id"`
	ChannelName *string  `json:"channel_name"`
	ChannelType *string  `json:"channel_type"`
	StartTime   *int64   `json:"start_time"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type SnapshotFilter struct {
	EventID string
	Type    string
	Start   int64
	End     int64
	Limit   int
	Offset  int
}

type SnapshotPage struct {
	Snapshots  []SnapshotListItem `json:"snapshots"`
	Pagination Pagination         `json:"pagination"`
	Filters    map[string]any     `json:"filters"`
	Timestamp  string             `json:"timestamp"`
}

// MediaLocation is where a legacy media path resolves to.
type MediaLocation struct {
	ImageURL *string
	Path     *string
}

// Target prefers the stored image URL over the raw path.
func (m MediaLocation) Target() string {
	if m.ImageURL != nil && *m.ImageURL != "" {
		return *m.ImageURL
	}
	if m.Path != nil {
		return *m.Path
	}
	return ""
}
