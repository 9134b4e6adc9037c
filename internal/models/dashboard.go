package models

import "eli-dashboard/internal/timewindow"

type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

type LevelCount struct {
	Level string `json:"level"`
	Count int64  `json:"count"`
}

type TypeCount struct {
	Type  *string `json:"type"`
	Count int64   `json:"count"`
}

type LocationCount struct {
	LocationStatus string `json:"location_status"`
	Count          int64  `json:"count"`
}

// CameraActivity is a per-channel event tally.
type CameraActivity struct {
	ChannelID   string  `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	ChannelType *string `json:"channel_type,omitempty"`
	EventCount  int64   `json:"event_count"`
}

type CameraCount struct {
	ChannelID   string  `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	Count       int64   `json:"count"`
}

type EventTotals struct {
	Total  int64
	Recent int64
}

type SnapshotTotals struct {
	Total      int64
	WithImages int64
}

type DashboardMetrics struct {
	TimeRange           string           `json:"timeRange"`
	TotalEvents         int64            `json:"totalEvents"`
	RecentEvents        int64            `json:"recentEvents"`
	EventTypes          []TopicCount     `json:"eventTypes"`
	GeoDistribution     []LocationCount  `json:"geoDistribution"`
	CameraActivity      []CameraActivity `json:"cameraActivity"`
	TotalSnapshots      int64            `json:"totalSnapshots"`
	SnapshotsWithImages int64            `json:"snapshotsWithImages"`
	Timestamp           string           `json:"timestamp"`
}

type TimelinePoint struct {
	TimeBucket string  `json:"time_bucket"`
	EventCount int64   `json:"event_count"`
	Topic      *string `json:"topic"`
}

// TimelineRow is a raw bucket row; Bucket is epoch ms.
type TimelineRow struct {
	Bucket int64
	Topic  *string
	Count  int64
}

type Timeline struct {
	TimeRange string          `json:"timeRange"`
	Interval  string          `json:"interval"`
	Data      []TimelinePoint `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type Analytics struct {
	TimeRange       string            `json:"timeRange"`
	Window          timewindow.Window `json:"window"`
	EventsByLevel   []LevelCount      `json:"eventsByLevel"`
	TopTopics       []TopicCount      `json:"topTopics"`
	TopCameras      []CameraCount     `json:"topCameras"`
	SnapshotsByType []TypeCount       `json:"snapshotsByType"`
	Timestamp       string            `json:"timestamp"`
}
