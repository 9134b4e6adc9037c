package models

import "eli-dashboard/internal/timewindow"

// GraphNode is a flattened node for the topology view.
type GraphNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label"`
}

type Graph struct {
	Nodes     []GraphNode       `json:"nodes"`
	Edges     []GraphEdge       `json:"edges"`
	TimeRange string            `json:"timeRange"`
	Window    timewindow.Window `json:"window"`
	Timestamp string            `json:"timestamp"`
}

type Watchlist struct {
	ID    any     `json:"id"`
	Name  *string `json:"name"`
	Level any     `json:"level"`
}

type FaceIdentity struct {
	ID         any         `json:"id"`
	Similarity *float64    `json:"similarity"`
	FirstName  *string     `json:"first_name"`
	LastName   *string     `json:"last_name"`
	Watchlists []Watchlist `json:"watchlists"`
	Events     int64       `json:"events"`
}

type PlateIdentity struct {
	ID             any         `json:"id"`
	Number         *string     `json:"number"`
	State          *string     `json:"state"`
	OwnerFirstName *string     `json:"owner_first_name"`
	OwnerLastName  *string     `json:"owner_last_name"`
	Watchlists     []Watchlist `json:"watchlists"`
	Events         int64       `json:"events"`
}

type Identities struct {
	TimeRange string            `json:"timeRange"`
	Window    timewindow.Window `json:"window"`
	Faces     []FaceIdentity    `json:"faces"`
	Plates    []PlateIdentity   `json:"plates"`
	Timestamp string            `json:"timestamp"`
}
