package service

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/bucketing"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
)

func cameraNode(elementID, channel string) dbtype.Node {
	return dbtype.Node{
		ElementId: elementID,
		Labels:    []string{"Camera"},
		Props:     map[string]any{"channel_id": channel, "name": "Gate " + channel},
	}
}

func TestFlattenGraphDedupesNodesAndEdges(t *testing.T) {
	cam := cameraNode("4:a:1", "7")
	ev1 := dbtype.Node{ElementId: "4:a:2", Labels: []string{"Event"}, Props: map[string]any{"channel_id": "7", "start_time": int64(1000), "topic": "Intrusion"}}
	ev2 := dbtype.Node{ElementId: "4:a:3", Labels: []string{"Event"}, Props: map[string]any{"channel_id": "7", "start_time": int64(2000)}}

	records := []map[string]any{
		{"c": cam, "e": ev1, "r": dbtype.Relationship{StartElementId: "4:a:2", EndElementId: "4:a:1", Type: "CAPTURED_BY"}},
		{"c": &cam, "e": ev2, "r": dbtype.Relationship{StartElementId: "4:a:3", EndElementId: "4:a:1", Type: "CAPTURED_BY"}},
		{"e": ev1, "r": &dbtype.Relationship{StartElementId: "4:a:2", EndElementId: "4:a:1", Type: "CAPTURED_BY"}},
	}

	nodes, edges := flattenGraph(records, bucketing.NewBucketingManager())

	require.Len(t, nodes, 3)
	ids := map[string]models.GraphNode{}
	for _, n := range nodes {
		ids[n.ID] = n
	}
	require.Contains(t, ids, "camera_7")
	assert.Equal(t, "Gate 7", ids["camera_7"].Label)
	assert.Equal(t, "Camera", ids["camera_7"].Type)
	assert.Equal(t, "Intrusion", ids["event_7_1000"].Label)
	assert.Equal(t, "event_7_2000", ids["event_7_2000"].Label)

	require.Len(t, edges, 2)
	assert.Equal(t, "event_7_1000|CAPTURED_BY|camera_7", edges[0].ID)
	assert.Equal(t, "camera_7", edges[0].Target)
	assert.Equal(t, "CAPTURED_BY", edges[0].Label)
}

func TestFlattenGraphDropsDanglingEdges(t *testing.T) {
	records := []map[string]any{
		{"c": cameraNode("4:a:1", "1"), "r": dbtype.Relationship{StartElementId: "4:a:9", EndElementId: "4:a:1", Type: "SEEN"}},
	}
	nodes, edges := flattenGraph(records, bucketing.NewBucketingManager())
	assert.Len(t, nodes, 1)
	assert.Empty(t, edges)
}

func TestNodeIDFallbacks(t *testing.T) {
	bm := bucketing.NewBucketingManager()

	assert.Equal(t, "explicit", nodeID(dbtype.Node{Labels: []string{"Camera"}, Props: map[string]any{"id": "explicit", "channel_id": "3"}}, bm))
	assert.Equal(t, "face_Ada_Lovelace", nodeID(dbtype.Node{Labels: []string{"FaceIdentity"}, Props: map[string]any{"first_name": "Ada", "last_name": "Lovelace"}}, bm))
	assert.Equal(t, "4:x:5", nodeID(dbtype.Node{ElementId: "4:x:5", Labels: []string{"Mystery"}}, bm))

	anon := dbtype.Node{Labels: []string{"Mystery"}, Props: map[string]any{"k": "v"}}
	assert.Equal(t, "node_"+bm.HashProperties(anon.Labels, anon.Props), nodeID(anon, bm))
	assert.Equal(t, "Node", nodeType(dbtype.Node{}))
}

func TestGraphServiceNotConfigured(t *testing.T) {
	svc := NewGraphService(nil, nil, bucketing.NewBucketingManager(), zap.NewNop())

	_, err := svc.Graph(context.Background(), timewindow.Params{}, 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.Identities(context.Background(), timewindow.Params{}, 10, 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
