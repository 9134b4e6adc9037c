package neo4j

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eli-dashboard/internal/models"
)

type call struct {
	cypher string
	params map[string]any
	write  bool
}

type fakeRunner struct {
	records []map[string]any
	err     error
	calls   []call
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.calls = append(f.calls, call{cypher: cypher, params: params})
	return f.records, f.err
}

func (f *fakeRunner) Write(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	f.calls = append(f.calls, call{cypher: cypher, params: params, write: true})
	return nil, f.err
}

func TestFacesParsesNodesAndWatchlists(t *testing.T) {
	runner := &fakeRunner{records: []map[string]any{
		{
			"node": dbtype.Node{ElementId: "4:x:1", Labels: []string{"FaceIdentity"}, Props: map[string]any{
				"id": "f-1", "similarity": 0.93, "first_name": "Ana", "last_name": "Diaz",
			}},
			"lists": []any{
				dbtype.Node{Labels: []string{"Watchlist"}, Props: map[string]any{"id": int64(3), "name": "VIP", "level": "high"}},
			},
			"events": int64(4),
		},
		{"node": nil, "lists": []any{}, "events": int64(1)},
	}}

	faces, err := NewIdentityRepository(runner).Faces(context.Background(), 10, 20, 200)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, "f-1", faces[0].ID)
	assert.InDelta(t, 0.93, *faces[0].Similarity, 1e-9)
	assert.Equal(t, "Ana", *faces[0].FirstName)
	assert.EqualValues(t, 4, faces[0].Events)
	require.Len(t, faces[0].Watchlists, 1)
	assert.Equal(t, "VIP", *faces[0].Watchlists[0].Name)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, int64(200), runner.calls[0].params["limit"])
	assert.Contains(t, runner.calls[0].cypher, "MATCHED_FACE")
}

func TestPlatesMissingPropsStayNil(t *testing.T) {
	runner := &fakeRunner{records: []map[string]any{{
		"node":   dbtype.Node{Props: map[string]any{"number": "ABC123"}},
		"lists":  nil,
		"events": int64(2),
	}}}

	plates, err := NewIdentityRepository(runner).Plates(context.Background(), 0, 1, 10)
	require.NoError(t, err)
	require.Len(t, plates, 1)
	assert.Equal(t, "ABC123", *plates[0].Number)
	assert.Nil(t, plates[0].State)
	assert.Empty(t, plates[0].Watchlists)
}

func TestFlowSeries(t *testing.T) {
	runner := &fakeRunner{records: []map[string]any{
		{"minute": int64(60000), "count": int64(3)},
		{"minute": int64(120000), "count": int64(1)},
	}}
	points, err := NewGraphRepository(runner).FlowSeries(context.Background(), 0, 200000)
	require.NoError(t, err)
	assert.Equal(t, []FlowPoint{{Minute: 60000, Count: 3}, {Minute: 120000, Count: 1}}, points)
}

func TestRelationshipsWrapsError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	_, err := NewGraphRepository(runner).Relationships(context.Background(), 0, 1, 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph relationships")
}

func TestUpsertEventsBuildsRows(t *testing.T) {
	runner := &fakeRunner{}
	topic, ch := "motion", "12"
	err := NewSyncRepository(runner).UpsertEvents(context.Background(), []models.Event{
		{ID: 7, Topic: &topic, ChannelID: &ch, StartTime: 1000},
		{ID: 8, StartTime: 2000},
	})
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.True(t, runner.calls[0].write)

	rows := runner.calls[0].params["rows"].([]map[string]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "event_7", rows[0]["id"])
	assert.Equal(t, "camera_12", rows[0]["camera_id"])
	assert.Equal(t, "motion", rows[0]["topic"])
	assert.Nil(t, rows[1]["camera_id"])
	assert.Nil(t, rows[1]["topic"])
}

func TestSyncSkipsEmptyBatches(t *testing.T) {
	runner := &fakeRunner{}
	repo := NewSyncRepository(runner)
	require.NoError(t, repo.UpsertEvents(context.Background(), nil))
	require.NoError(t, repo.UpsertImages(context.Background(), nil))
	assert.Empty(t, runner.calls)
}

func TestEnsureSchemaRunsEveryStatement(t *testing.T) {
	runner := &fakeRunner{}
	require.NoError(t, NewSyncRepository(runner).EnsureSchema(context.Background()))
	assert.Len(t, runner.calls, len(schemaStatements))
}
