package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	body  string
	query map[string]interface{}
}

func (f *fakeIndex) Search(_ context.Context, _ string, q map[string]interface{}) (*esapi.Response, error) {
	f.query = q
	return &esapi.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func (f *fakeIndex) ParseResponse(res *esapi.Response, target interface{}) error {
	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(target)
}

func (f *fakeIndex) EnsureIndex(context.Context, string, string) error { return nil }

func (f *fakeIndex) BulkIndexer(string) (esutil.BulkIndexer, error) { return nil, nil }

func TestBuildSearchQueryFilters(t *testing.T) {
	q := buildSearchQuery(SearchParams{Query: "gate", EventType: "plate", CameraID: "c1", Start: 1, End: 2, Limit: 20})

	raw, err := json.Marshal(q)
	require.NoError(t, err)
	s := string(raw)
	assert.Contains(t, s, `"multi_match"`)
	assert.Contains(t, s, `"topic.keyword":"plate"`)
	assert.Contains(t, s, `"channel_id":"c1"`)
	assert.Contains(t, s, `"start_time":{"gte":1,"lte":2}`)
	assert.Contains(t, s, `"size":20`)
}

func TestBuildSearchQueryOmitsEmptyFilters(t *testing.T) {
	q := buildSearchQuery(SearchParams{Query: "x", Start: 0, End: 10, Limit: 5})
	filters := q["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Len(t, filters, 1)
}

func TestSearchDecodesHits(t *testing.T) {
	idx := &fakeIndex{body: `{"hits":{"total":{"value":2},"hits":[
		{"_score":1.5,"_source":{"id":10,"topic":"motion","start_time":1000}},
		{"_score":null,"_source":{"id":11,"start_time":900}}
	]}}`}

	total, hits, err := NewEventIndex(idx, "eli-events").Search(context.Background(), SearchParams{Query: "motion", Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, hits, 2)
	assert.EqualValues(t, 10, hits[0].ID)
	assert.Equal(t, "motion", *hits[0].Topic)
	assert.InDelta(t, 1.5, hits[0].Score, 1e-9)
	assert.Zero(t, hits[1].Score)
	raw, err := json.Marshal(idx.query)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"query":"motion"`)
}

func TestIndexEventsEmpty(t *testing.T) {
	n, err := NewEventIndex(&fakeIndex{}, "eli-events").IndexEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
