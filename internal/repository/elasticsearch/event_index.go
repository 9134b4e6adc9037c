// Package elasticsearch keeps a searchable copy of the events table.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/util"
)

// Index is the subset of *client.ESClient used here.
type Index interface {
	Search(ctx context.Context, index string, query map[string]interface{}) (*esapi.Response, error)
	ParseResponse(res *esapi.Response, target interface{}) error
	EnsureIndex(ctx context.Context, index string, mapping string) error
	BulkIndexer(index string) (esutil.BulkIndexer, error)
}

const eventMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "topic":        {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "module":       {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "level":        {"type": "keyword"},
      "start_time":   {"type": "date", "format": "epoch_millis"},
      "end_time":     {"type": "date", "format": "epoch_millis"},
      "latitude":     {"type": "double"},
      "longitude":    {"type": "double"},
      "channel_id":   {"type": "keyword"},
      "channel_name": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "channel_type": {"type": "keyword"},
      "metadata":     {"type": "object", "enabled": false},
      "created_at":   {"type": "date"}
    }
  }
}`

// SearchParams narrows a full-text query.
type SearchParams struct {
	Query     string
	EventType string
	CameraID  string
	Start     int64
	End       int64
	Limit     int
	Offset    int
}

type EventIndex struct {
	es    Index
	index string
}

func NewEventIndex(es Index, index string) *EventIndex {
	return &EventIndex{es: es, index: index}
}

func (x *EventIndex) EnsureIndex(ctx context.Context) error {
	return x.es.EnsureIndex(ctx, x.index, eventMapping)
}

func buildSearchQuery(p SearchParams) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"range": map[string]interface{}{
			"start_time": map[string]interface{}{"gte": p.Start, "lte": p.End},
		}},
	}
	if p.EventType != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"topic.keyword": p.EventType}})
	}
	if p.CameraID != "" {
		filters = append(filters, map[string]interface{}{"term": map[string]interface{}{"channel_id": p.CameraID}})
	}

	return map[string]interface{}{
		"from": p.Offset,
		"size": p.Limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{"multi_match": map[string]interface{}{
						"query":     p.Query,
						"fields":    []string{"topic^3", "channel_name^2", "module", "level"},
						"fuzziness": "AUTO",
					}},
				},
				"filter": filters,
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"start_time": "desc"}},
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  *float64     `json:"_score"`
			Source models.Event `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a scored full-text query over indexed events.
func (x *EventIndex) Search(ctx context.Context, p SearchParams) (int64, []models.EventSearchHit, error) {
	res, err := x.es.Search(ctx, x.index, buildSearchQuery(p))
	if err != nil {
		return 0, nil, fmt.Errorf("search events: %w", err)
	}
	var body searchResponse
	if err := x.es.ParseResponse(res, &body); err != nil {
		return 0, nil, fmt.Errorf("search events: %w", err)
	}

	hits := make([]models.EventSearchHit, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		hit := models.EventSearchHit{Event: h.Source}
		if h.Score != nil {
			hit.Score = *h.Score
		}
		hits = append(hits, hit)
	}
	return body.Hits.Total.Value, hits, nil
}

// IndexEvents upserts events by id and returns how many were accepted.
func (x *EventIndex) IndexEvents(ctx context.Context, events []models.Event) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	bi, err := x.es.BulkIndexer(x.index)
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	var failed atomic.Int64
	for _, e := range events {
		doc, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: strconv.FormatInt(e.ID, 10),
			Body:       bytes.NewReader(doc),
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					util.Error("Event index failed", zap.String("id", item.DocumentID), zap.Error(err))
					return
				}
				util.Error("Event index rejected",
					zap.String("id", item.DocumentID),
					zap.String("type", res.Error.Type),
					zap.String("reason", res.Error.Reason))
			},
		})
		if err != nil {
			return 0, fmt.Errorf("queue event %d: %w", e.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("flush bulk indexer: %w", err)
	}
	stats := bi.Stats()
	if n := failed.Load(); n > 0 {
		util.Warn("Some events were not indexed", zap.Int64("failed", n), zap.Uint64("indexed", stats.NumIndexed))
	}
	return int64(stats.NumIndexed), nil
}
