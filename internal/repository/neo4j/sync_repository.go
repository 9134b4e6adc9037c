package neo4j

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/util"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT camera_id IF NOT EXISTS FOR (c:Camera) REQUIRE c.id IS UNIQUE`,
	`CREATE CONSTRAINT event_id IF NOT EXISTS FOR (e:Event) REQUIRE e.id IS UNIQUE`,
	`CREATE CONSTRAINT image_id IF NOT EXISTS FOR (i:Image) REQUIRE i.id IS UNIQUE`,
	`CREATE CONSTRAINT tag_name IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
	`CREATE INDEX event_start_time IF NOT EXISTS FOR (e:Event) ON (e.start_time)`,
	`CREATE INDEX camera_channel_id IF NOT EXISTS FOR (c:Camera) ON (c.channel_id)`,
}

const upsertEventsCypher = `
UNWIND $rows AS row
MERGE (e:Event {id: row.id})
SET e.topic = row.topic, e.level = row.level, e.module = row.module,
    e.channel_id = row.channel_id, e.channel_name = row.channel_name,
    e.start_time = row.start_time, e.end_time = row.end_time
FOREACH (_ IN CASE WHEN row.camera_id IS NULL THEN [] ELSE [1] END |
  MERGE (c:Camera {id: row.camera_id})
  SET c.channel_id = row.channel_id,
      c.name = coalesce(row.channel_name, 'Camera ' + row.channel_id),
      c.type = coalesce(row.channel_type, 'unknown')
  MERGE (c)-[g:GENERATED]->(e)
  SET g.timestamp = row.start_time
)
FOREACH (_ IN CASE WHEN row.topic IS NULL THEN [] ELSE [1] END |
  MERGE (t:Tag {name: row.topic})
  ON CREATE SET t.type = 'event_topic'
  MERGE (e)-[tg:TAGGED]->(t)
  SET tg.timestamp = row.start_time
)`

const upsertImagesCypher = `
UNWIND $rows AS row
MATCH (e:Event {id: row.event_id})
MERGE (i:Image {id: row.id})
SET i.type = row.type, i.path = row.path, i.image_url = row.image_url
MERGE (e)-[h:HAS_SNAPSHOT]->(i)
SET h.timestamp = row.timestamp`

// SyncRepository copies relational rows into the graph.
type SyncRepository struct {
	runner Runner
}

func NewSyncRepository(runner Runner) *SyncRepository {
	return &SyncRepository{runner: runner}
}

// EnsureSchema creates the uniqueness constraints and lookup indexes.
func (r *SyncRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.runner.Write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graph schema: %w", err)
		}
	}
	util.Info("Graph schema ensured", zap.Int("statements", len(schemaStatements)))
	return nil
}

// UpsertEvents merges events with their camera and topic tag.
func (r *SyncRepository) UpsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(events))
	for _, e := range events {
		row := map[string]any{
			"id":           EventNodeID(e.ID),
			"topic":        deref(e.Topic),
			"level":        deref(e.Level),
			"module":       deref(e.Module),
			"channel_id":   deref(e.ChannelID),
			"channel_name": deref(e.ChannelName),
			"channel_type": deref(e.ChannelType),
			"start_time":   e.StartTime,
			"end_time":     nil,
			"camera_id":    nil,
		}
		if e.EndTime != nil {
			row["end_time"] = *e.EndTime
		}
		if e.ChannelID != nil {
			row["camera_id"] = "camera_" + *e.ChannelID
		}
		rows = append(rows, row)
	}
	if _, err := r.runner.Write(ctx, upsertEventsCypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("upsert graph events: %w", err)
	}
	return nil
}

// UpsertImages merges snapshots and links them to already-synced events.
func (r *SyncRepository) UpsertImages(ctx context.Context, snapshots []models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([]map[string]any, 0, len(snapshots))
	for _, s := range snapshots {
		row := map[string]any{
			"id":        "image_" + strconv.FormatInt(s.ID, 10),
			"event_id":  EventNodeID(s.EventID),
			"type":      deref(s.Type),
			"path":      deref(s.Path),
			"image_url": deref(s.ImageURL),
			"timestamp": nil,
		}
		if s.CreatedAt != nil {
			row["timestamp"] = s.CreatedAt.UnixMilli()
		}
		rows = append(rows, row)
	}
	if _, err := r.runner.Write(ctx, upsertImagesCypher, map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("upsert graph images: %w", err)
	}
	return nil
}

// EventNodeID is the natural key of an event node.
func EventNodeID(id int64) string {
	return "event_" + strconv.FormatInt(id, 10)
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
