package neo4j

import (
	"context"
	"fmt"
)

// relationshipsCypher walks Camera-[GENERATED]->Event in the window and picks
// up optional images, tags, matched identities and watchlists.
const relationshipsCypher = `
MATCH (c:Camera)-[g:GENERATED]->(e:Event)
WHERE e.start_time >= $start AND e.start_time <= $end
OPTIONAL MATCH (e)-[h:HAS_SNAPSHOT]->(i:Image)
OPTIONAL MATCH (e)-[t:TAGGED]->(tag:Tag)
OPTIONAL MATCH (e)-[mf:MATCHED_FACE]->(fi:FaceIdentity)
OPTIONAL MATCH (fi)-[fl:IN_LIST]->(fw:Watchlist)
OPTIONAL MATCH (e)-[mp:MATCHED_PLATE]->(pi:PlateIdentity)
OPTIONAL MATCH (pi)-[pl:IN_LIST]->(pw:Watchlist)
OPTIONAL MATCH (e)-[el:IN_LIST]->(ew:Watchlist)
RETURN c, g, e, h, i, t, tag, mf, fi, fl, fw, mp, pi, pl, pw, el, ew
LIMIT $limit`

type GraphRepository struct {
	runner Runner
}

func NewGraphRepository(runner Runner) *GraphRepository {
	return &GraphRepository{runner: runner}
}

// Relationships returns raw records; values are dbtype.Node,
// dbtype.Relationship or nil for unmatched optional parts.
func (r *GraphRepository) Relationships(ctx context.Context, start, end int64, limit int) ([]map[string]any, error) {
	records, err := r.runner.Run(ctx, relationshipsCypher, map[string]any{
		"start": start,
		"end":   end,
		"limit": int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("graph relationships: %w", err)
	}
	return records, nil
}

// FlowSeries counts relationships created per minute; timestamps are epoch ms.
func (r *GraphRepository) FlowSeries(ctx context.Context, start, end int64) ([]FlowPoint, error) {
	const q = `
MATCH ()-[rel]->()
WHERE rel.timestamp >= $start AND rel.timestamp <= $end
WITH (rel.timestamp / 60000) * 60000 AS minute
RETURN minute, count(*) AS count
ORDER BY minute`

	records, err := r.runner.Run(ctx, q, map[string]any{"start": start, "end": end})
	if err != nil {
		return nil, fmt.Errorf("graph flow series: %w", err)
	}
	out := make([]FlowPoint, 0, len(records))
	for _, rec := range records {
		out = append(out, FlowPoint{Minute: toInt64(rec["minute"]), Count: toInt64(rec["count"])})
	}
	return out, nil
}

// FlowPoint is one minute of relationship creation.
type FlowPoint struct {
	Minute int64
	Count  int64
}
