package neo4j

import (
	"context"
	"fmt"

	"eli-dashboard/internal/models"
)

type IdentityRepository struct {
	runner Runner
}

func NewIdentityRepository(runner Runner) *IdentityRepository {
	return &IdentityRepository{runner: runner}
}

func identityCypher(rel, label, order string) string {
	return fmt.Sprintf(`
MATCH (e:Event)
WHERE e.start_time >= $start AND e.start_time <= $end
MATCH (e)-[:%s]->(n:%s)
OPTIONAL MATCH (n)-[:IN_LIST]->(wl:Watchlist)
WITH n, collect(DISTINCT wl) AS lists, count(DISTINCT e) AS events
RETURN n AS node, lists, events
ORDER BY %s
LIMIT toInteger($limit)`, rel, label, order)
}

var (
	facesCypher  = identityCypher("MATCHED_FACE", "FaceIdentity", "coalesce(n.similarity, 0) DESC")
	platesCypher = identityCypher("MATCHED_PLATE", "PlateIdentity", "coalesce(n.number, '') ASC")
)

// Faces returns matched face identities ordered by similarity.
func (r *IdentityRepository) Faces(ctx context.Context, start, end int64, limit int) ([]models.FaceIdentity, error) {
	records, err := r.runner.Run(ctx, facesCypher, map[string]any{"start": start, "end": end, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("face identities: %w", err)
	}
	out := make([]models.FaceIdentity, 0, len(records))
	for _, rec := range records {
		node, ok := asNode(rec["node"])
		if !ok {
			continue
		}
		p := node.Props
		out = append(out, models.FaceIdentity{
			ID:         p["id"],
			Similarity: propFloat(p, "similarity"),
			FirstName:  propString(p, "first_name"),
			LastName:   propString(p, "last_name"),
			Watchlists: watchlists(rec["lists"]),
			Events:     toInt64(rec["events"]),
		})
	}
	return out, nil
}

// Plates returns matched plate identities ordered by number.
func (r *IdentityRepository) Plates(ctx context.Context, start, end int64, limit int) ([]models.PlateIdentity, error) {
	records, err := r.runner.Run(ctx, platesCypher, map[string]any{"start": start, "end": end, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("plate identities: %w", err)
	}
	out := make([]models.PlateIdentity, 0, len(records))
	for _, rec := range records {
		node, ok := asNode(rec["node"])
		if !ok {
			continue
		}
		p := node.Props
		out = append(out, models.PlateIdentity{
			ID:             p["id"],
			Number:         propString(p, "number"),
			State:          propString(p, "state"),
			OwnerFirstName: propString(p, "owner_first_name"),
			OwnerLastName:  propString(p, "owner_last_name"),
			Watchlists:     watchlists(rec["lists"]),
			Events:         toInt64(rec["events"]),
		})
	}
	return out, nil
}

func watchlists(v any) []models.Watchlist {
	items, _ := v.([]any)
	out := make([]models.Watchlist, 0, len(items))
	for _, item := range items {
		node, ok := asNode(item)
		if !ok {
			continue
		}
		out = append(out, models.Watchlist{
			ID:    node.Props["id"],
			Name:  propString(node.Props, "name"),
			Level: node.Props["level"],
		})
	}
	return out
}
