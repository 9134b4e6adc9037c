package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eli-dashboard/internal/bucketing"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

type GraphStore interface {
	Relationships(ctx context.Context, start, end int64, limit int) ([]map[string]any, error)
}

type IdentityStore interface {
	Faces(ctx context.Context, start, end int64, limit int) ([]models.FaceIdentity, error)
	Plates(ctx context.Context, start, end int64, limit int) ([]models.PlateIdentity, error)
}

// GraphService flattens Neo4j records into the topology view and lists
// matched identities.
type GraphService struct {
	graph      GraphStore
	identities IdentityStore
	bm         *bucketing.BucketingManager
	logger     *zap.Logger
}

func NewGraphService(graph GraphStore, identities IdentityStore, bm *bucketing.BucketingManager, logger *zap.Logger) *GraphService {
	return &GraphService{graph: graph, identities: identities, bm: bm, logger: logger}
}

func (s *GraphService) Graph(ctx context.Context, p timewindow.Params, limit int) (*models.Graph, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("graph: %w", ErrNotConfigured)
	}
	records, err := s.graph.Relationships(ctx, p.Window.Start, p.Window.End, limit)
	if err != nil {
		return nil, err
	}
	nodes, edges := flattenGraph(records, s.bm)
	s.logger.Debug("Graph flattened",
		zap.Int("records", len(records)),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)))

	return &models.Graph{
		Nodes:     nodes,
		Edges:     edges,
		TimeRange: p.Range,
		Window:    p.Window,
		Timestamp: util.NowISO(),
	}, nil
}

// Identities loads faces and plates concurrently.
func (s *GraphService) Identities(ctx context.Context, p timewindow.Params, facesLimit, platesLimit int) (*models.Identities, error) {
	if s.identities == nil {
		return nil, fmt.Errorf("identities: %w", ErrNotConfigured)
	}
	var faces []models.FaceIdentity
	var plates []models.PlateIdentity

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		faces, err = s.identities.Faces(gctx, p.Window.Start, p.Window.End, facesLimit)
		return err
	})
	g.Go(func() error {
		var err error
		plates, err = s.identities.Plates(gctx, p.Window.Start, p.Window.End, platesLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("identities: %w", err)
	}

	return &models.Identities{
		TimeRange: p.Range,
		Window:    p.Window,
		Faces:     nonNil(faces),
		Plates:    nonNil(plates),
		Timestamp: util.NowISO(),
	}, nil
}

// flattenGraph dedupes nodes by resolved id and edges by source|type|target.
// Relationships are resolved through driver element ids, so an edge whose
// endpoint never appeared as a node is dropped.
func flattenGraph(records []map[string]any, bm *bucketing.BucketingManager) ([]models.GraphNode, []models.GraphEdge) {
	nodes := []models.GraphNode{}
	edges := []models.GraphEdge{}
	seenNodes := map[string]bool{}
	byElement := map[string]string{}

	for _, rec := range records {
		for _, key := range sortedKeys(rec) {
			n, ok := graphNode(rec[key])
			if !ok {
				continue
			}
			id := nodeID(n, bm)
			if n.ElementId != "" {
				byElement[n.ElementId] = id
			}
			if seenNodes[id] {
				continue
			}
			seenNodes[id] = true
			typ := nodeType(n)
			nodes = append(nodes, models.GraphNode{
				ID:         id,
				Label:      nodeLabel(typ, id, n.Props),
				Type:       typ,
				Properties: nonNilProps(n.Props),
			})
		}
	}

	seenEdges := map[string]bool{}
	for _, rec := range records {
		for _, key := range sortedKeys(rec) {
			r, ok := graphRelationship(rec[key])
			if !ok {
				continue
			}
			source, okS := byElement[r.StartElementId]
			target, okT := byElement[r.EndElementId]
			if !okS || !okT {
				continue
			}
			id := source + "|" + r.Type + "|" + target
			if seenEdges[id] {
				continue
			}
			seenEdges[id] = true
			edges = append(edges, models.GraphEdge{
				ID:     id,
				Source: source,
				Target: target,
				Type:   r.Type,
				Label:  r.Type,
			})
		}
	}
	return nodes, edges
}

func graphNode(v any) (dbtype.Node, bool) {
	switch n := v.(type) {
	case dbtype.Node:
		return n, true
	case *dbtype.Node:
		if n != nil {
			return *n, true
		}
	}
	return dbtype.Node{}, false
}

func graphRelationship(v any) (dbtype.Relationship, bool) {
	switch r := v.(type) {
	case dbtype.Relationship:
		return r, true
	case *dbtype.Relationship:
		if r != nil {
			return *r, true
		}
	}
	return dbtype.Relationship{}, false
}

func nodeType(n dbtype.Node) string {
	if len(n.Labels) > 0 {
		return n.Labels[0]
	}
	return "Node"
}

// nodeID tries the id property, a per-label natural key, the element id and
// finally a hash of labels and properties.
func nodeID(n dbtype.Node, bm *bucketing.BucketingManager) string {
	if v, ok := n.Props["id"]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	if key := naturalKey(nodeType(n), n.Props); key != "" {
		return key
	}
	if n.ElementId != "" {
		return n.ElementId
	}
	return "node_" + bm.HashProperties(n.Labels, n.Props)
}

func naturalKey(typ string, props map[string]any) string {
	str := func(k string) string {
		if v, ok := props[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	switch typ {
	case "Camera":
		if v := str("channel_id"); v != "" {
			return "camera_" + v
		}
	case "Event":
		if ch, ts := str("channel_id"), str("start_time"); ts != "" {
			return "event_" + ch + "_" + ts
		}
	case "Tag":
		if v := str("name"); v != "" {
			return "tag_" + v
		}
	case "PlateIdentity":
		if v := str("number"); v != "" {
			return "plate_" + v
		}
	case "FaceIdentity":
		first, last := str("first_name"), str("last_name")
		if first != "" || last != "" {
			return "face_" + first + "_" + last
		}
	case "Watchlist":
		if v := str("name"); v != "" {
			return "watchlist_" + v
		}
	case "Image":
		if v := str("path"); v != "" {
			return "image_" + v
		}
	}
	return ""
}

func nodeLabel(typ, id string, props map[string]any) string {
	var candidates []string
	switch typ {
	case "Camera", "Tag", "Watchlist":
		candidates = []string{"name"}
	case "Event":
		candidates = []string{"topic"}
	case "PlateIdentity":
		candidates = []string{"number"}
	case "Image":
		candidates = []string{"type", "path"}
	case "FaceIdentity":
		var parts []string
		for _, k := range []string{"first_name", "last_name"} {
			if v, ok := props[k].(string); ok && v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	for _, k := range candidates {
		if v, ok := props[k]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	return id
}

func nonNilProps(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
