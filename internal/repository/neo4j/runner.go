// Package neo4j holds the Cypher queries behind the topology, identity and
// flow views, plus the Postgres-to-graph sync statements.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Runner executes Cypher and returns each record as a key/value map.
// *client.Neo4jClient satisfies it.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

func asNode(v any) (dbtype.Node, bool) {
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

func propString(props map[string]any, key string) *string {
	if v, ok := props[key].(string); ok {
		return &v
	}
	return nil
}

func propFloat(props map[string]any, key string) *float64 {
	switch v := props[key].(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
