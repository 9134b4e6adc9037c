package client

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/util"
)

// Neo4jClient wraps the graph driver and the target database name.
type Neo4jClient struct {
	Driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jClient(cfg *config.Config) (*Neo4jClient, error) {
	n := cfg.Neo4j

	driver, err := neo4j.NewDriverWithContext(n.URI, neo4j.BasicAuth(n.Username, n.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	util.Info("Neo4j driver initialized",
		zap.String("uri", n.URI),
		zap.String("database", n.Database),
	)
	return &Neo4jClient{Driver: driver, database: n.Database}, nil
}

// Run executes a read query and returns each record as a key/value map.
func (c *Neo4jClient) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.execute(ctx, cypher, params, neo4j.ExecuteQueryWithReadersRouting())
}

// Write executes a statement against the leader.
func (c *Neo4jClient) Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	return c.execute(ctx, cypher, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (c *Neo4jClient) execute(ctx context.Context, cypher string, params map[string]any, routing neo4j.ExecuteQueryConfigurationOption) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, c.Driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(c.database),
		routing,
	)
	if err != nil {
		return nil, fmt.Errorf("cypher query failed: %w", err)
	}
	rows := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}

func (c *Neo4jClient) HealthCheck(ctx context.Context) error {
	return c.Driver.VerifyConnectivity(ctx)
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	if c.Driver == nil {
		return nil
	}
	if err := c.Driver.Close(ctx); err != nil {
		util.Error("failed to close Neo4j driver", zap.Error(err))
		return err
	}
	util.Info("Neo4j driver closed")
	return nil
}
