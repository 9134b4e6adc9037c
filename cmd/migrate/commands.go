package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"eli-dashboard/internal/client"
	"eli-dashboard/internal/config"
	"eli-dashboard/internal/hashing"
	"eli-dashboard/internal/repository/clickhouse"
	"eli-dashboard/internal/repository/elasticsearch"
	"eli-dashboard/internal/repository/neo4j"
	"eli-dashboard/internal/repository/postgres"
	"eli-dashboard/internal/util"
)

func newPGSchemaCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "pg-schema",
		Short: "Apply the Postgres DDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pg, err := client.NewPostgresClient(cfg())
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := postgres.ApplySchema(cmd.Context(), pg.DB); err != nil {
				return err
			}
			done(cmd.Name())
			return nil
		},
	}
}

func newGraphSchemaCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "graph-schema",
		Short: "Create Neo4j constraints and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := client.NewNeo4jClient(cfg())
			if err != nil {
				return err
			}
			defer graph.Close(context.Background())
			if err := neo4j.NewSyncRepository(graph).EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			done(cmd.Name())
			return nil
		},
	}
}

func newGraphSyncCmd(cfg func() *config.Config) *cobra.Command {
	var flags copyFlags
	cmd := &cobra.Command{
		Use:   "graph-sync",
		Short: "Copy events and snapshots from Postgres into Neo4j",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := graphSync(cmd.Context(), cfg(), flags.start(), flags.batch); err != nil {
				return err
			}
			done(cmd.Name())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newIndexEventsCmd(cfg func() *config.Config) *cobra.Command {
	var flags copyFlags
	cmd := &cobra.Command{
		Use:   "index-events",
		Short: "Bulk-index events into Elasticsearch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := indexEvents(cmd.Context(), cfg(), flags.start(), flags.batch); err != nil {
				return err
			}
			done(cmd.Name())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newAuditSchemaCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "audit-schema",
		Short: "Create the ClickHouse auth audit table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			chc, err := client.NewClickHouseClient(c)
			if err != nil {
				return err
			}
			defer chc.Close()
			repo, err := clickhouse.NewAuthAuditRepository(chc, c.Clickhouse.AuditTable)
			if err != nil {
				return err
			}
			if err := repo.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			done(cmd.Name())
			return nil
		},
	}
}

func newHashPasswordCmd(cfg func() *config.Config) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print an argon2id hash for APP_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			if password == "" {
				password = c.Auth.Password
			}
			if password == "" {
				return fmt.Errorf("pass --password or set APP_PASSWORD")
			}
			encoded, err := hashing.NewHasher(c).HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash (defaults to APP_PASSWORD)")
	return cmd
}

func graphSync(ctx context.Context, cfg *config.Config, start int64, batch int) error {
	pg, err := client.NewPostgresClient(cfg)
	if err != nil {
		return err
	}
	defer pg.Close()
	graph, err := client.NewNeo4jClient(cfg)
	if err != nil {
		return err
	}
	defer graph.Close(context.Background())

	sync := neo4j.NewSyncRepository(graph)
	if err := sync.EnsureSchema(ctx); err != nil {
		return err
	}

	events := postgres.NewEventRepository(pg.DB)
	n, err := copyBatches(ctx, batch,
		func(ctx context.Context, after int64, limit int) ([]int64, func(context.Context) error, error) {
			rows, err := events.Since(ctx, start, after, limit)
			if err != nil {
				return nil, nil, err
			}
			ids := make([]int64, len(rows))
			for i, e := range rows {
				ids[i] = e.ID
			}
			return ids, func(ctx context.Context) error { return sync.UpsertEvents(ctx, rows) }, nil
		})
	if err != nil {
		return fmt.Errorf("sync events: %w", err)
	}
	util.Info("Events synced to graph", util.Int("count", n))

	snapshots := postgres.NewSnapshotRepository(pg.DB)
	n, err = copyBatches(ctx, batch,
		func(ctx context.Context, after int64, limit int) ([]int64, func(context.Context) error, error) {
			rows, err := snapshots.Since(ctx, start, after, limit)
			if err != nil {
				return nil, nil, err
			}
			ids := make([]int64, len(rows))
			for i, s := range rows {
				ids[i] = s.ID
			}
			return ids, func(ctx context.Context) error { return sync.UpsertImages(ctx, rows) }, nil
		})
	if err != nil {
		return fmt.Errorf("sync snapshots: %w", err)
	}
	util.Info("Snapshots synced to graph", util.Int("count", n))
	return nil
}

func indexEvents(ctx context.Context, cfg *config.Config, start int64, batch int) error {
	pg, err := client.NewPostgresClient(cfg)
	if err != nil {
		return err
	}
	defer pg.Close()
	es, err := client.NewElasticsearchClient(cfg)
	if err != nil {
		return err
	}
	defer es.Close()

	index := elasticsearch.NewEventIndex(es, cfg.Elasticsearch.EventsIndex)
	if err := index.EnsureIndex(ctx); err != nil {
		return err
	}

	events := postgres.NewEventRepository(pg.DB)
	var indexed int64
	n, err := copyBatches(ctx, batch,
		func(ctx context.Context, after int64, limit int) ([]int64, func(context.Context) error, error) {
			rows, err := events.Since(ctx, start, after, limit)
			if err != nil {
				return nil, nil, err
			}
			ids := make([]int64, len(rows))
			for i, e := range rows {
				ids[i] = e.ID
			}
			return ids, func(ctx context.Context) error {
				ok, err := index.IndexEvents(ctx, rows)
				indexed += ok
				return err
			}, nil
		})
	if err != nil {
		return fmt.Errorf("index events: %w", err)
	}
	util.Info("Events indexed", util.Int("read", n), util.Int64("indexed", indexed))
	return nil
}
