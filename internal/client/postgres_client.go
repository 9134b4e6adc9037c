package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/util"
)

// PostgresClient owns the relational pool. Repositories take DB directly.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgresClient(cfg *config.Config) (*PostgresClient, error) {
	pgConfig := cfg.Postgres
	if pgConfig.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", pgConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pgConfig.MaxOpenConns)
	db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	db.SetConnMaxLifetime(pgConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	util.Info("Postgres connected",
		zap.Int("max_open_conns", pgConfig.MaxOpenConns),
		zap.Int("max_idle_conns", pgConfig.MaxIdleConns),
		zap.Duration("conn_max_lifetime", pgConfig.ConnMaxLifetime),
	)
	return &PostgresClient{DB: db}, nil
}

func (p *PostgresClient) HealthCheck(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

func (p *PostgresClient) Close() error {
	if p.DB == nil {
		return nil
	}
	if err := p.DB.Close(); err != nil {
		util.Error("failed to close Postgres pool", zap.Error(err))
		return err
	}
	util.Info("Postgres pool closed")
	return nil
}
