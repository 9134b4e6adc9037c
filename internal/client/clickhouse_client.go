package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"eli-dashboard/internal/config"
	"eli-dashboard/internal/util"
)

// ClickHouseClient holds the native connection used for the login audit trail.
type ClickHouseClient struct {
	conn driver.Conn
}

func NewClickHouseClient(cfg *config.Config) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse

	opts := &ch.Options{
		Addr: []string{extractHostPort(chConfig.URL)},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		// audit rows arrive one login at a time; let the server batch them
		Settings: ch.Settings{
			"async_insert":          1,
			"wait_for_async_insert": 1,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}

	if isSecureClickhouse(chConfig.URL) {
		tlsConfig, err := backendTLSConfig("CLICKHOUSE", extractHostname(chConfig.URL))
		if err != nil {
			return nil, err
		}
		opts.TLS = tlsConfig
	}

	conn, err := ch.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	util.Info("ClickHouse client initialized",
		zap.String("addr", opts.Addr[0]),
		zap.String("database", chConfig.Database),
		zap.Bool("tls_enabled", opts.TLS != nil),
	)
	return &ClickHouseClient{conn: conn}, nil
}

func (c *ClickHouseClient) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.conn.Exec(ctx, query, args...)
}

// BatchInsert appends rows to a prepared INSERT and sends them in one block.
func (c *ClickHouseClient) BatchInsert(ctx context.Context, query string, data [][]interface{}) error {
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, row := range data {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append batch row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch of %d: %w", len(data), err)
	}
	return nil
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func isSecureClickhouse(url string) bool {
	return strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "clickhouses://")
}

// extractHostPort strips the scheme and fills in the native-protocol port.
func extractHostPort(url string) string {
	clean := url
	for _, prefix := range []string{"http://", "https://", "clickhouse://", "clickhouses://", "tcp://"} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.SplitN(clean, "/", 2)[0]
	if strings.Contains(clean, ":") {
		return clean
	}
	if isSecureClickhouse(url) {
		return clean + ":9440"
	}
	return clean + ":9000"
}

func extractHostname(url string) string {
	return strings.Split(extractHostPort(url), ":")[0]
}
