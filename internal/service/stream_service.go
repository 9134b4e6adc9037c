package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eli-dashboard/internal/models"
)

// StreamService tails ai_anomalies for server-sent events.
type StreamService struct {
	anomalies AnomalyStore
	interval  time.Duration
	batch     int
	lookback  time.Duration
	logger    *zap.Logger
}

const (
	defaultStreamInterval = 1500 * time.Millisecond
	defaultStreamBatch    = 50
)

// NewStreamService replaces a non-positive interval or batch with the defaults.
func NewStreamService(anomalies AnomalyStore, interval time.Duration, batch int, lookback time.Duration, logger *zap.Logger) *StreamService {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	if batch <= 0 {
		batch = defaultStreamBatch
	}
	return &StreamService{anomalies: anomalies, interval: interval, batch: batch, lookback: lookback, logger: logger}
}

// Run polls until ctx is done, calling send with each non-empty batch. The
// cursor advances to the ts of the last row sent. Poll errors are logged
// and retried on the next tick; a send error ends the stream.
func (s *StreamService) Run(ctx context.Context, send func([]models.Anomaly) error) error {
	lastTs := time.Now().Add(-s.lookback).UnixMilli()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		rows, err := s.anomalies.After(ctx, lastTs, s.batch)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			s.logger.Warn("Anomaly stream poll failed", zap.Error(err))
		case len(rows) > 0:
			if err := send(rows); err != nil {
				return fmt.Errorf("stream send: %w", err)
			}
			lastTs = rows[len(rows)-1].Ts
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
