package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

const (
	anomalyRecentPoints = 10
	anomalyTopOutliers  = 10
	anomalyMetric       = "events_per_min"
)

// MinuteSeriesStore yields per-minute event counts.
type MinuteSeriesStore interface {
	EventsPerMinute(ctx context.Context, start, end int64) ([]models.MinuteCount, error)
}

// AnomalyStore is implemented by postgres.AnomalyRepository.
type AnomalyStore interface {
	InsertBatch(ctx context.Context, anomalies []models.Anomaly) error
	After(ctx context.Context, after int64, limit int) ([]models.Anomaly, error)
	Recent(ctx context.Context, start, end int64, limit int) ([]models.Anomaly, error)
}

type AnomalyService struct {
	series    MinuteSeriesStore
	anomalies AnomalyStore
	notifier  *Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewAnomalyService(series MinuteSeriesStore, anomalies AnomalyStore, notifier *Notifier, m *metrics.Metrics, logger *zap.Logger) *AnomalyService {
	return &AnomalyService{series: series, anomalies: anomalies, notifier: notifier, metrics: m, logger: logger}
}

// Detect scores per-minute event counts and persists recent outliers.
func (s *AnomalyService) Detect(ctx context.Context, w timewindow.Window) (*models.AnomalyReport, error) {
	counts, err := s.series.EventsPerMinute(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("anomaly series: %w", err)
	}

	scored := scoreSeries(counts)

	toSave := outliers(counts, scored, w)
	if len(toSave) > 0 {
		if err := s.anomalies.InsertBatch(ctx, toSave); err != nil {
			return nil, fmt.Errorf("persist anomalies: %w", err)
		}
		s.metrics.IncAnomalies(len(toSave))
		s.notifier.Anomalies(ctx, toSave)
		s.logger.Info("Anomalies persisted", zap.Int("count", len(toSave)))
	}

	top := append([]models.ScoredPoint(nil), scored...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > anomalyTopOutliers {
		top = top[:anomalyTopOutliers]
	}

	return &models.AnomalyReport{
		Status:        "ok",
		Window:        w,
		Series:        scored,
		TopOutliers:   top,
		ThresholdHint: robustZThreshold,
		Timestamp:     util.NowISO(),
	}, nil
}

func scoreSeries(counts []models.MinuteCount) []models.ScoredPoint {
	values := make([]float64, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
	}
	z := robustZScores(values)

	out := make([]models.ScoredPoint, len(counts))
	for i, c := range counts {
		score := z[i]
		if score < 0 {
			score = -score
		}
		out[i] = models.ScoredPoint{T: util.ISOTime(c.Minute), Y: values[i], Score: score}
	}
	return out
}

// outliers picks points among the last few minutes that reach the threshold.
func outliers(counts []models.MinuteCount, scored []models.ScoredPoint, w timewindow.Window) []models.Anomaly {
	from := len(scored) - anomalyRecentPoints
	if from < 0 {
		from = 0
	}
	window, _ := json.Marshal(w)
	method, _ := json.Marshal(map[string]string{"method": "robust_z"})

	var out []models.Anomaly
	for i := from; i < len(scored); i++ {
		p := scored[i]
		if p.Score < robustZThreshold {
			continue
		}
		out = append(out, models.Anomaly{
			Metric:     anomalyMetric,
			EntityType: "channel",
			Value:      p.Y,
			Score:      p.Score,
			Threshold:  robustZThreshold,
			Window:     window,
			Context:    method,
			Ts:         counts[i].Minute,
		})
	}
	return out
}
