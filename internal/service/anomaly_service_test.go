package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
)

type fakeSeries struct {
	counts []models.MinuteCount
}

func (f fakeSeries) EventsPerMinute(context.Context, int64, int64) ([]models.MinuteCount, error) {
	return f.counts, nil
}

type fakeAnomalyStore struct {
	mu       sync.Mutex
	inserted []models.Anomaly
	rows     []models.Anomaly
	afters   []int64
}

func (f *fakeAnomalyStore) InsertBatch(_ context.Context, anomalies []models.Anomaly) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, anomalies...)
	return nil
}

// After returns stored rows with ts > after, oldest first.
func (f *fakeAnomalyStore) After(_ context.Context, after int64, limit int) ([]models.Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afters = append(f.afters, after)
	var out []models.Anomaly
	for _, a := range f.rows {
		if a.Ts > after && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnomalyStore) Recent(context.Context, int64, int64, int) ([]models.Anomaly, error) {
	return f.rows, nil
}

type recordingProducer struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingProducer) ProduceMessage(_ context.Context, topic string, _, _ []byte, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func minuteCounts(values ...int64) []models.MinuteCount {
	out := make([]models.MinuteCount, len(values))
	for i, v := range values {
		out[i] = models.MinuteCount{Minute: int64(i) * 60_000, Count: v}
	}
	return out
}

func TestDetectPersistsRecentOutliers(t *testing.T) {
	// the first spike falls outside the last ten points
	counts := minuteCounts(100, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 90)
	store := &fakeAnomalyStore{}
	producer := &recordingProducer{}
	svc := NewAnomalyService(fakeSeries{counts}, store, NewNotifier(producer, "anomalies", "alerts", zap.NewNop()), nil, zap.NewNop())

	w := timewindow.Window{Start: 0, End: 15 * 60_000}
	report, err := svc.Detect(context.Background(), w)
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	a := store.inserted[0]
	assert.Equal(t, anomalyMetric, a.Metric)
	assert.Equal(t, "channel", a.EntityType)
	assert.Equal(t, float64(90), a.Value)
	assert.Equal(t, int64(14*60_000), a.Ts)
	assert.GreaterOrEqual(t, a.Score, robustZThreshold)
	assert.JSONEq(t, `{"method":"robust_z"}`, string(a.Context))

	var win timewindow.Window
	require.NoError(t, json.Unmarshal(a.Window, &win))
	assert.Equal(t, w, win)

	assert.Equal(t, []string{"anomalies"}, producer.topics)
	assert.Len(t, report.Series, len(counts))
	assert.Len(t, report.TopOutliers, anomalyTopOutliers)
	assert.Equal(t, float64(100), report.TopOutliers[0].Y)
	assert.Equal(t, robustZThreshold, report.ThresholdHint)
}

func TestDetectQuietSeriesPersistsNothing(t *testing.T) {
	store := &fakeAnomalyStore{}
	svc := NewAnomalyService(fakeSeries{minuteCounts(3, 3, 3)}, store, nil, nil, zap.NewNop())

	report, err := svc.Detect(context.Background(), timewindow.Window{End: 1})
	require.NoError(t, err)
	assert.Empty(t, store.inserted)
	assert.Len(t, report.TopOutliers, 3)
	for _, p := range report.Series {
		assert.Zero(t, p.Score)
	}
}
