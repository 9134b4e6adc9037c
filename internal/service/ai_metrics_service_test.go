package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
)

type fakeDetectionStore struct {
	scores    []models.TypeMinuteRow
	totals    []models.TypeCountRow
	counts    []models.TypeMinuteRow
	durations []int64
	statuses  []models.StatusCount
	baseline  []models.TypeAverage
	anomalies int64
	err       error

	anomalySince, anomalyUntil int64
}

func (f *fakeDetectionStore) ScoreSeries(context.Context, int64, int64, string) ([]models.TypeMinuteRow, error) {
	return f.scores, f.err
}

func (f *fakeDetectionStore) TypeTotals(context.Context, int64, int64, string) ([]models.TypeCountRow, error) {
	return f.totals, nil
}

func (f *fakeDetectionStore) TypeCountSeries(context.Context, int64, int64, string) ([]models.TypeMinuteRow, error) {
	return f.counts, nil
}

func (f *fakeDetectionStore) JobThroughput(context.Context, int64, int64) ([]models.MinuteCount, error) {
	return nil, nil
}

func (f *fakeDetectionStore) JobDurations(context.Context, int64, int64) ([]int64, error) {
	return f.durations, nil
}

func (f *fakeDetectionStore) JobStatusCounts(context.Context, int64, int64) ([]models.StatusCount, error) {
	return f.statuses, nil
}

func (f *fakeDetectionStore) HourHistogram(context.Context, int64, int64, string) ([]models.HourCount, error) {
	return nil, nil
}

func (f *fakeDetectionStore) Hotspots(context.Context, int64, int64) ([]models.Hotspot, error) {
	return nil, nil
}

func (f *fakeDetectionStore) ConfidenceHistogram(context.Context, int64, int64, string) ([]models.BinCount, error) {
	return nil, nil
}

func (f *fakeDetectionStore) BaselineAverages(context.Context, int64, int64, string) ([]models.TypeAverage, error) {
	return f.baseline, nil
}

func (f *fakeDetectionStore) SeverityHistogram(context.Context, int64, int64, string) ([]models.SeverityBin, error) {
	return nil, nil
}

func (f *fakeDetectionStore) AnomalyCount(_ context.Context, since, until int64, _ string) (int64, error) {
	f.anomalySince, f.anomalyUntil = since, until
	return f.anomalies, nil
}

func ptr[T any](v T) *T { return &v }

func countSeries(values ...int64) []models.CountPoint {
	out := make([]models.CountPoint, len(values))
	for i, v := range values {
		out[i] = models.CountPoint{T: "t", Count: v}
	}
	return out
}

func TestNormalizeThresholds(t *testing.T) {
	got := NormalizeThresholds(models.Thresholds{RatePct: 3, ConfBelowPct: -1, AnomPerHour: 0})
	assert.Equal(t, models.Thresholds{RatePct: 1, ConfBelowPct: 0, AnomPerHour: 1}, got)
	assert.Equal(t, DefaultThresholds, NormalizeThresholds(DefaultThresholds))
}

func TestSplitTrend(t *testing.T) {
	trend := splitTrend(countSeries(10, 10, 20, 20))
	assert.InDelta(t, 10, trend.Delta, 1e-9)
	require.NotNil(t, trend.Pct)
	assert.InDelta(t, 1.0, *trend.Pct, 1e-9)

	flat := splitTrend(countSeries(0, 0, 5))
	assert.Nil(t, flat.Pct)
}

func TestTrendAlertFiresOnlyAboveRate(t *testing.T) {
	trend := models.Trend{Delta: 5, Pct: ptr(0.5)}

	_, ok := trendAlert(trend, 0.6, 0, 10, nil)
	assert.False(t, ok)

	a, ok := trendAlert(trend, 0.4, 0, 10, nil)
	require.True(t, ok)
	assert.Equal(t, "Rising detections", a.Title)
	assert.Equal(t, "medium", a.Severity)
	assert.Equal(t, "trend:0:10", a.ID)
	assert.Equal(t, "50% change vs period average", a.Message)

	a, ok = trendAlert(models.Trend{Pct: ptr(-0.9)}, 0.4, 0, 10, nil)
	require.True(t, ok)
	assert.Equal(t, "Falling detections", a.Title)
	assert.Equal(t, "high", a.Severity)

	_, ok = trendAlert(models.Trend{}, 0, 0, 10, nil)
	assert.False(t, ok)
}

func TestTrendAlertMonotonicInRate(t *testing.T) {
	trend := models.Trend{Pct: ptr(0.35)}
	fired := true
	for _, rate := range []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 1} {
		_, ok := trendAlert(trend, rate, 0, 1, nil)
		if !fired {
			assert.False(t, ok, "rate %v fired after a lower rate did not", rate)
		}
		fired = ok
	}
}

func TestConfidenceAlerts(t *testing.T) {
	baseline := models.TypeAverages{PersonAvg: ptr(0.8), VehicleAvg: ptr(0.9)}
	overall := models.TypeAverages{PersonAvg: ptr(0.4), VehicleAvg: ptr(0.85)}

	alerts := confidenceAlerts(baseline, overall, 0.2, 100, ptr("ch1"))
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "person confidence below baseline", a.Title)
	assert.Equal(t, "conf:person:100", a.ID)
	assert.Equal(t, "high", a.Severity)
	assert.Equal(t, "50% below baseline", a.Message)
	assert.Equal(t, "ch1", *a.ChannelID)

	assert.Empty(t, confidenceAlerts(models.TypeAverages{}, overall, 0.2, 100, nil))
}

func TestAnomalyRateAlert(t *testing.T) {
	_, ok := anomalyRateAlert(5, 5, 1, nil)
	assert.False(t, ok)

	a, ok := anomalyRateAlert(6, 5, 1, nil)
	require.True(t, ok)
	assert.Equal(t, "High anomaly rate", a.Title)
	assert.Equal(t, "medium", a.Severity)
	assert.Equal(t, int64(6), *a.Count)

	a, _ = anomalyRateAlert(11, 5, 1, nil)
	assert.Equal(t, "high", a.Severity)
}

func TestMotion(t *testing.T) {
	velocity, momentum := motion(countSeries(1, 3, 7))
	require.Len(t, velocity, 2)
	assert.Equal(t, int64(2), velocity[0].V)
	assert.Equal(t, int64(4), velocity[1].V)
	assert.InDelta(t, 2, momentum, 1e-9)

	velocity, momentum = motion(nil)
	assert.Empty(t, velocity)
	assert.Zero(t, momentum)
}

func TestMinuteTotals(t *testing.T) {
	rows := []models.TypeMinuteRow{
		{Minute: 120_000, Type: models.DetectionPerson, Count: 1},
		{Minute: 60_000, Type: models.DetectionPerson, Count: 3},
		{Minute: 60_000, Type: models.DetectionVehicle, Count: 1},
	}
	totals, ratios := minuteTotals(rows)
	require.Len(t, totals, 2)
	assert.Equal(t, int64(4), totals[0].Count)
	assert.Equal(t, int64(1), totals[1].Count)
	assert.InDelta(t, 0.75, ratios[0].Ratio, 1e-9)
	assert.InDelta(t, 1.0, ratios[1].Ratio, 1e-9)
}

func TestAIMetrics(t *testing.T) {
	store := &fakeDetectionStore{
		scores: []models.TypeMinuteRow{
			{Minute: 60_000, Type: models.DetectionPerson, AvgScore: 0.5, Count: 2},
			{Minute: 60_000, Type: models.DetectionVehicle, AvgScore: 0.9, Count: 1},
		},
		totals: []models.TypeCountRow{
			{Type: models.DetectionPerson, Count: 3},
			{Type: models.DetectionVehicle, Count: 1},
		},
		durations: []int64{300, 100, 200},
		statuses:  []models.StatusCount{{Status: "done", Count: 3}, {Status: "error", Count: 1}},
		baseline:  []models.TypeAverage{{Type: models.DetectionPerson, AvgScore: 1.0}},
		anomalies: 9,
	}
	svc := NewAIMetricsService(store, NewNotifier(nil, "", "", zap.NewNop()), nil, zap.NewNop())

	w := timewindow.Window{Start: 0, End: 3_600_000}
	out, err := svc.Metrics(context.Background(), MetricsQuery{Window: w, Thresholds: DefaultThresholds})
	require.NoError(t, err)

	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, int64(3), out.Totals.Detections)
	assert.Equal(t, int64(4), out.DetectionRatio.Total)
	assert.InDelta(t, 0.75, *out.DetectionRatio.Ratio, 1e-9)
	assert.InDelta(t, 0.75, *out.Jobs.SuccessRate, 1e-9)
	assert.Equal(t, int64(200), *out.Jobs.LatencyMs.P50)
	assert.InDelta(t, 0.5, *out.DetectionConfidence.Deviation.PersonBelowPct, 1e-9)
	assert.Nil(t, out.DetectionConfidence.Deviation.VehicleBelowPct)
	assert.Equal(t, []string{"person confidence below baseline", "High anomaly rate"}, out.Alerts)
	assert.Equal(t, int64(0), store.anomalySince)
	assert.Equal(t, w.End, store.anomalyUntil)
}

func TestAIMetricsPropagatesStoreError(t *testing.T) {
	store := &fakeDetectionStore{err: errors.New("boom")}
	svc := NewAIMetricsService(store, nil, nil, zap.NewNop())

	_, err := svc.Metrics(context.Background(), MetricsQuery{Window: timewindow.Window{End: 1}})
	assert.ErrorContains(t, err, "score series")
}
