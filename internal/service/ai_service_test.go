package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eli-dashboard/internal/client"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/neo4j"
	"eli-dashboard/internal/timewindow"
)

type fakeGenerator struct {
	mu       sync.Mutex
	output   string
	errText  string
	requests []client.GenerateRequest
}

func (g *fakeGenerator) GenerateJSON(_ context.Context, req client.GenerateRequest) client.GenerateResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	res := client.GenerateResult{Enabled: true, Error: g.errText}
	if g.output != "" {
		res.Output = json.RawMessage(g.output)
	}
	return res
}

type fakeChannelStats struct {
	perMinute []models.MinuteCount
	top       []models.ChannelCount
	baselines []models.ChannelBaseline
}

func (f fakeChannelStats) EventsPerMinute(context.Context, int64, int64) ([]models.MinuteCount, error) {
	return f.perMinute, nil
}

func (f fakeChannelStats) TopChannels(context.Context, int64, int64, int) ([]models.ChannelCount, error) {
	return f.top, nil
}

func (f fakeChannelStats) ChannelBaselines(context.Context, int64, int64, int) ([]models.ChannelBaseline, error) {
	return f.baselines, nil
}

type fakeInsightStore struct {
	inserted []models.Insight
}

func (f *fakeInsightStore) Insert(_ context.Context, in models.Insight) (int64, error) {
	f.inserted = append(f.inserted, in)
	return int64(len(f.inserted)), nil
}

func (f *fakeInsightStore) List(context.Context, models.InsightFilter) ([]models.Insight, error) {
	return f.inserted, nil
}

type fakeFlow struct{ points []neo4j.FlowPoint }

func (f fakeFlow) FlowSeries(context.Context, int64, int64) ([]neo4j.FlowPoint, error) {
	return f.points, nil
}

type fakeTraffic struct{}

func (fakeTraffic) FetchAnalytics(context.Context, time.Time) client.TrafficResult {
	return client.TrafficResult{Enabled: false, Warning: "Cloudflare not configured"}
}

func newAIService(gen *fakeGenerator, insights *fakeInsightStore, flow FlowStore) *AIService {
	stats := fakeChannelStats{
		perMinute: []models.MinuteCount{{Minute: 0, Count: 4}, {Minute: 60_000, Count: 6}},
		top:       []models.ChannelCount{{ChannelID: ptr("7"), Events: 12}},
	}
	return NewAIService(stats, &fakeAnomalyStore{}, insights, flow, gen, fakeTraffic{}, zap.NewNop())
}

func TestInsightsPersistsSummary(t *testing.T) {
	gen := &fakeGenerator{output: `{"summary":"Quiet night.","recommendations":["Check camera 7"]}`}
	insights := &fakeInsightStore{}
	svc := newAIService(gen, insights, nil)

	report, err := svc.Insights(context.Background(), timewindow.Window{Start: 1, End: 2})
	require.NoError(t, err)
	require.NotNil(t, report.Insights)
	assert.Equal(t, "Quiet night.", report.Insights.Summary)
	assert.Nil(t, report.Warning)

	require.Len(t, insights.inserted, 1)
	saved := insights.inserted[0]
	assert.Equal(t, insightScope, saved.Scope)
	assert.Equal(t, []string{"Check camera 7"}, saved.Recommendations)
	assert.Contains(t, string(saved.Context), `"startTs":1`)

	require.Len(t, gen.requests, 1)
	assert.True(t, strings.Contains(gen.requests[0].Prompt, "Context:\n{"))
	assert.Same(t, insightSchema, gen.requests[0].Schema)
}

func TestInsightsWithoutOutputSkipsPersistence(t *testing.T) {
	gen := &fakeGenerator{errText: "model unavailable"}
	insights := &fakeInsightStore{}

	report, err := newAIService(gen, insights, nil).Insights(context.Background(), timewindow.Window{End: 1})
	require.NoError(t, err)
	assert.Nil(t, report.Insights)
	require.NotNil(t, report.Warning)
	assert.Equal(t, "model unavailable", *report.Warning)
	assert.Empty(t, insights.inserted)
}

func TestPredictiveWithoutGraphStore(t *testing.T) {
	gen := &fakeGenerator{output: `{"forecast":[{"t":"2024-01-01T00:05:00.000Z","y":5,"lo":3,"hi":7}]}`}

	report, err := newAIService(gen, &fakeInsightStore{}, nil).Predictive(context.Background(), timewindow.Window{End: 120_000})
	require.NoError(t, err)
	assert.Equal(t, []string{"Graph store not configured"}, report.Warnings)
	assert.Len(t, report.Inputs.EventSeries, 2)
	assert.Empty(t, report.Inputs.FlowSeries)
	require.Len(t, report.Forecasts.Events, 1)
	assert.Equal(t, float64(5), report.Forecasts.Events[0].Y)
	assert.Len(t, gen.requests, 2)
}

func TestPredictiveUsesFlowSeries(t *testing.T) {
	gen := &fakeGenerator{errText: "quota exceeded"}
	flow := fakeFlow{points: []neo4j.FlowPoint{{Minute: 60_000, Count: 3}}}

	report, err := newAIService(gen, &fakeInsightStore{}, flow).Predictive(context.Background(), timewindow.Window{End: 120_000})
	require.NoError(t, err)
	require.Len(t, report.Inputs.FlowSeries, 1)
	assert.Equal(t, "1970-01-01T00:01:00.000Z", report.Inputs.FlowSeries[0].T)
	assert.Equal(t, []string{"quota exceeded", "quota exceeded"}, report.Warnings)
	assert.Empty(t, report.Forecasts.Flow)
}

func TestBehaviorSamplesInput(t *testing.T) {
	gen := &fakeGenerator{output: `{"notes":["steady"]}`}
	stats := fakeChannelStats{}
	for i := 0; i < 8; i++ {
		stats.baselines = append(stats.baselines, models.ChannelBaseline{})
	}
	svc := NewAIService(stats, &fakeAnomalyStore{}, &fakeInsightStore{}, nil, gen, fakeTraffic{}, zap.NewNop())

	report, err := svc.Behavior(context.Background(), timewindow.Window{End: 1})
	require.NoError(t, err)
	assert.Len(t, report.InputSample, behaviorSampleLen)
	assert.Equal(t, []string{"steady"}, report.Notes)
	assert.NotNil(t, report.Baselines)
}

func TestTrafficReportsDisabled(t *testing.T) {
	report := newAIService(&fakeGenerator{}, &fakeInsightStore{}, nil).Traffic(context.Background(), timewindow.Window{End: 1})
	assert.False(t, report.Enabled)
	assert.NotNil(t, report.Series)
	require.NotNil(t, report.Warning)
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "abc", truncate("abc", 10))
}
