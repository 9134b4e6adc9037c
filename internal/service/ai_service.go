package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"eli-dashboard/internal/client"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/neo4j"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

const (
	maxContextChars   = 12000
	forecastHorizon   = 240
	forecastStepMin   = 5
	insightChannels   = 10
	insightAnomalies  = 20
	behaviorChannels  = 50
	behaviorSampleLen = 5
	insightScope      = "dashboard"
)

// Generator is satisfied by *client.VertexClient.
type Generator interface {
	GenerateJSON(ctx context.Context, req client.GenerateRequest) client.GenerateResult
}

// TrafficSource is satisfied by *client.CloudflareClient.
type TrafficSource interface {
	FetchAnalytics(ctx context.Context, since time.Time) client.TrafficResult
}

// ChannelStatsStore is the slice of postgres.DashboardRepository the AI
// endpoints read.
type ChannelStatsStore interface {
	EventsPerMinute(ctx context.Context, start, end int64) ([]models.MinuteCount, error)
	TopChannels(ctx context.Context, start, end int64, limit int) ([]models.ChannelCount, error)
	ChannelBaselines(ctx context.Context, start, end int64, limit int) ([]models.ChannelBaseline, error)
}

type InsightStore interface {
	Insert(ctx context.Context, in models.Insight) (int64, error)
	List(ctx context.Context, f models.InsightFilter) ([]models.Insight, error)
}

// FlowStore yields relationship creation counts per minute.
type FlowStore interface {
	FlowSeries(ctx context.Context, start, end int64) ([]neo4j.FlowPoint, error)
}

var (
	insightSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":         {Type: genai.TypeString},
			"recommendations": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"summary"},
	}

	behaviorSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"baselines": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":             {Type: genai.TypeString},
						"label":          {Type: genai.TypeString},
						"ratePerMin":     {Type: genai.TypeNumber},
						"topicDiversity": {Type: genai.TypeNumber},
						"deviationHints": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					},
					Required: []string{"id", "label"},
				},
			},
			"notes": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"baselines"},
	}

	forecastSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"forecast": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"t":  {Type: genai.TypeString},
						"y":  {Type: genai.TypeNumber},
						"lo": {Type: genai.TypeNumber},
						"hi": {Type: genai.TypeNumber},
					},
					Required: []string{"t", "y"},
				},
			},
		},
	}
)

// AIService backs the model-driven endpoints: insights, behavior baselines,
// forecasts, plus the stored insight feed and Cloudflare traffic.
type AIService struct {
	channels  ChannelStatsStore
	anomalies AnomalyStore
	insights  InsightStore
	flow      FlowStore
	gen       Generator
	traffic   TrafficSource
	logger    *zap.Logger
}

func NewAIService(channels ChannelStatsStore, anomalies AnomalyStore, insights InsightStore, flow FlowStore, gen Generator, traffic TrafficSource, logger *zap.Logger) *AIService {
	return &AIService{
		channels:  channels,
		anomalies: anomalies,
		insights:  insights,
		flow:      flow,
		gen:       gen,
		traffic:   traffic,
		logger:    logger,
	}
}

type insightContext struct {
	Window struct {
		StartTs int64 `json:"startTs"`
		EndTs   int64 `json:"endTs"`
	} `json:"window"`
	TopChannels []models.ChannelCount `json:"topChannels"`
	Anomalies   []models.Anomaly      `json:"anomalies"`
}

// Insights asks the model for a summary of the window and stores a non-empty answer.
func (s *AIService) Insights(ctx context.Context, w timewindow.Window) (*models.InsightReport, error) {
	var ic insightContext
	ic.Window.StartTs = w.Start
	ic.Window.EndTs = w.End

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.channels.TopChannels(gctx, w.Start, w.End, insightChannels)
		ic.TopChannels = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.anomalies.Recent(gctx, w.Start, w.End, insightAnomalies)
		ic.Anomalies = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("insight context: %w", err)
	}

	ctxJSON, err := json.Marshal(ic)
	if err != nil {
		return nil, fmt.Errorf("encode insight context: %w", err)
	}

	res := s.gen.GenerateJSON(ctx, client.GenerateRequest{
		SystemInstruction: "You are a security analytics assistant. Provide concise operational insights and actionable recommendations as JSON only.",
		Prompt: "Given the following telemetry context (JSON), produce a short summary (2-3 sentences) and up to 5 bullet recommendations.\n\nContext:\n" +
			truncate(string(ctxJSON), maxContextChars),
		Schema: insightSchema,
	})

	out := decodeOutput[models.InsightOutput](res.Output)
	if out != nil && out.Summary != "" {
		_, err := s.insights.Insert(ctx, models.Insight{
			Scope:           insightScope,
			Summary:         out.Summary,
			Recommendations: out.Recommendations,
			Context:         ctxJSON,
			Ts:              util.NowMillis(),
		})
		if err != nil {
			return nil, fmt.Errorf("persist insight: %w", err)
		}
	}

	return &models.InsightReport{
		Status:    "ok",
		Insights:  out,
		Warning:   optionalString(res.Error),
		Timestamp: util.NowISO(),
	}, nil
}

// Feed lists stored insights; f is expected to be normalized by the caller.
func (s *AIService) Feed(ctx context.Context, f models.InsightFilter) (*models.InsightFeed, error) {
	rows, err := s.insights.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("insight feed: %w", err)
	}
	return &models.InsightFeed{Status: "ok", Count: len(rows), Data: rows}, nil
}

type behaviorContext struct {
	Window   timewindow.Window        `json:"window"`
	Channels []models.ChannelBaseline `json:"channels"`
}

// Behavior classifies per-channel activity baselines with the model.
func (s *AIService) Behavior(ctx context.Context, w timewindow.Window) (*models.BehaviorReport, error) {
	channels, err := s.channels.ChannelBaselines(ctx, w.Start, w.End, behaviorChannels)
	if err != nil {
		return nil, fmt.Errorf("behavior baselines: %w", err)
	}

	ctxJSON, err := json.Marshal(behaviorContext{Window: w, Channels: channels})
	if err != nil {
		return nil, fmt.Errorf("encode behavior context: %w", err)
	}

	res := s.gen.GenerateJSON(ctx, client.GenerateRequest{
		SystemInstruction: "You are an analytics assistant. Return strictly JSON matching the provided schema. Do not include extra fields.",
		Prompt: "Analyze the following telemetry context and summarize behavior baselines and deviations. Return JSON only.\n\nContext:\n" +
			truncate(string(ctxJSON), maxContextChars),
		Schema: behaviorSchema,
	})

	report := &models.BehaviorReport{
		Status:      "ok",
		Window:      w,
		InputSample: channels[:min(len(channels), behaviorSampleLen)],
		Baselines:   []models.BehaviorBaseline{},
		Notes:       []string{},
		Warning:     optionalString(res.Error),
		Timestamp:   util.NowISO(),
	}
	if out := decodeOutput[models.BehaviorOutput](res.Output); out != nil {
		report.Baselines = nonNil(out.Baselines)
		report.Notes = nonNil(out.Notes)
	}
	return report, nil
}

// Predictive forecasts the event rate and the graph flow rate concurrently.
func (s *AIService) Predictive(ctx context.Context, w timewindow.Window) (*models.PredictiveReport, error) {
	counts, err := s.channels.EventsPerMinute(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("event series: %w", err)
	}
	eventSeries := make([]models.SeriesPoint, 0, len(counts))
	for _, c := range counts {
		eventSeries = append(eventSeries, models.SeriesPoint{T: util.ISOTime(c.Minute), Y: float64(c.Count)})
	}

	var warnings []string
	flowSeries := []models.SeriesPoint{}
	if s.flow == nil {
		warnings = append(warnings, "Graph store not configured")
	} else {
		points, err := s.flow.FlowSeries(ctx, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("flow series: %w", err)
		}
		for _, p := range points {
			flowSeries = append(flowSeries, models.SeriesPoint{T: util.ISOTime(p.Minute), Y: float64(p.Count)})
		}
	}

	var eventsFc, flowFc client.GenerateResult
	var g errgroup.Group
	g.Go(func() error {
		eventsFc = s.forecast(ctx, eventSeries)
		return nil
	})
	g.Go(func() error {
		flowFc = s.forecast(ctx, flowSeries)
		return nil
	})
	_ = g.Wait()

	for _, r := range []client.GenerateResult{eventsFc, flowFc} {
		if r.Error != "" {
			warnings = append(warnings, r.Error)
		}
	}

	return &models.PredictiveReport{
		Status: "ok",
		Window: w,
		Inputs: models.PredictiveInputs{EventSeries: eventSeries, FlowSeries: flowSeries},
		Forecasts: models.PredictiveForecasts{
			Events: forecastPoints(eventsFc),
			Flow:   forecastPoints(flowFc),
		},
		Warnings:  nonNil(warnings),
		Timestamp: util.NowISO(),
	}, nil
}

func (s *AIService) forecast(ctx context.Context, series []models.SeriesPoint) client.GenerateResult {
	history, err := json.Marshal(series)
	if err != nil {
		return client.GenerateResult{Enabled: true, Error: err.Error()}
	}
	return s.gen.GenerateJSON(ctx, client.GenerateRequest{
		SystemInstruction: "You are a time-series forecasting engine. Use sensible uncertainty bands. Output only the JSON schema provided.",
		Prompt: fmt.Sprintf("Given the recent time series (ISO timestamps and values), produce a %d minute forecast at %d minute intervals. Return array field forecast with objects {t,y,lo,hi}.\n\nHistory:\n",
			forecastHorizon, forecastStepMin) + truncate(string(history), maxContextChars),
		Schema: forecastSchema,
	})
}

func forecastPoints(r client.GenerateResult) []models.ForecastPoint {
	if out := decodeOutput[models.ForecastOutput](r.Output); out != nil {
		return nonNil(out.Forecast)
	}
	return []models.ForecastPoint{}
}

// Traffic returns Cloudflare request and threat counts since the window start.
func (s *AIService) Traffic(ctx context.Context, w timewindow.Window) *models.TrafficReport {
	res := s.traffic.FetchAnalytics(ctx, time.UnixMilli(w.Start))
	return &models.TrafficReport{
		Status:    "ok",
		Enabled:   res.Enabled,
		Window:    w,
		Series:    nonNil(res.Series),
		Warning:   optionalString(res.Warning),
		Timestamp: util.NowISO(),
	}
}

// decodeOutput returns nil for absent or mismatched model output.
func decodeOutput[T any](raw json.RawMessage) *T {
	if len(raw) == 0 {
		return nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
