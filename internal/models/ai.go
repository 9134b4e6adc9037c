package models

import (
	"encoding/json"

	"eli-dashboard/internal/timewindow"
)

// Detection types tracked by the aggregation queries.
const (
	DetectionPerson  = "person"
	DetectionVehicle = "vehicle"
)

// TypeMinuteRow is one (minute, type) aggregate of ai_detections. Minute is epoch ms.
type TypeMinuteRow struct {
	Minute   int64
	Type     string
	AvgScore float64
	Count    int64
}

// MinuteCount is a per-minute tally. Minute is epoch ms.
type MinuteCount struct {
	Minute int64
	Count  int64
}

type TypeCountRow struct {
	Type  string
	Count int64
}

type StatusCount struct {
	Status string
	Count  int64
}

type TypeAverage struct {
	Type     string
	AvgScore float64
}

// TypeAverages holds per-type mean scores; nil means no samples.
type TypeAverages struct {
	PersonAvg  *float64 `json:"personAvg"`
	VehicleAvg *float64 `json:"vehicleAvg"`
	OtherAvg   *float64 `json:"otherAvg"`
}

type ConfidencePoint struct {
	T          string   `json:"t"`
	PersonAvg  *float64 `json:"personAvg,omitempty"`
	VehicleAvg *float64 `json:"vehicleAvg,omitempty"`
	OtherAvg   *float64 `json:"otherAvg,omitempty"`
}

type Deviation struct {
	PersonBelowPct  *float64 `json:"personBelowPct"`
	VehicleBelowPct *float64 `json:"vehicleBelowPct"`
}

type BinCount struct {
	Bin   int   `json:"bin"`
	Count int64 `json:"count"`
}

type SeverityBin struct {
	Bin   string `json:"bin"`
	Count int64  `json:"count"`
}

type DetectionConfidence struct {
	Series    []ConfidencePoint `json:"series"`
	Overall   TypeAverages      `json:"overall"`
	Baseline  TypeAverages      `json:"baseline"`
	Deviation Deviation         `json:"deviation"`
	Histogram []BinCount        `json:"histogram"`
}

type RatioPoint struct {
	T     string  `json:"t"`
	Ratio float64 `json:"ratio"`
}

type DetectionRatio struct {
	Person  int64        `json:"person"`
	Vehicle int64        `json:"vehicle"`
	Total   int64        `json:"total"`
	Ratio   *float64     `json:"ratio"`
	Series  []RatioPoint `json:"series"`
}

type CountPoint struct {
	T     string `json:"t"`
	Count int64  `json:"count"`
}

type VelocityPoint struct {
	T string `json:"t"`
	V int64  `json:"v"`
}

type Trend struct {
	Delta float64  `json:"delta"`
	Pct   *float64 `json:"pct"`
}

type Totals struct {
	Detections int64           `json:"detections"`
	PerMinute  []CountPoint    `json:"perMinute"`
	Velocity   []VelocityPoint `json:"velocity"`
	Momentum   float64         `json:"momentum"`
	Trend      Trend           `json:"trend"`
}

type Latency struct {
	P50 *int64 `json:"p50"`
	P90 *int64 `json:"p90"`
	P95 *int64 `json:"p95"`
}

type JobStats struct {
	Throughput  []CountPoint `json:"throughput"`
	LatencyMs   Latency      `json:"latencyMs"`
	SuccessRate *float64     `json:"successRate"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type Hotspot struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Count       int64  `json:"count"`
}

type Patterns struct {
	HourHistogram []HourCount `json:"hourHistogram"`
	Hotspots      []Hotspot   `json:"hotspots"`
}

type AnomalySummary struct {
	SeverityHistogram []SeverityBin `json:"severityHistogram"`
}

// Thresholds are the alert knobs accepted on /api/ai/metrics.
type Thresholds struct {
	RatePct      float64 `json:"ratePct"`
	ConfBelowPct float64 `json:"confBelowPct"`
	AnomPerHour  int     `json:"anomPerHour"`
}

// Alert kinds.
const (
	AlertKindTrend       = "trend"
	AlertKindConfidence  = "confidence"
	AlertKindAnomalyRate = "anomaly_rate"
)

type Alert struct {
	ID        string   `json:"id"`
	Severity  string   `json:"severity"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Ts        int64    `json:"ts"`
	ChannelID *string  `json:"channel_id"`
	Kind      string   `json:"kind"`
	Pct       *float64 `json:"pct,omitempty"`
	Drop      *float64 `json:"drop,omitempty"`
	Type      string   `json:"type,omitempty"`
	Count     *int64   `json:"count,omitempty"`
}

type AIMetrics struct {
	Status              string              `json:"status"`
	Window              timewindow.Window   `json:"window"`
	DetectionConfidence DetectionConfidence `json:"detectionConfidence"`
	DetectionRatio      DetectionRatio      `json:"detectionRatio"`
	Totals              Totals              `json:"totals"`
	Jobs                JobStats            `json:"jobs"`
	Patterns            Patterns            `json:"patterns"`
	Anomalies           AnomalySummary      `json:"anomalies"`
	Alerts              []string            `json:"alerts"`
	AlertsDetailed      []Alert             `json:"alertsDetailed"`
	Thresholds          Thresholds          `json:"thresholds"`
	Timestamp           string              `json:"timestamp"`
}

type SeriesPoint struct {
	T string  `json:"t"`
	Y float64 `json:"y"`
}

type ScoredPoint struct {
	T     string  `json:"t"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

type AnomalyReport struct {
	Status        string            `json:"status"`
	Window        timewindow.Window `json:"window"`
	Series        []ScoredPoint     `json:"series"`
	TopOutliers   []ScoredPoint     `json:"topOutliers"`
	ThresholdHint float64           `json:"thresholdHint"`
	Timestamp     string            `json:"timestamp"`
}

// Anomaly is a persisted row of ai_anomalies.
type Anomaly struct {
	ID         int64           `json:"id,omitempty"`
	Metric     string          `json:"metric"`
	EntityType string          `json:"entity_type"`
	EntityID   *string         `json:"entity_id"`
	Value      float64         `json:"value"`
	Score      float64         `json:"score"`
	Threshold  float64         `json:"threshold"`
	Window     json.RawMessage `json:"window,omitempty"`
	Context    json.RawMessage `json:"context,omitempty"`
	Ts         int64           `json:"ts"`
}

// Insight is a persisted row of ai_insights.
type Insight struct {
	ID              int64           `json:"id"`
	Scope           string          `json:"scope"`
	ScopeID         *string         `json:"scope_id"`
	Summary         string          `json:"summary"`
	Recommendations []string        `json:"recommendations"`
	Context         json.RawMessage `json:"context"`
	Ts              int64           `json:"ts"`
}

type InsightFilter struct {
	Scope   string
	ScopeID string
	Since   int64
	Limit   int
}

type InsightFeed struct {
	Status string    `json:"status"`
	Count  int       `json:"count"`
	Data   []Insight `json:"data"`
}

// InsightOutput is the model's structured answer for /api/ai/insights.
type InsightOutput struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type InsightReport struct {
	Status    string         `json:"status"`
	Insights  *InsightOutput `json:"insights"`
	Warning   *string        `json:"warning"`
	Timestamp string         `json:"timestamp"`
}

type ChannelCount struct {
	ChannelID   *string `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	Events      int64   `json:"events"`
}

type ChannelBaseline struct {
	ChannelID   *string `json:"channel_id"`
	ChannelName *string `json:"channel_name"`
	Events      int64   `json:"events"`
	Topics      int64   `json:"topics"`
	FirstTs     int64   `json:"first_ts"`
	LastTs      int64   `json:"last_ts"`
}

type BehaviorBaseline struct {
	ID             string   `json:"id"`
	Label          string   `json:"label"`
	RatePerMin     *float64 `json:"ratePerMin,omitempty"`
	TopicDiversity *float64 `json:"topicDiversity,omitempty"`
	DeviationHints []string `json:"deviationHints,omitempty"`
}

type BehaviorOutput struct {
	Baselines []BehaviorBaseline `json:"baselines"`
	Notes     []string           `json:"notes"`
}

type BehaviorReport struct {
	Status      string             `json:"status"`
	Window      timewindow.Window  `json:"window"`
	InputSample []ChannelBaseline  `json:"inputSample"`
	Baselines   []BehaviorBaseline `json:"baselines"`
	Notes       []string           `json:"notes"`
	Warning     *string            `json:"warning"`
	Timestamp   string             `json:"timestamp"`
}

type ForecastPoint struct {
	T  string   `json:"t"`
	Y  float64  `json:"y"`
	Lo *float64 `json:"lo,omitempty"`
	Hi *float64 `json:"hi,omitempty"`
}

type ForecastOutput struct {
	Forecast []ForecastPoint `json:"forecast"`
}

type PredictiveInputs struct {
	EventSeries []SeriesPoint `json:"eventSeries"`
	FlowSeries  []SeriesPoint `json:"flowSeries"`
}

type PredictiveForecasts struct {
	Events []ForecastPoint `json:"events"`
	Flow   []ForecastPoint `json:"flow"`
}

type PredictiveReport struct {
	Status    string              `json:"status"`
	Window    timewindow.Window   `json:"window"`
	Inputs    PredictiveInputs    `json:"inputs"`
	Forecasts PredictiveForecasts `json:"forecasts"`
	Warnings  []string            `json:"warnings"`
	Timestamp string              `json:"timestamp"`
}

type TrafficPoint struct {
	T        string `json:"t"`
	Requests int64  `json:"requests"`
	Threats  int64  `json:"threats"`
}

type TrafficReport struct {
	Status    string            `json:"status"`
	Enabled   bool              `json:"enabled"`
	Window    timewindow.Window `json:"window"`
	Series    []TrafficPoint    `json:"series"`
	Warning   *string           `json:"warning"`
	Timestamp string            `json:"timestamp"`
}
