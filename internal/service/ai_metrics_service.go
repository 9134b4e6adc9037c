package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

const baselineSpan = 7 * 24 * time.Hour

// DetectionStore is implemented by postgres.DetectionRepository.
type DetectionStore interface {
	ScoreSeries(ctx context.Context, start, end int64, channelID string) ([]models.TypeMinuteRow, error)
	TypeTotals(ctx context.Context, start, end int64, channelID string) ([]models.TypeCountRow, error)
	TypeCountSeries(ctx context.Context, start, end int64, channelID string) ([]models.TypeMinuteRow, error)
	JobThroughput(ctx context.Context, start, end int64) ([]models.MinuteCount, error)
	JobDurations(ctx context.Context, start, end int64) ([]int64, error)
	JobStatusCounts(ctx context.Context, start, end int64) ([]models.StatusCount, error)
	HourHistogram(ctx context.Context, start, end int64, channelID string) ([]models.HourCount, error)
	Hotspots(ctx context.Context, start, end int64) ([]models.Hotspot, error)
	ConfidenceHistogram(ctx context.Context, start, end int64, channelID string) ([]models.BinCount, error)
	BaselineAverages(ctx context.Context, start, end int64, channelID string) ([]models.TypeAverage, error)
	SeverityHistogram(ctx context.Context, start, end int64, channelID string) ([]models.SeverityBin, error)
	AnomalyCount(ctx context.Context, since, until int64, channelID string) (int64, error)
}

// MetricsQuery selects the window, optional channel and alert thresholds.
type MetricsQuery struct {
	Window     timewindow.Window
	ChannelID  string
	Thresholds models.Thresholds
}

// DefaultThresholds are used when the caller supplies none.
var DefaultThresholds = models.Thresholds{RatePct: 0.4, ConfBelowPct: 0.2, AnomPerHour: 5}

// NormalizeThresholds clamps the two ratios to [0,1] and the hourly count to >= 1.
func NormalizeThresholds(t models.Thresholds) models.Thresholds {
	t.RatePct = clamp(t.RatePct, 0, 1)
	t.ConfBelowPct = clamp(t.ConfBelowPct, 0, 1)
	if t.AnomPerHour < 1 {
		t.AnomPerHour = 1
	}
	return t
}

type AIMetricsService struct {
	store    DetectionStore
	notifier *Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewAIMetricsService(store DetectionStore, notifier *Notifier, m *metrics.Metrics, logger *zap.Logger) *AIMetricsService {
	return &AIMetricsService{store: store, notifier: notifier, metrics: m, logger: logger}
}

// detectionAggregates holds the raw query results for one window.
type detectionAggregates struct {
	scoreSeries     []models.TypeMinuteRow
	typeTotals      []models.TypeCountRow
	countSeries     []models.TypeMinuteRow
	throughput      []models.MinuteCount
	durations       []int64
	statusCounts    []models.StatusCount
	hourHistogram   []models.HourCount
	hotspots        []models.Hotspot
	confHistogram   []models.BinCount
	baseline        []models.TypeAverage
	severity        []models.SeverityBin
	anomaliesInHour int64
}

// Metrics runs every aggregate concurrently and derives trends and alerts.
func (s *AIMetricsService) Metrics(ctx context.Context, q MetricsQuery) (*models.AIMetrics, error) {
	startTime := time.Now()
	q.Thresholds = NormalizeThresholds(q.Thresholds)

	agg, err := s.collect(ctx, q)
	if err != nil {
		return nil, err
	}

	out := buildAIMetrics(q, agg)
	out.Timestamp = util.NowISO()

	for _, a := range out.AlertsDetailed {
		s.metrics.IncAlert(a.Kind, a.Severity)
	}
	s.notifier.Alerts(ctx, out.AlertsDetailed)

	s.logger.Debug("AI metrics computed",
		zap.Int64("start", q.Window.Start),
		zap.Int64("end", q.Window.End),
		zap.String("channel_id", q.ChannelID),
		zap.Int("alerts", len(out.AlertsDetailed)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return out, nil
}

func (s *AIMetricsService) collect(ctx context.Context, q MetricsQuery) (*detectionAggregates, error) {
	start, end, ch := q.Window.Start, q.Window.End, q.ChannelID
	agg := &detectionAggregates{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(6)

	run := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	run("score series", func() (err error) {
		agg.scoreSeries, err = s.store.ScoreSeries(gctx, start, end, ch)
		return
	})
	run("type totals", func() (err error) {
		agg.typeTotals, err = s.store.TypeTotals(gctx, start, end, ch)
		return
	})
	run("count series", func() (err error) {
		agg.countSeries, err = s.store.TypeCountSeries(gctx, start, end, ch)
		return
	})
	run("job throughput", func() (err error) {
		agg.throughput, err = s.store.JobThroughput(gctx, start, end)
		return
	})
	run("job durations", func() (err error) {
		agg.durations, err = s.store.JobDurations(gctx, start, end)
		return
	})
	run("job status", func() (err error) {
		agg.statusCounts, err = s.store.JobStatusCounts(gctx, start, end)
		return
	})
	run("hour histogram", func() (err error) {
		agg.hourHistogram, err = s.store.HourHistogram(gctx, start, end, ch)
		return
	})
	run("hotspots", func() (err error) {
		agg.hotspots, err = s.store.Hotspots(gctx, start, end)
		return
	})
	run("confidence histogram", func() (err error) {
		agg.confHistogram, err = s.store.ConfidenceHistogram(gctx, start, end, ch)
		return
	})
	run("baseline", func() (err error) {
		agg.baseline, err = s.store.BaselineAverages(gctx, end-baselineSpan.Milliseconds(), end, ch)
		return
	})
	run("severity histogram", func() (err error) {
		agg.severity, err = s.store.SeverityHistogram(gctx, start, end, ch)
		return
	})
	run("anomaly rate", func() (err error) {
		agg.anomaliesInHour, err = s.store.AnomalyCount(gctx, end-time.Hour.Milliseconds(), end, ch)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ai metrics: %w", err)
	}
	return agg, nil
}

func buildAIMetrics(q MetricsQuery, agg *detectionAggregates) *models.AIMetrics {
	th := q.Thresholds
	start, end := q.Window.Start, q.Window.End

	confidence := confidenceSeries(agg.scoreSeries)
	overall := models.TypeAverages{
		PersonAvg:  average(pick(confidence, func(p models.ConfidencePoint) *float64 { return p.PersonAvg })),
		VehicleAvg: average(pick(confidence, func(p models.ConfidencePoint) *float64 { return p.VehicleAvg })),
		OtherAvg:   average(pick(confidence, func(p models.ConfidencePoint) *float64 { return p.OtherAvg })),
	}
	baseline := baselineAverages(agg.baseline)

	var totalDetections int64
	for _, r := range agg.scoreSeries {
		totalDetections += r.Count
	}

	perMinute, ratio := minuteTotals(agg.countSeries)
	velocity, momentum := motion(perMinute)
	trend := splitTrend(perMinute)

	person, vehicle := typeTotal(agg.typeTotals, models.DetectionPerson), typeTotal(agg.typeTotals, models.DetectionVehicle)
	var overallRatio *float64
	if person+vehicle > 0 {
		r := float64(person) / float64(person+vehicle)
		overallRatio = &r
	}

	sort.Slice(agg.durations, func(i, j int) bool { return agg.durations[i] < agg.durations[j] })
	done, failed := statusCount(agg.statusCounts, "done"), statusCount(agg.statusCounts, "error")
	var successRate *float64
	if done+failed > 0 {
		r := float64(done) / float64(done+failed)
		successRate = &r
	}

	throughput := make([]models.CountPoint, 0, len(agg.throughput))
	for _, m := range agg.throughput {
		throughput = append(throughput, models.CountPoint{T: util.ISOTime(m.Minute), Count: m.Count})
	}

	var channelID *string
	if q.ChannelID != "" {
		channelID = &q.ChannelID
	}

	alerts := []models.Alert{}
	if a, ok := trendAlert(trend, th.RatePct, start, end, channelID); ok {
		alerts = append(alerts, a)
	}
	alerts = append(alerts, confidenceAlerts(baseline, overall, th.ConfBelowPct, end, channelID)...)
	if a, ok := anomalyRateAlert(agg.anomaliesInHour, th.AnomPerHour, end, channelID); ok {
		alerts = append(alerts, a)
	}
	titles := make([]string, 0, len(alerts))
	for _, a := range alerts {
		titles = append(titles, a.Title)
	}

	return &models.AIMetrics{
		Status: "ok",
		Window: q.Window,
		DetectionConfidence: models.DetectionConfidence{
			Series:   confidence,
			Overall:  overall,
			Baseline: baseline,
			Deviation: models.Deviation{
				PersonBelowPct:  belowBaseline(baseline.PersonAvg, overall.PersonAvg),
				VehicleBelowPct: belowBaseline(baseline.VehicleAvg, overall.VehicleAvg),
			},
			Histogram: nonNil(agg.confHistogram),
		},
		DetectionRatio: models.DetectionRatio{
			Person:  person,
			Vehicle: vehicle,
			Total:   person + vehicle,
			Ratio:   overallRatio,
			Series:  ratio,
		},
		Totals: models.Totals{
			Detections: totalDetections,
			PerMinute:  perMinute,
			Velocity:   velocity,
			Momentum:   momentum,
			Trend:      trend,
		},
		Jobs: models.JobStats{
			Throughput: throughput,
			LatencyMs: models.Latency{
				P50: percentile(agg.durations, 0.5),
				P90: percentile(agg.durations, 0.9),
				P95: percentile(agg.durations, 0.95),
			},
			SuccessRate: successRate,
		},
		Patterns: models.Patterns{
			HourHistogram: nonNil(agg.hourHistogram),
			Hotspots:      nonNil(agg.hotspots),
		},
		Anomalies:      models.AnomalySummary{SeverityHistogram: nonNil(agg.severity)},
		Alerts:         titles,
		AlertsDetailed: alerts,
		Thresholds:     th,
	}
}

// confidenceSeries pivots (minute, type) averages into one point per minute.
// Types other than person and vehicle share OtherAvg; the last row wins.
func confidenceSeries(rows []models.TypeMinuteRow) []models.ConfidencePoint {
	byMinute := map[int64]*models.ConfidencePoint{}
	var minutes []int64
	for _, r := range rows {
		p, ok := byMinute[r.Minute]
		if !ok {
			p = &models.ConfidencePoint{T: util.ISOTime(r.Minute)}
			byMinute[r.Minute] = p
			minutes = append(minutes, r.Minute)
		}
		avg := r.AvgScore
		switch r.Type {
		case models.DetectionPerson:
			p.PersonAvg = &avg
		case models.DetectionVehicle:
			p.VehicleAvg = &avg
		default:
			p.OtherAvg = &avg
		}
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i] < minutes[j] })

	out := make([]models.ConfidencePoint, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, *byMinute[m])
	}
	return out
}

func pick(points []models.ConfidencePoint, field func(models.ConfidencePoint) *float64) []float64 {
	var out []float64
	for _, p := range points {
		if v := field(p); v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
			out = append(out, *v)
		}
	}
	return out
}

func baselineAverages(rows []models.TypeAverage) models.TypeAverages {
	var b models.TypeAverages
	for _, r := range rows {
		avg := r.AvgScore
		switch r.Type {
		case models.DetectionPerson:
			b.PersonAvg = &avg
		case models.DetectionVehicle:
			b.VehicleAvg = &avg
		default:
			b.OtherAvg = &avg
		}
	}
	return b
}

// belowBaseline is (baseline-current)/baseline, nil unless baseline > 0 and current is known.
func belowBaseline(baseline, current *float64) *float64 {
	if baseline == nil || *baseline <= 0 || current == nil {
		return nil
	}
	d := (*baseline - *current) / *baseline
	return &d
}

// minuteTotals sums person and vehicle counts per minute and derives the
// person share of each minute.
func minuteTotals(rows []models.TypeMinuteRow) ([]models.CountPoint, []models.RatioPoint) {
	type pv struct{ person, vehicle int64 }
	byMinute := map[int64]*pv{}
	var minutes []int64
	for _, r := range rows {
		c, ok := byMinute[r.Minute]
		if !ok {
			c = &pv{}
			byMinute[r.Minute] = c
			minutes = append(minutes, r.Minute)
		}
		switch r.Type {
		case models.DetectionPerson:
			c.person = r.Count
		case models.DetectionVehicle:
			c.vehicle = r.Count
		}
	}
	sort.Slice(minutes, func(i, j int) bool { return minutes[i] < minutes[j] })

	totals := make([]models.CountPoint, 0, len(minutes))
	ratios := make([]models.RatioPoint, 0, len(minutes))
	for _, m := range minutes {
		c := byMinute[m]
		t := util.ISOTime(m)
		sum := c.person + c.vehicle
		totals = append(totals, models.CountPoint{T: t, Count: sum})
		ratio := 0.0
		if sum > 0 {
			ratio = float64(c.person) / float64(sum)
		}
		ratios = append(ratios, models.RatioPoint{T: t, Ratio: ratio})
	}
	return totals, ratios
}

// motion returns first differences and the mean of second differences.
func motion(series []models.CountPoint) ([]models.VelocityPoint, float64) {
	velocity := []models.VelocityPoint{}
	var accel []float64
	for i := 1; i < len(series); i++ {
		v := series[i].Count - series[i-1].Count
		velocity = append(velocity, models.VelocityPoint{T: series[i].T, V: v})
		if i > 1 {
			prev := series[i-1].Count - series[i-2].Count
			accel = append(accel, float64(v-prev))
		}
	}
	return velocity, orZero(average(accel))
}

// splitTrend compares the mean of the second half against the first.
func splitTrend(series []models.CountPoint) models.Trend {
	half := len(series) / 2
	first := make([]float64, 0, half)
	last := make([]float64, 0, len(series)-half)
	for i, p := range series {
		if i < half {
			first = append(first, float64(p.Count))
		} else {
			last = append(last, float64(p.Count))
		}
	}
	firstAvg, lastAvg := orZero(average(first)), orZero(average(last))
	delta := lastAvg - firstAvg

	var pct *float64
	if firstAvg != 0 {
		p := delta / firstAvg
		pct = &p
	}
	return models.Trend{Delta: delta, Pct: pct}
}

func trendAlert(trend models.Trend, ratePct float64, start, end int64, channelID *string) (models.Alert, bool) {
	if trend.Pct == nil || math.Abs(*trend.Pct) <= ratePct {
		return models.Alert{}, false
	}
	pct := *trend.Pct
	title := "Falling detections"
	if pct > 0 {
		title = "Rising detections"
	}
	return models.Alert{
		ID:        fmt.Sprintf("trend:%d:%d", start, end),
		Severity:  severity(math.Abs(pct), ratePct*2),
		Title:     title,
		Message:   fmt.Sprintf("%d%% change vs period average", roundPct(math.Abs(pct))),
		Ts:        end,
		ChannelID: channelID,
		Kind:      models.AlertKindTrend,
		Pct:       &pct,
	}, true
}

func confidenceAlerts(baseline, overall models.TypeAverages, confBelowPct float64, end int64, channelID *string) []models.Alert {
	checks := []struct {
		typ     string
		base    *float64
		current *float64
	}{
		{models.DetectionPerson, baseline.PersonAvg, overall.PersonAvg},
		{models.DetectionVehicle, baseline.VehicleAvg, overall.VehicleAvg},
	}

	var out []models.Alert
	for _, c := range checks {
		if c.base == nil || *c.base == 0 || c.current == nil {
			continue
		}
		drop := (*c.base - *c.current) / *c.base
		if drop <= confBelowPct {
			continue
		}
		out = append(out, models.Alert{
			ID:        fmt.Sprintf("conf:%s:%d", c.typ, end),
			Severity:  severity(drop, confBelowPct*2),
			Title:     c.typ + " confidence below baseline",
			Message:   fmt.Sprintf("%d%% below baseline", roundPct(drop)),
			Ts:        end,
			ChannelID: channelID,
			Kind:      models.AlertKindConfidence,
			Drop:      &drop,
			Type:      c.typ,
		})
	}
	return out
}

func anomalyRateAlert(count int64, perHour int, end int64, channelID *string) (models.Alert, bool) {
	if count <= int64(perHour) {
		return models.Alert{}, false
	}
	return models.Alert{
		ID:        fmt.Sprintf("anom:%d", end),
		Severity:  severity(float64(count), float64(perHour*2)),
		Title:     "High anomaly rate",
		Message:   fmt.Sprintf("%d anomalies in the last hour", count),
		Ts:        end,
		ChannelID: channelID,
		Kind:      models.AlertKindAnomalyRate,
		Count:     &count,
	}, true
}

func severity(value, highAbove float64) string {
	if value > highAbove {
		return "high"
	}
	return "medium"
}

func roundPct(ratio float64) int64 {
	return int64(math.Floor(ratio*100 + 0.5))
}

func typeTotal(rows []models.TypeCountRow, typ string) int64 {
	for _, r := range rows {
		if r.Type == typ {
			return r.Count
		}
	}
	return 0
}

func statusCount(rows []models.StatusCount, status string) int64 {
	for _, r := range rows {
		if r.Status == status {
			return r.Count
		}
	}
	return 0
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
