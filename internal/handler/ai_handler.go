package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/models"
	"eli-dashboard/internal/service"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

const aiDefaultRange = "30m"

// AIHandler serves /api/ai.
type AIHandler struct {
	responder
	aiMetrics *service.AIMetricsService
	anomalies *service.AnomalyService
	stream    *service.StreamService
	ai        *service.AIService
	metrics   *metrics.Metrics
}

func NewAIHandler(aiMetrics *service.AIMetricsService, anomalies *service.AnomalyService, stream *service.StreamService,
	ai *service.AIService, m *metrics.Metrics, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		responder: responder{logger: logger},
		aiMetrics: aiMetrics,
		anomalies: anomalies,
		stream:    stream,
		ai:        ai,
		metrics:   m,
	}
}

func (h *AIHandler) RegisterRoutes(router chi.Router) {
	router.Route("/ai", func(r chi.Router) {
		r.Get("/metrics", h.Metrics)
		r.Get("/anomaly", h.Anomaly)
		r.Get("/stream", h.Stream)
		r.Get("/insights", h.Insights)
		r.Get("/insights-feed", h.InsightsFeed)
		r.Get("/behavior", h.Behavior)
		r.Get("/predictive", h.Predictive)
		r.Get("/traffic", h.Traffic)

		r.Post("/poll", gone("AI enqueue moved: handled by the ingestion webhook via Pub/Sub"))
		r.Post("/process-job", gone("AI processing moved: handled by the Pub/Sub inference worker"))
		r.Get("/jobs", gone("Jobs endpoint deprecated: processing moved to the Pub/Sub inference worker"))
	})
}

func (h *AIHandler) window(r *http.Request) timewindow.Window {
	return timewindow.FromQuery(r.URL.Query(), aiDefaultRange, time.Now()).Window
}

func (h *AIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	anomPerHour := service.DefaultThresholds.AnomPerHour
	if raw := q.Get("threshold_anom_per_hour"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			anomPerHour = n
		}
	}
	out, err := h.aiMetrics.Metrics(r.Context(), service.MetricsQuery{
		Window:    h.window(r),
		ChannelID: q.Get("channel_id"),
		Thresholds: models.Thresholds{
			RatePct:      queryFloat(r, "threshold_rate_pct", service.DefaultThresholds.RatePct),
			ConfBelowPct: queryFloat(r, "threshold_conf_below_pct", service.DefaultThresholds.ConfBelowPct),
			AnomPerHour:  anomPerHour,
		},
	})
	if err != nil {
		h.respondWithError(w, r, err, "AI metrics failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *AIHandler) Anomaly(w http.ResponseWriter, r *http.Request) {
	out, err := h.anomalies.Detect(r.Context(), h.window(r))
	if err != nil {
		h.respondWithError(w, r, err, "Anomaly detection failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

// Stream pushes newly persisted anomalies as server-sent events until the
// client goes away.
func (h *AIHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the server write timeout would otherwise cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Warn("Streaming unsupported by response writer", util.ErrorField(err))
		return
	}

	done := h.metrics.StreamOpened()
	defer done()

	err := h.stream.Run(r.Context(), func(rows []models.Anomaly) error {
		payload, err := json.Marshal(map[string][]models.Anomaly{"anomalies": rows})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "id: %s\ndata: %s\n\n", uuid.NewString(), payload); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil {
		h.logger.Debug("Anomaly stream closed", util.ErrorField(err))
	}
}

func (h *AIHandler) Insights(w http.ResponseWriter, r *http.Request) {
	out, err := h.ai.Insights(r.Context(), h.window(r))
	if err != nil {
		h.respondWithError(w, r, err, "Insights generation failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *AIHandler) InsightsFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.InsightFilter{
		Scope:   q.Get("scope"),
		ScopeID: q.Get("scope_id"),
		Since:   time.Now().Add(-24 * time.Hour).UnixMilli(),
		Limit:   queryInt(r, "limit", 50, 200),
	}
	if f.Scope == "" {
		f.Scope = "channel"
	}
	if raw := q.Get("since"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			f.Since = v
		}
	}
	out, err := h.ai.Feed(r.Context(), f)
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch insights")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *AIHandler) Behavior(w http.ResponseWriter, r *http.Request) {
	out, err := h.ai.Behavior(r.Context(), h.window(r))
	if err != nil {
		h.respondWithError(w, r, err, "Behavior analysis failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *AIHandler) Predictive(w http.ResponseWriter, r *http.Request) {
	out, err := h.ai.Predictive(r.Context(), h.window(r))
	if err != nil {
		h.respondWithError(w, r, err, "Predictive analytics failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *AIHandler) Traffic(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.ai.Traffic(r.Context(), h.window(r)))
}

// gone answers the retired job endpoints.
func gone(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGone)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
	}
}
