package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eli-dashboard/internal/service"
	"eli-dashboard/internal/timewindow"
)

// DashboardHandler serves the /api/dashboard panels.
type DashboardHandler struct {
	responder
	dashboard *service.DashboardService
	graph     *service.GraphService
}

func NewDashboardHandler(dashboard *service.DashboardService, graph *service.GraphService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{responder: responder{logger: logger}, dashboard: dashboard, graph: graph}
}

func (h *DashboardHandler) RegisterRoutes(router chi.Router) {
	router.Route("/dashboard", func(r chi.Router) {
		r.Get("/metrics", h.Metrics)
		r.Get("/timeline", h.Timeline)
		r.Get("/analytics", h.Analytics)
		r.Get("/graph", h.Graph)
		r.Get("/identities", h.Identities)
		r.Get("/events/geo", h.GeoEvents)
	})
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.Metrics(r.Context(), queryToken(r, "24h"))
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch dashboard metrics")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.dashboard.Timeline(r.Context(), queryToken(r, "24h"), q.Get("eventType"), q.Get("cameraId"))
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch timeline data")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	p := timewindow.FromQuery(r.URL.Query(), "30m", time.Now())
	out, err := h.dashboard.Analytics(r.Context(), p)
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch analytics")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Graph(w http.ResponseWriter, r *http.Request) {
	p := timewindow.FromQuery(r.URL.Query(), "24h", time.Now())
	out, err := h.graph.Graph(r.Context(), p, queryInt(r, "limit", 100, 1000))
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch graph data")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Identities(w http.ResponseWriter, r *http.Request) {
	p := timewindow.FromQuery(r.URL.Query(), "30m", time.Now())
	out, err := h.graph.Identities(r.Context(), p,
		queryInt(r, "facesLimit", 200, 1000),
		queryInt(r, "platesLimit", 200, 1000))
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch identities")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) GeoEvents(w http.ResponseWriter, r *http.Request) {
	out, err := h.dashboard.Geo(r.Context(), queryToken(r, "24h"), r.URL.Query().Get("eventType"), queryInt(r, "limit", 100, 1000))
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch geographic events")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}
