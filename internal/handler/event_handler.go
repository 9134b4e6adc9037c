package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/repository/elasticsearch"
	"eli-dashboard/internal/service"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

// EventHandler serves /api/events.
type EventHandler struct {
	responder
	events *service.EventService
}

func NewEventHandler(events *service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{responder: responder{logger: logger}, events: events}
}

func (h *EventHandler) RegisterRoutes(router chi.Router) {
	router.Route("/events", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/types", h.Types)
		r.Get("/cameras", h.Cameras)
		r.Get("/geo", h.Geo)
		r.Get("/{id}", h.Get)
	})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(r, "page", 1, maxPage)
	limit := queryInt(r, "limit", 50, 500)
	p := timewindow.FromQuery(q, "7d", time.Now())

	f := models.EventFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		EventType: q.Get("eventType"),
		CameraID:  q.Get("cameraId"),
		Start:     p.Window.Start,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}
	if p.Absolute {
		f.End = p.Window.End
	}

	out, err := h.events.List(r.Context(), service.EventListQuery{Filter: f, Page: page, TimeRange: p.Range})
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch events")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

// Search runs a full-text query; it answers 503 when no index is configured.
func (h *EventHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(r, "page", 1, maxPage)
	limit := queryInt(r, "limit", 20, 100)
	p := timewindow.FromQuery(q, "7d", time.Now())

	out, err := h.events.Search(r.Context(), elasticsearch.SearchParams{
		Query:     strings.TrimSpace(q.Get("q")),
		EventType: q.Get("eventType"),
		CameraID:  q.Get("cameraId"),
		Start:     p.Window.Start,
		End:       p.Window.End,
		Limit:     limit,
		Offset:    (page - 1) * limit,
	})
	if err != nil {
		h.respondWithError(w, r, err, "Event search failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *EventHandler) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.events.Types(r.Context())
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch event types")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"eventTypes": nonNil(types), "timestamp": util.NowISO()})
}

func (h *EventHandler) Cameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := h.events.Cameras(r.Context())
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch cameras")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"cameras": nonNil(cameras), "timestamp": util.NowISO()})
}

func (h *EventHandler) Geo(w http.ResponseWriter, r *http.Request) {
	token := queryToken(r, "24h")
	f := models.GeoFilter{
		EventType: r.URL.Query().Get("eventType"),
		Start:     time.Now().Add(-timewindow.RangeDuration(token)).UnixMilli(),
		Limit:     queryInt(r, "limit", 1000, 2000),
	}
	out, err := h.events.Geo(r.Context(), f, token)
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch geographic events")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid event id"})
		return
	}
	out, err := h.events.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		h.respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Event not found"})
		return
	}
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch event details")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
