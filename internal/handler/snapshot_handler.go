package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/service"
	"eli-dashboard/internal/timewindow"
	"eli-dashboard/internal/util"
)

// SnapshotHandler serves /api/snapshots.
type SnapshotHandler struct {
	responder
	snapshots *service.SnapshotService
}

func NewSnapshotHandler(snapshots *service.SnapshotService, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{responder: responder{logger: logger}, snapshots: snapshots}
}

func (h *SnapshotHandler) RegisterRoutes(router chi.Router) {
	router.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/types", h.Types)
		r.Get("/{id}", h.Get)
	})
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(r, "page", 1, maxPage)
	limit := queryInt(r, "limit", 50, 500)
	token := queryToken(r, "7d")

	f := models.SnapshotFilter{
		EventID: q.Get("eventId"),
		Type:    q.Get("type"),
		Start:   time.Now().Add(-timewindow.RangeDuration(token)).UnixMilli(),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	out, err := h.snapshots.List(r.Context(), f, page, token)
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch snapshots")
		return
	}
	h.respondWithJSON(w, http.StatusOK, out)
}

func (h *SnapshotHandler) Types(w http.ResponseWriter, r *http.Request) {
	types, err := h.snapshots.Types(r.Context())
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch snapshot types")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"snapshotTypes": nonNil(types), "timestamp": util.NowISO()})
}

func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid snapshot id"})
		return
	}
	out, err := h.snapshots.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		h.respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Snapshot not found"})
		return
	}
	if err != nil {
		h.respondWithError(w, r, err, "Failed to fetch snapshot details")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"snapshot": out, "timestamp": util.NowISO()})
}
