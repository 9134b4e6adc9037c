package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eli-dashboard/internal/service"
)

// MediaHandler redirects legacy media URLs to where the snapshot now lives.
type MediaHandler struct {
	responder
	media *service.MediaService
}

func NewMediaHandler(media *service.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{responder: responder{logger: logger}, media: media}
}

func (h *MediaHandler) RegisterRoutes(router chi.Router) {
	router.Get("/v1/media/*", h.Redirect)
	router.Get("/snapshot/*", h.Redirect)
}

func (h *MediaHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	target, err := h.media.Resolve(r.Context(), r.URL.Path)
	if errors.Is(err, service.ErrNotFound) {
		h.respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Media not found", "path": r.URL.Path})
		return
	}
	if err != nil {
		h.respondWithError(w, r, err, "Failed to proxy media")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
