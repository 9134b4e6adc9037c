package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"eli-dashboard/internal/service"
	"eli-dashboard/internal/util"
)

// responder is embedded by every handler for JSON output and error mapping.
type responder struct {
	logger *zap.Logger
}

func (h responder) respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError maps err to a status code. message is the body for 5xx
// responses; client errors get a fixed public text.
func (h responder) respondWithError(w http.ResponseWriter, r *http.Request, err error, message string) {
	statusCode := getStatusCode(err)
	text := message
	if statusCode < http.StatusInternalServerError || statusCode == http.StatusServiceUnavailable {
		text = publicMessage(statusCode)
	}
	log := h.logger.Warn
	if statusCode == http.StatusInternalServerError {
		log = h.logger.Error
	}
	log("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
		util.String("path", r.URL.Path),
		util.String("request_id", middleware.GetReqID(r.Context())),
	)
	h.respondWithJSON(w, statusCode, map[string]string{"error": text})
}

func (h responder) methodNotAllowed(w http.ResponseWriter) {
	h.respondWithJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method Not Allowed"})
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(statusCode int) string {
	switch statusCode {
	case http.StatusNotFound:
		return "Not found"
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusTooManyRequests:
		return "Too many failed attempts"
	case http.StatusServiceUnavailable:
		return "Service not configured"
	}
	return http.StatusText(statusCode)
}

// maxPage bounds page so (page-1)*limit stays far from overflow.
const maxPage = 10000

// queryInt parses a positive integer parameter, falling back to def, and
// caps it at max when max > 0.
func queryInt(r *http.Request, key string, def, max int) int {
	v := def
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			v = n
		}
	}
	if max > 0 && v > max {
		v = max
	}
	return v
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	if raw := r.URL.Query().Get(key); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return def
}

func queryToken(r *http.Request, def string) string {
	if t := r.URL.Query().Get("timeRange"); t != "" {
		return t
	}
	return def
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.ErrInvalidInput
	}
	return id, nil
}
