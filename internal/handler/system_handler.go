package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"eli-dashboard/internal/util"
)

const serviceName = "ELI Dashboard API"

// DeploymentInfo is reported by /api/test. It carries presence flags only,
// never the values.
type DeploymentInfo struct {
	Environment string
	HasDatabase bool
	HasNeo4j    bool
	HasAuth     bool
}

// ReadinessCheck pings the backends and returns the failing ones by name.
type ReadinessCheck func(ctx context.Context) map[string]error

const readinessTimeout = 5 * time.Second

// SystemHandler serves the unauthenticated health and info routes.
type SystemHandler struct {
	responder
	info  DeploymentInfo
	check ReadinessCheck
}

func NewSystemHandler(info DeploymentInfo, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{responder: responder{logger: logger}, info: info}
}

// WithReadiness enables /ready backed by check.
func (h *SystemHandler) WithReadiness(check ReadinessCheck) *SystemHandler {
	h.check = check
	return h
}

// Ready answers 503 when any backend check fails.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.check == nil {
		h.respondWithJSON(w, http.StatusOK, map[string]any{"status": "ready", "failing": []string{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	failed := h.check(ctx)
	failing := make([]string, 0, len(failed))
	details := make(map[string]string, len(failed))
	for name, err := range failed {
		failing = append(failing, name)
		details[name] = err.Error()
		h.logger.Warn("Readiness check failed", util.String("backend", name), util.ErrorField(err))
	}
	sort.Strings(failing)

	if len(failing) > 0 {
		h.respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"failing": failing,
			"errors":  details,
		})
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"status": "ready", "failing": failing})
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   serviceName,
		"timestamp": util.NowISO(),
	})
}

func (h *SystemHandler) Test(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"message":     serviceName + " is working!",
		"timestamp":   util.NowISO(),
		"environment": h.info.Environment,
		"hasDatabase": h.info.HasDatabase,
		"hasNeo4j":    h.info.HasNeo4j,
		"hasAuth":     h.info.HasAuth,
	})
}

func (h *SystemHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"status":  "ok",
		"endpoints": []string{
			"/api/login", "/api/test", "/api/dashboard", "/api/events",
			"/api/snapshots", "/api/users", "/api/ai",
		},
		"timestamp": util.NowISO(),
	})
}
