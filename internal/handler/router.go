package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/util"
)

// Handlers groups every route owner mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	System    *SystemHandler
	Dashboard *DashboardHandler
	Events    *EventHandler
	Snapshots *SnapshotHandler
	Users     *UserHandler
	AI        *AIHandler
	Media     *MediaHandler
}

type RouterOptions struct {
	AllowedOrigins []string
	RequireHTTPS   bool
	Metrics        *metrics.Metrics
	// MetricsPath defaults to /metrics.
	MetricsPath string
}

// requireHTTPS rejects any request that wasn’t made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.URL.Path != "/health" && r.URL.Path != "/ready" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired) // 426
			w.Write([]byte(`{"error":"https required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin accepts any localhost origin plus the configured list.
func allowOrigin(allowed []string) func(*http.Request, string) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSpace(o)] = true
	}
	return func(_ *http.Request, origin string) bool {
		return strings.Contains(origin, "localhost") || set[origin]
	}
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(h Handlers, opts RouterOptions, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if opts.RequireHTTPS {
		router.Use(requireHTTPS)
	}

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}

	router.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(opts.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", h.System.Health)
	router.Get("/ready", h.System.Ready)
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Method(http.MethodGet, path, opts.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/", h.System.Index)
		r.Get("/test", h.System.Test)
		r.Get("/dashboard/health", h.System.Health)
		h.Auth.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)
			h.Dashboard.RegisterRoutes(r)
			h.Events.RegisterRoutes(r)
			h.Snapshots.RegisterRoutes(r)
			h.Users.RegisterRoutes(r)
			h.AI.RegisterRoutes(r)
			h.Media.RegisterRoutes(r)
		})
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"Method Not Allowed"}`))
	})

	return router
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
