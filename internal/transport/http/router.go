// Package httptransport assembles the chi router and HTTP server for the API.
package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/volunteer/internal/auth"
)

// Routes is implemented by handlers that mount themselves on a router.
type Routes interface {
	RegisterRoutes(r chi.Router)
}

// RouterConfig controls the middleware stack.
type RouterConfig struct {
	Auth       auth.Config
	CORSOrigin string
	Logger     *zap.Logger
	// ServeMetrics mounts /metrics on the API router.
	ServeMetrics bool
}

// PublicPaths are reachable without a token.
var PublicPaths = []string{"/healthz", "/metrics", "/v1/auth/login"}

// NewRouter builds the root handler: request ids, panic recovery, access
// logging, CORS and bearer authentication in front of the routes.
func NewRouter(cfg RouterConfig, routes Routes) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authMiddleware := auth.NewMiddleware(cfg.Auth, auth.SkipPaths(PublicPaths...))
	authMiddleware.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"type": "unauthorized", "detail": err.Error()})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.CORSOrigin))
	r.Use(authMiddleware.Wrap)

	if cfg.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	routes.RegisterRoutes(r)
	return r
}

// AccessLog logs one line per request with its status and latency.
func AccessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// CORS answers preflight requests and sets the allow-origin header.
func CORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, x-token")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
