// Package api exposes the roster registry over HTTP: persona listing,
// task dispatch, registry lifecycle control, score inspection and a
// server-sent event stream.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rosterlabs/roster/internal/auth"
	"github.com/rosterlabs/roster/internal/eventbus"
	"github.com/rosterlabs/roster/internal/metrics"
	"github.com/rosterlabs/roster/internal/registry"
	"github.com/rosterlabs/roster/pkg/config"
)

// Server represents the HTTP API server
type Server struct {
	registry *registry.Registry
	auth     *auth.Manager
	bus      *eventbus.EventBus
	metrics  *metrics.Metrics
	config   *config.Config
}

// NewServer creates a new API server
func NewServer(reg *registry.Registry, am *auth.Manager, cfg *config.Config) *Server {
	return &Server{
		registry: reg,
		auth:     am,
		config:   cfg,
	}
}

// SetEventBus attaches the event bus used by the SSE stream.
func (s *Server) SetEventBus(bus *eventbus.EventBus) {
	s.bus = bus
}

// SetMetrics attaches prometheus instrumentation.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/api/v1/health", s.handleHealth)

	// Auth
	mux.HandleFunc("/api/v1/auth/login", s.handleLogin)

	// Personas
	mux.HandleFunc("/api/v1/personas", s.handlePersonas)
	mux.HandleFunc("/api/v1/personas/", s.handlePersona)

	// Dispatch
	mux.HandleFunc("/api/v1/dispatch", s.handleDispatch)
	mux.HandleFunc("/api/v1/scores", s.handleScores)

	// Registry lifecycle
	mux.HandleFunc("/api/v1/registry/reload", s.handleRegistryReload)
	mux.HandleFunc("/api/v1/registry/status", s.handleRegistryStatus)

	// Events (real-time updates)
	mux.HandleFunc("/api/v1/events/stream", s.handleEventStream)
	mux.HandleFunc("/api/v1/events", s.handleGetEvents)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middleware
	handler := s.loggingMiddleware(mux)
	handler = s.corsMiddleware(handler)
	handler = s.authMiddleware(handler)

	return otelhttp.NewHandler(handler, "rosterd")
}

// Middleware

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush is forwarded so SSE streaming keeps working through the recorder.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// loggingMiddleware logs HTTP requests and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		log.Printf("[API] %s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)

		if s.metrics != nil {
			s.metrics.HTTPRequestsTotal.WithLabelValues(
				r.URL.Path, r.Method, fmt.Sprintf("%d", rec.status)).Inc()
			s.metrics.HTTPRequestDuration.WithLabelValues(
				r.URL.Path, r.Method).Observe(elapsed.Seconds())
		}
	})
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.config.Security.AllowedOrigins) > 0 {
			origin := r.Header.Get("Origin")
			for _, allowedOrigin := range s.config.Security.AllowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware handles authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health, metrics, login and the event stream stay open so
		// health checks, dashboards and credential exchange work
		// without prior credentials.
		if r.URL.Path == "/api/v1/health" ||
			r.URL.Path == "/metrics" ||
			r.URL.Path == "/api/v1/auth/login" ||
			r.URL.Path == "/api/v1/events/stream" {
			next.ServeHTTP(w, r)
			return
		}

		// Skip auth if disabled
		if !s.config.Security.EnableAuth {
			next.ServeHTTP(w, r)
			return
		}

		// If auth is enabled but no credentials exist to check against,
		// treat auth as disabled.
		if s.auth == nil || (!s.auth.HasAPIKeys() && !s.auth.HasUsers()) {
			next.ServeHTTP(w, r)
			return
		}

		// A bearer token from a prior login also works.
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			if _, err := s.auth.ValidateToken(token); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			http.Error(w, "Missing API key", http.StatusUnauthorized)
			return
		}
		if !s.auth.ValidateAPIKey(apiKey) {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Helper functions

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// parseJSON parses JSON request body
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// extractID extracts ID from URL path
func (s *Server) extractID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")

	parts := strings.Split(id, "/")
	if len(parts) > 0 {
		return parts[0]
	}

	return id
}
