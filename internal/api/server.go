// Package api provides the local HTTP control API for aether. The CLI and
// any settings UI drive the daemon through it.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/health"
	"github.com/aether-desk/aether/internal/infra/platform"
	"github.com/aether-desk/aether/internal/infra/resource"
	"github.com/aether-desk/aether/internal/infra/scheduler"
)

// Version is reported by /api/version.
var Version = "dev"

// Server is the aether HTTP API server.
type Server struct {
	sched          *scheduler.Scheduler
	resources      *resource.Manager
	platform       platform.Manager
	health         *health.Checker
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(sched *scheduler.Scheduler, resources *resource.Manager, plat platform.Manager) *Server {
	return &Server{sched: sched, resources: resources, platform: plat}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches the checker reported by /api/health.
func (s *Server) SetHealth(c *health.Checker) { s.health = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})
		r.Get("/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
		r.Get("/platform", s.handlePlatform)

		r.Route("/wallpaper", func(r chi.Router) {
			r.Get("/", s.handleActive)
			r.Post("/", s.handleApply)
			r.Post("/stop", s.handleStop)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/clear", s.handleClear)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", s.handleListSchedule)
			r.Post("/", s.handleAddSchedule)
			r.Put("/", s.handleReplaceSchedule)
			r.Get("/{id}", s.handleGetSchedule)
			r.Put("/{id}", s.handleUpdateSchedule)
			r.Delete("/{id}", s.handleRemoveSchedule)
			r.Post("/{id}/enable", s.handleSetEnabled(true))
			r.Post("/{id}/disable", s.handleSetEnabled(false))
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", s.handleResources)
			r.Post("/{id}", s.handleRegister)
			r.Put("/{id}", s.handleUpdateResource)
			r.Delete("/{id}", s.handleUnregister)
		})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    errorType(status),
		},
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrScheduleItemNotFound),
		errors.Is(err, domain.ErrResourceNotFound),
		errors.Is(err, domain.ErrNoActiveWallpaper):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrResourceExists),
		errors.Is(err, domain.ErrResourceLimit):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPlatform),
		errors.Is(err, domain.ErrProcessControl):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrWallpaper),
		errors.Is(err, domain.ErrConfig):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid_wallpaper"
	case http.StatusNotImplemented:
		return "not_implemented"
	case http.StatusBadGateway:
		return "platform"
	default:
		return "error"
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
