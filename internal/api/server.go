// Package api provides the HTTP server for the progress engine.
// Every user-scoped route lives under /api/v1/users/{user}.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/app/reconcile"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
	"github.com/ssaritan18/Project-1-sub000/internal/health"
)

var validate = validator.New()

// Server is the progress engine HTTP API server.
type Server struct {
	rec            *reconcile.Reconciler
	sessions       *progress.Sessions
	health         *health.Checker
	metricsEnabled bool
	version        string
	now            func() time.Time
	loc            *time.Location
	corsOrigins    []string
}

// NewServer creates a new API server.
func NewServer(rec *reconcile.Reconciler, sessions *progress.Sessions) *Server {
	return &Server{
		rec:      rec,
		sessions: sessions,
		version:     "dev",
		now:         time.Now,
		loc:         time.Local,
		corsOrigins: []string{"*"},
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth reports the checker's results at /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetVersion sets the version reported at /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// SetLocation sets the zone used to derive "today" when a request does not
// name a day.
func (s *Server) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// SetCORSOrigins sets the allowed CORS origins. "*" allows any origin;
// an empty list disables CORS headers.
func (s *Server) SetCORSOrigins(origins []string) { s.corsOrigins = origins }

// SetClock replaces the server clock.
func (s *Server) SetClock(now func() time.Time) { s.now = now }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Get("/tiers", s.handleTiers)

		r.Route("/users/{user}", func(r chi.Router) {
			r.Use(userCtx)

			r.Get("/streak", s.handleStreak)
			r.Post("/days", s.handleRecordDay)
			r.Post("/activity", s.handleActivity)

			r.Get("/bonus", s.handleBonus)
			r.Post("/bonus/claim", s.handleClaim)

			r.Post("/sessions", s.handleStartSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Post("/sessions/{id}/pause", s.handlePauseSession)
			r.Post("/sessions/{id}/resume", s.handleResumeSession)
			r.Post("/sessions/{id}/complete", s.handleCompleteSession)
			r.Delete("/sessions/{id}", s.handleEndSession)

			r.Get("/items", s.handleItems)
			r.Post("/items/{id}/bump", s.handleBump)

			r.Get("/points", s.handlePoints)

			r.Get("/sync", s.handlePending)
			r.Post("/sync", s.handleSync)

			r.Delete("/", s.handleReset)
		})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// userCtx validates the {user} path segment.
func userCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := chi.URLParam(r, "user")
		if err := validate.Var(user, "required,max=128,printascii"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v and validates it. An empty body decodes
// as the zero value.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.Invalid("malformed request body: %v", err)
	}
	return validate.Struct(v)
}

// today parses an explicit day or falls back to the server's current day.
func (s *Server) today(raw string) (domain.CompletionDay, error) {
	if raw == "" {
		return domain.DayOf(s.now().In(s.loc)), nil
	}
	return domain.ParseDay(raw)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeErr maps a domain error to its status code.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrMalformedDate),
		errors.Is(err, domain.ErrUnknownSessionType),
		errors.Is(err, domain.ErrUnknownUser):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRemoteNotConfigured):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemoteRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for the configured origins.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		}
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, o := range s.corsOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && o == origin {
			return origin
		}
	}
	return ""
}
