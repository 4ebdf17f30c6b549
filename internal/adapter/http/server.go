// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"healthreport/internal/app"
	"healthreport/internal/domain"
	"healthreport/internal/logger"
)

// FederatedProvider drives the federated sign-in redirect flow.
type FederatedProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.FederatedProfile, error)
}

// Options are the per-environment knobs of the HTTP surface.
type Options struct {
	WebDir         string
	CookieSecure   bool
	CookieSameSite http.SameSite
	AllowedOrigins []string
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	activities  *app.ActivityService
	reflections *app.ReflectionService
	auth        *app.AuthService
	sso         FederatedProvider
	log         *logger.Logger
	opts        Options
}

// New creates a Server wired to the given application services.
func New(activities *app.ActivityService, reflections *app.ReflectionService, auth *app.AuthService, log *logger.Logger, opts Options) *Server {
	if opts.CookieSameSite == 0 {
		opts.CookieSameSite = http.SameSiteLaxMode
	}
	return &Server{
		activities:  activities,
		reflections: reflections,
		auth:        auth,
		log:         log,
		opts:        opts,
	}
}

// WithFederatedSignIn enables the /auth/google routes.
func (s *Server) WithFederatedSignIn(p FederatedProvider) *Server {
	s.sso = p
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /session", s.handleSession)

	mux.HandleFunc("GET /auth/config", s.handleConfig)
	mux.HandleFunc("GET /auth/google/login", s.handleSSOLogin)
	mux.HandleFunc("GET /auth/google/callback", s.handleSSOCallback)

	mux.Handle("POST /api/v1/activities", s.requireAuth(s.handleCreateActivity))
	mux.Handle("GET /api/v1/activities", s.requireAuth(s.handleListActivities))
	mux.Handle("GET /api/v1/activities/{id}", s.requireAuth(s.handleGetActivity))
	mux.Handle("PATCH /api/v1/activities/{id}", s.requireAuth(s.handleUpdateActivity))
	mux.Handle("DELETE /api/v1/activities/{id}", s.requireAuth(s.handleDeleteActivity))

	mux.Handle("POST /api/v1/weekly-reflections", s.requireAuth(s.handleUpsertReflection))
	mux.Handle("GET /api/v1/weekly-reflections", s.requireAuth(s.handleListReflections))
	mux.Handle("POST /api/v1/weekly-reflections/ai-diagnosis", s.requireAuth(s.handleDiagnosis))
	mux.Handle("GET /api/v1/weekly-reflections/weekly-load-summary", s.requireAuth(s.handleWeeklyLoadSummary))

	mux.HandleFunc("/api/", apiNotFound)
	mux.Handle("/", spaFromDisk(s.opts.WebDir))

	var h http.Handler = withNoCache(mux)
	h = s.loggingMiddleware(h)
	h = metricsMiddleware(h)
	if len(s.opts.AllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}).Handler(h)
	}
	return h
}
