// Package chi exposes the search core over HTTP with a chi router.
package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/viewdex/internal/auth"
	"github.com/kailas-cloud/viewdex/internal/metrics"
	draftuc "github.com/kailas-cloud/viewdex/internal/usecase/draft"
	healthuc "github.com/kailas-cloud/viewdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/viewdex/internal/usecase/search"
)

// maxBodyBytes caps request bodies; filters are bounded by node count well below this.
const maxBodyBytes = 1 << 20

// Deps are the collaborators of the HTTP server. Search and Health are required.
type Deps struct {
	Search *searchuc.Service
	Draft  *draftuc.Service
	Health *healthuc.Service

	// Authenticator resolves bearer credentials. Nil or disabled means every caller is anonymous.
	Authenticator *auth.Authenticator
	// RequiredRole gates data routes when authentication is enabled.
	RequiredRole string

	// Sign-in. Google nil disables /auth/google and /auth/refresh.
	Google        IdentityVerifier
	Tokens        *auth.TokenService
	Roles         *auth.RoleBinder
	RefreshCookie CookieConfig

	RateLimit RateLimitConfig
}

// CookieConfig describes the refresh token cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// Server serves the viewdex HTTP API.
type Server struct {
	deps          Deps
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	if deps.RefreshCookie.Name == "" {
		deps.RefreshCookie.Name = "refresh"
	}
	if deps.RefreshCookie.Path == "" {
		deps.RefreshCookie.Path = "/auth"
	}
	return &Server{
		deps:          deps,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(AuthMiddleware(s.deps.Authenticator))
	r.Use(RateLimitMiddleware(s.deps.RateLimit))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/google", s.SignInGoogle)
		r.Post("/refresh", s.Refresh)
		r.Post("/logout", s.Logout)
	})
	r.Get("/me", s.Me)

	r.Group(func(r chi.Router) {
		r.Use(RequireRole(s.deps.Authenticator, s.deps.RequiredRole))
		r.Post("/search", s.Search)
		r.Post("/search/draft", s.DraftFilter)
		r.Post("/sql", s.CompileSQL)
		r.Get("/entities", s.ListEntities)
		r.Get("/entities/{entity}", s.GetEntity)
	})
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{
		Status:   string(report.Status),
		Checks:   report.Checks,
		Entities: report.Entities,
	})
}
