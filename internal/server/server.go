package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/agileboard/internal/api/v1"
	"github.com/gosuda/agileboard/internal/api/ws"
	"github.com/gosuda/agileboard/internal/auth"
	"github.com/gosuda/agileboard/internal/config"
	"github.com/gosuda/agileboard/internal/server/middleware"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Store    v1.DataStore
	Broker   ws.Broker
	Auth     *auth.Service
	Notifier v1.Notifier // may be nil
	// Checks are pinged by /healthz, keyed by a display name.
	Checks map[string]Pinger
	// WebAssets may be nil; when provided, the SPA is served on all
	// unmatched routes.
	WebAssets fs.FS
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	hub        *ws.Hub
	checks     map[string]Pinger
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// goroutines of the rate limiters.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecurityHeaders(cfg.Server.CookieSecure))
	router.Use(middleware.Metrics)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			middleware.APIKeyHeader, middleware.CSRFHeader, "X-Request-ID",
		},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(deps.Broker, deps.Store.Projects(), deps.Store.Members(), originPatterns(cfg)...)

	s := &Server{
		router: router,
		hub:    hub,
		checks: deps.Checks,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for auth endpoints, rate limited per IP.
	// 2. Authenticated group for all other endpoints.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst))

			authConfig := apiConfig("Agileboard Auth API")
			authConfig.OpenAPIPath = "/auth/openapi"
			authConfig.DocsPath = "/auth/docs"
			authConfig.SchemasPath = "/auth/schemas"
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, deps.Auth, authSettings(cfg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Auth))
			r.Use(middleware.CSRF)
			r.Use(middleware.RateLimitByUser(ctx, cfg.RateLimit.UserRPS, cfg.RateLimit.UserBurst))

			api := humachi.New(r, apiConfig("Agileboard API"))
			registerAPIRoutes(api, deps, hub, cfg)
		})
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Auth))
		registerWSRoutes(r, hub)
	})

	router.Get("/healthz", s.healthz)
	router.Handle("/metrics", middleware.MetricsHandler())

	// This must be the last route registered so API and WS routes take priority.
	if deps.WebAssets != nil {
		router.NotFound(spaFileServer(deps.WebAssets).ServeHTTP)
		log.Info().Msg("embedded web dashboard enabled")
	}

	return s
}

func apiConfig(title string) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{{URL: "/api/v1"}}
	// Response bodies stay plain JSON without $schema links.
	c.CreateHooks = nil
	return c
}

// originPatterns turns the CORS origins into host patterns for WebSocket
// origin checks.
func originPatterns(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Server.CORSOrigins))
	for _, o := range cfg.Server.CORSOrigins {
		if host := hostOf(o); host != "" {
			out = append(out, host)
		}
	}
	return out
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the board event hub the API publishes to.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			failed[name] = err.Error()
			log.Warn().Err(err).Str("check", name).Msg("health check failed")
		}
	}

	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if len(failed) > 0 {
		status = http.StatusServiceUnavailable
		body = map[string]any{"status": "unavailable", "checks": failed}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
