// Package api provides the HTTP API server and handlers for the recipe book.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/recipebook/recipebook-server/internal/logger"
)

// Options configures a Server.
type Options struct {
	// ClientURL is the web client origin allowed by CORS. Empty allows any
	// origin.
	ClientURL string
	// Production hides internal error details from responses.
	Production bool
	// AuthRequestsPerMinute limits auth endpoints per client IP.
	AuthRequestsPerMinute int
	AuthBurst             int
	// Health lists named component checks reported by /health.
	Health map[string]HealthCheck
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services        *Services
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	opts            Options
	errs            *errorMapper
	authRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, log *slog.Logger) *Server {
	if opts.AuthRequestsPerMinute <= 0 {
		opts.AuthRequestsPerMinute = 20
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 10
	}

	s := &Server{
		services:        services,
		router:          chi.NewRouter(),
		logger:          logger.OrDiscard(log),
		opts:            opts,
		authRateLimiter: NewRateLimiter(opts.AuthRequestsPerMinute, time.Minute, opts.AuthBurst),
	}
	s.errs = &errorMapper{production: opts.Production, logger: s.logger}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Recipe Book API", "1.0.0")
	humaConfig.Info.Description = "Recipes, sharing, discovery and moderation"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	// Bodies are wrapped in the envelope; huma's $schema links are left out.
	humaConfig.CreateHooks = nil
	humaConfig.Transformers = []huma.Transformer{s.errs.envelope}

	s.api = humachi.New(s.router, humaConfig)
	s.errs.register()

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	origins := []string{"*"}
	if s.opts.ClientURL != "" {
		origins = []string{s.opts.ClientURL}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: s.opts.ClientURL != "",
		MaxAge:           300,
	}))

	s.router.Use(authMiddleware(s.services.Auth))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerRecipeRoutes()
	s.registerSharingRoutes()
	s.registerUserRoutes()
	s.registerAdminRoutes()
}

// requestLogger writes one structured line per request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
