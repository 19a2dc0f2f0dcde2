package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/lorrc/vendor-performance/internal/adapters/primary/http/middleware"
	"github.com/lorrc/vendor-performance/internal/auth"
)

// RouterConfig carries the handlers and middleware mounted by NewRouter.
// Limiters, WebSocket and Metrics are optional.
type RouterConfig struct {
	Logger       *slog.Logger
	TokenManager *auth.TokenManager

	Auth      *AuthHandler
	Reports   *ReportHandler
	Identity  *IdentityHandler
	Health    *HealthHandler
	WebSocket http.Handler
	Metrics   http.Handler

	GeneralLimiter *mw.RateLimiter
	AuthLimiter    *mw.RateLimiter
	ClientLimiter  *mw.RateLimitByKey

	AllowedOrigins []string
}

// NewRouter wires the HTTP surface of the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(cfg.Logger))
	r.Use(mw.RecoveryLogger(cfg.Logger))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         300,
	}))

	if cfg.GeneralLimiter != nil {
		r.Use(cfg.GeneralLimiter.Middleware)
	}

	// Probe and scrape endpoints stay outside /api/v1
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.WebSocket != nil {
		// Authentication is handled inside the handler
		r.Method(http.MethodGet, "/ws", cfg.WebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Token issuance with stricter rate limiting
		r.Group(func(r chi.Router) {
			if cfg.AuthLimiter != nil {
				r.Use(cfg.AuthLimiter.Middleware)
			}
			r.Route("/auth", cfg.Auth.RegisterRoutes)
		})

		// Protected analysis routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(cfg.TokenManager, auth.ScopeAnalysis))
			if cfg.ClientLimiter != nil {
				r.Use(cfg.ClientLimiter.ClientMiddleware)
			}
			r.Route("/vendors", cfg.Reports.RegisterRoutes)
			r.Route("/agents", cfg.Identity.RegisterRoutes)
		})
	})

	return r
}
