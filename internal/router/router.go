package router

import (
	"arcstore-api/internal/handler"
	"arcstore-api/internal/metrics"
	"arcstore-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	StoreHandler   *handler.StoreHandler
	AccountHandler *handler.AccountHandler
	AuthHandler    *handler.AuthHandler
	LotteryHandler *handler.LotteryHandler
	AdminHandler   *handler.AdminHandler

	Tokens      middleware.TokenValidator
	LoginKey    string
	RateLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecovery(log))
	r.Use(middleware.NewLogging(log))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", middleware.SessionHeader, middleware.PageHeader, middleware.LoginKeyHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// PUBLIC routes (no auth required)
	r.Handle("/metrics", metrics.Handler())
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				if cfg.RateLimiter != nil {
					r.Use(cfg.RateLimiter.Handler)
				}
				r.Post("/login", cfg.AuthHandler.Login)
				r.Post("/page", cfg.AuthHandler.Page)
				r.Post("/revoke", cfg.AuthHandler.Revoke)
			})
		}

		// Store and account routes need the account page identity.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePageIdentity(cfg.Tokens, log))
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}

			if cfg.StoreHandler != nil {
				r.Route("/store", func(r chi.Router) {
					r.Get("/items", cfg.StoreHandler.ListItems)
					r.Post("/purchase", cfg.StoreHandler.Purchase)
					r.Post("/gift", cfg.StoreHandler.Gift)
					r.Post("/exchange", cfg.StoreHandler.Exchange)
					r.Post("/bankruptcy", cfg.StoreHandler.Bankruptcy)
				})
			}

			if cfg.AccountHandler != nil {
				r.Get("/me", cfg.AccountHandler.Me)
				r.Post("/account/rename", cfg.AccountHandler.Rename)
				r.Post("/account/banner", cfg.AccountHandler.UpdateBanner)
				r.Get("/users/search", cfg.AccountHandler.SearchUsers)
			}
		})

		// Lottery routes need a login session.
		if cfg.LotteryHandler != nil {
			r.Route("/lottery", func(r chi.Router) {
				r.Use(middleware.RequireSession(cfg.Tokens, log))
				if cfg.RateLimiter != nil {
					r.Use(cfg.RateLimiter.Handler)
				}
				r.Get("/", cfg.LotteryHandler.State)
				r.Post("/draw", cfg.LotteryHandler.Draw)
			})
		}

		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdminKey(cfg.LoginKey))
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/reap", cfg.AdminHandler.Reap)
			})
		}
	})

	return r
}
