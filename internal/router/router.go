package router

import (
	"net/http"

	"fakestore-offline/internal/handler"
	"fakestore-offline/internal/metrics"
	"fakestore-offline/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler             *handler.Handler
	CartHandler         *handler.CartHandler
	UpdateHandler       *handler.UpdateHandler
	ConnectivityHandler *handler.ConnectivityHandler
	InstallHandler      *handler.InstallHandler
	WorkerHandler       *handler.WorkerHandler
	EventsHandler       *handler.EventsHandler
	// Proxy receives every request no API route matches.
	Proxy http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", middleware.OfflineSourceHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.CartHandler != nil {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cfg.CartHandler.Get)
				r.Delete("/", cfg.CartHandler.Clear)
				r.Post("/refresh", cfg.CartHandler.Refresh)
				r.Post("/items", cfg.CartHandler.AddItem)
				r.Put("/items/{id}", cfg.CartHandler.UpdateQuantity)
				r.Delete("/items/{id}", cfg.CartHandler.RemoveItem)
			})
		}

		if cfg.UpdateHandler != nil {
			r.Route("/update", func(r chi.Router) {
				r.Get("/", cfg.UpdateHandler.Get)
				r.Post("/install", cfg.UpdateHandler.Install)
				r.Post("/confirm", cfg.UpdateHandler.Confirm)
				r.Post("/dismiss", cfg.UpdateHandler.Dismiss)
			})
		}

		if cfg.ConnectivityHandler != nil {
			r.Route("/connectivity", func(r chi.Router) {
				r.Get("/", cfg.ConnectivityHandler.Get)
				r.Post("/", cfg.ConnectivityHandler.Set)
				r.Post("/probe", cfg.ConnectivityHandler.Probe)
			})
		}

		if cfg.InstallHandler != nil {
			r.Route("/install", func(r chi.Router) {
				r.Get("/", cfg.InstallHandler.Get)
				r.Post("/", cfg.InstallHandler.Install)
				r.Post("/capture", cfg.InstallHandler.Capture)
				r.Post("/installed", cfg.InstallHandler.Installed)
			})
		}

		if cfg.WorkerHandler != nil {
			r.Route("/worker", func(r chi.Router) {
				r.Post("/sync", cfg.WorkerHandler.Sync)
				r.Post("/push", cfg.WorkerHandler.Push)
				r.Post("/notificationclick", cfg.WorkerHandler.NotificationClick)
			})
		}

		if cfg.EventsHandler != nil {
			r.Get("/events", cfg.EventsHandler.Stream)
		}
	})

	// Everything else is an intercepted storefront request.
	if cfg.Proxy != nil {
		r.NotFound(cfg.Proxy.ServeHTTP)
	}

	return r
}
