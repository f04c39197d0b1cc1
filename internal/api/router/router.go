// Package router assembles the HTTP surface: the public booking API, the
// WhatsApp webhook endpoints, and operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rahmanrestaurant/tablebook/internal/http/handlers"
	httpmiddleware "github.com/rahmanrestaurant/tablebook/internal/http/middleware"
	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger       *logging.Logger
	Reservations *handlers.ReservationsHandler
	Webhooks     *handlers.WhatsAppWebhookHandler
	Health       *handlers.HealthHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	JWTSecret          string

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitPerSecond > 0 && cfg.RateLimitBurst > 0 {
		limit = httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Health != nil {
			api.Get("/health", cfg.Health.Check)
		}

		if cfg.Reservations != nil {
			api.Route("/reservations", func(res chi.Router) {
				res.Use(httpmiddleware.OptionalJWT(cfg.JWTSecret))
				res.With(limit).Post("/", cfg.Reservations.Create)
				res.Get("/", cfg.Reservations.List)
			})
		}

		if cfg.Webhooks != nil {
			api.Route("/whatsapp", func(wa chi.Router) {
				wa.Get("/webhook", cfg.Webhooks.Verify)
				wa.With(limit).Post("/webhook", cfg.Webhooks.HandleCloudAPI)
				wa.With(limit).Post("/bridge", cfg.Webhooks.HandleBridge)
			})
		}
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
