package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rahmanrestaurant/tablebook/internal/api/router"
	"github.com/rahmanrestaurant/tablebook/internal/config"
	"github.com/rahmanrestaurant/tablebook/internal/conversation"
	"github.com/rahmanrestaurant/tablebook/internal/http/handlers"
	"github.com/rahmanrestaurant/tablebook/internal/messaging"
	"github.com/rahmanrestaurant/tablebook/internal/notify"
	"github.com/rahmanrestaurant/tablebook/internal/observability/metrics"
	"github.com/rahmanrestaurant/tablebook/internal/reservations"
	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting tablebook API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"whatsapp_provider", cfg.WhatsAppProvider,
	)

	ctx := context.Background()

	// Storage: Postgres when configured, otherwise in-process memory so the
	// webhook surface keeps working without a database.
	var repo reservations.Repository
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create postgres pool, falling back to in-memory store", "error", err)
			pool = nil
		} else {
			defer pool.Close()
			pgRepo := reservations.NewPostgresRepository(pool)
			if err := pgRepo.EnsureSchema(ctx); err != nil {
				logger.Error("failed to ensure reservation schema", "error", err)
				os.Exit(1)
			}
			repo = pgRepo
		}
	}
	if repo == nil {
		logger.Warn("no database configured, using in-memory reservation store")
		repo = reservations.NewMemoryRepository()
	}

	// Conversation sessions: Redis when configured, memory otherwise.
	var sessions conversation.SessionStore
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		sessions = conversation.NewRedisSessionStore(redis.NewClient(opts), cfg.SessionTTL)
	} else {
		sessions = conversation.NewMemorySessionStore(cfg.SessionTTL, cfg.SessionMaxEntries)
	}

	var replies conversation.ReplyClient
	if cfg.GeminiAPIKey != "" {
		client, err := conversation.NewGeminiReplyClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("generative replies disabled", "error", err)
		} else {
			defer client.Close()
			replies = client
		}
	}
	bot := conversation.NewBot(sessions, replies, logger)

	sender := messaging.BuildSender(messaging.ProviderSelectionConfig{
		Provider:           cfg.WhatsAppProvider,
		DefaultCountryCode: cfg.DefaultCountryCode,
		SendTimeout:        cfg.SendTimeout,
		CloudAccessToken:   cfg.CloudAPIAccessToken,
		CloudPhoneNumberID: cfg.CloudAPIPhoneNumberID,
		CloudAPIVersion:    cfg.CloudAPIVersion,
		CloudAppSecret:     cfg.CloudAPIAppSecret,
		BridgeAccountSID:   cfg.BridgeAccountSID,
		BridgeAuthToken:    cfg.BridgeAuthToken,
		BridgeFromNumber:   cfg.BridgeFromNumber,
	}, logger)

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	notifier := notify.NewService(sender, notify.Config{
		AdminNumber:        cfg.AdminWhatsAppNumber,
		DefaultCountryCode: cfg.DefaultCountryCode,
		TemplateName:       cfg.ReservationTemplateName,
	}, bookingMetrics, logger)

	bookingService := reservations.NewService(repo, notifier, cfg.AdminWhatsAppNumber, cfg.SendTimeout, logger)

	var pinger handlers.Pinger
	if pool != nil {
		pinger = pool
	}

	routerCfg := &router.Config{
		Logger:       logger,
		Reservations: handlers.NewReservationsHandler(bookingService, bookingMetrics, logger),
		Webhooks: handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{
			Sender:             sender,
			Bot:                bot,
			VerifyToken:        cfg.CloudAPIVerifyToken,
			DefaultCountryCode: cfg.DefaultCountryCode,
			Metrics:            bookingMetrics,
			Logger:             logger,
		}),
		Health:             handlers.NewHealthHandler(sender.Provider(), sender.Enabled(), pinger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
