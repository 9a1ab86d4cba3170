// Package main is the entry point for the Wanderplan server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wanderplan/internal/ai"
	"wanderplan/internal/cache"
	"wanderplan/internal/config"
	"wanderplan/internal/database"
	"wanderplan/internal/export"
	"wanderplan/internal/handlers"
	"wanderplan/internal/metrics"
	"wanderplan/internal/middleware"
	"wanderplan/internal/planner"
	"wanderplan/internal/router"
	"wanderplan/internal/session"
	"wanderplan/internal/share"
	"wanderplan/internal/storage"
	"wanderplan/internal/store"
)

// generateTimeout bounds one call to the remote itinerary service.
const generateTimeout = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text otherwise.
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"public_read_policy", cfg.PublicReadPolicy,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Valkey backs sessions and the rendered-export cache.
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Data stores.
	userStore := store.NewUserStore(db)
	presetStore := store.NewPresetStore(db)
	tokenStore := store.NewShareTokenStore(db)

	metrics.Init(store.NewInventory(db))

	svc := planner.New(presetStore, share.NewService(tokenStore), export.NewRenderer(), planner.Options{
		PublicRead:    cfg.PublicReadPolicy,
		ShareTTL:      cfg.ShareDefaultTTL,
		ExportTimeout: cfg.ExportTimeout,
	}).WithExportCache(cache.NewExportCache(valkeyClient, cfg.ExportCacheTTL))

	// S3-compatible export archive (optional; the app works without it).
	archive, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
	if err != nil {
		slog.Error("failed to initialize export archive", "error", err)
		os.Exit(1)
	}
	if archive != nil {
		svc.WithArchive(archive)
		slog.Info("export archive connected", "endpoint", cfg.S3Endpoint, "bucket", archive.Bucket())
	} else {
		slog.Warn("export archive not configured, export links disabled")
	}

	// Itinerary generation: the remote service when configured, the LLM
	// provider registry otherwise.
	if cfg.AIServiceURL != "" {
		svc.WithGenerator(ai.NewRemote(cfg.AIServiceURL, generateTimeout))
		slog.Info("itinerary generator configured", "kind", "remote", "url", cfg.AIServiceURL)
	} else {
		registry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
			"openai":  {APIKey: cfg.OpenAI.APIKey, Model: cfg.OpenAI.Model, BaseURL: cfg.OpenAI.BaseURL},
			"claude":  {APIKey: cfg.Claude.APIKey, Model: cfg.Claude.Model, BaseURL: cfg.Claude.BaseURL},
			"mistral": {APIKey: cfg.Mistral.APIKey, Model: cfg.Mistral.Model, BaseURL: cfg.Mistral.BaseURL},
			"gemini":  {APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model, BaseURL: cfg.Gemini.BaseURL},
		})
		if registry.HasProvider(registry.ActiveName()) {
			svc.WithGenerator(ai.NewLLMItinerary(registry))
		}
		slog.Info("ai providers initialized",
			"active", registry.ActiveName(),
			"available", registry.Available(),
		)
	}

	shareLimiter := middleware.NewRateLimiter(cfg.ShareRateLimit, time.Minute)
	defer shareLimiter.Stop()
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer loginLimiter.Stop()

	r := router.New(router.Deps{
		Sessions: sessionStore,
		Auth:     handlers.NewAuth(sessionStore, userStore),
		Presets:  handlers.NewPresets(svc),
		Shares:   handlers.NewShares(svc, cfg.BaseURL),
		Exports:  handlers.NewExports(svc),
		Health: handlers.Health(map[string]handlers.Pinger{
			"postgres": db,
			"valkey": handlers.PingFunc(func(ctx context.Context) error {
				return valkeyClient.Ping(ctx).Err()
			}),
		}),
		ShareLimiter:  shareLimiter,
		LoginLimiter:  loginLimiter,
		SecureCookies: secureCookies,
	})

	// WriteTimeout must accommodate itinerary generation, which waits on
	// an upstream model.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
