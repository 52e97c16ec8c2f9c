// VoiceGate - Voice Authentication Gateway Server
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

	"github.com/dmelnyk/voicegate/internal/api"
	"github.com/dmelnyk/voicegate/internal/auth"
	"github.com/dmelnyk/voicegate/internal/challenge"
	"github.com/dmelnyk/voicegate/internal/config"
	"github.com/dmelnyk/voicegate/internal/homeassistant"
	"github.com/dmelnyk/voicegate/internal/middleware"
	"github.com/dmelnyk/voicegate/internal/phrase"
	"github.com/dmelnyk/voicegate/internal/store"
	"github.com/dmelnyk/voicegate/internal/tracker"
	"github.com/dmelnyk/voicegate/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"ha_mode", cfg.HAMode,
		"challenge_backend", cfg.ChallengeBackend)

	// Homes and Alexa mappings always live in SQLite; they must survive
	// restarts even when challenges are kept in memory.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	var challengeStore store.ChallengeStore
	switch cfg.ChallengeBackend {
	case config.BackendSQLite:
		challengeStore = repo
	default:
		challengeStore = store.NewMemoryStore()
	}

	gen, err := phrase.NewGenerator(cfg.Words, cfg.Numbers)
	if err != nil {
		slog.Error("Failed to initialize phrase generator", "error", err)
		os.Exit(1)
	}

	engine := challenge.NewEngine(challengeStore, gen, cfg.Expiry, cfg.MaxAttempts)
	authSvc := auth.NewService(engine)

	var haClient homeassistant.Client
	switch cfg.HAMode {
	case config.HAModeWebsocket:
		haClient = homeassistant.NewWebsocketClient(cfg.HAURL, cfg.HAToken)
	case config.HAModeTest:
		haClient = homeassistant.NewConsoleClient()
	default:
		haClient = homeassistant.NewWebhookClient(cfg.HAURL, cfg.HAWebhookID)
	}

	testCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := haClient.TestConnection(testCtx); err != nil {
		slog.Warn("Home Assistant unreachable at startup", "error", err, "mode", cfg.HAMode)
	} else {
		slog.Info("Home Assistant connected", "mode", cfg.HAMode)
	}
	cancel()

	unmapped := tracker.New(cfg.UnmappedTrackerCapacity)

	// Initialize handlers.
	alexaHandler := api.NewAlexaHandler(authSvc, repo, haClient, unmapped, cfg.SceneID, cfg.DefaultHomeID)
	satelliteHandler := api.NewSatelliteHandler(authSvc)
	adminHandler := api.NewAdminHandler(repo, unmapped)
	healthHandler := api.NewHealthHandler(engine, repo, haClient, cfg.HAMode)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	healthHandler.RegisterRoutes(r)
	alexaHandler.RegisterRoutes(r)
	satelliteHandler.RegisterRoutes(r)

	// Admin routes sit behind the shared API key.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAPIKey(cfg.AdminAPIKey))
		adminHandler.RegisterRoutes(r)
	})

	// Serve the embedded dashboard.
	r.Handle("/*", web.DashboardHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the expiry sweep worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	challenge.StartSweepWorker(ctx, engine, cfg.SweepInterval)
	slog.Info("Sweep worker started", "interval", cfg.SweepInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
