// Package main is the entry point for the Fahndung bulletin server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fahndung/internal/cache"
	"fahndung/internal/catalog"
	"fahndung/internal/config"
	"fahndung/internal/database"
	"fahndung/internal/handlers"
	"fahndung/internal/imaging"
	"fahndung/internal/metrics"
	"fahndung/internal/router"
	"fahndung/internal/session"
	"fahndung/internal/storage"
	"fahndung/internal/store"
)

func main() {
	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
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

	// Connect to Valkey (session store + public response cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	responseCache := cache.NewResponseCache(valkeyClient, cache.DefaultResponseTTL)

	// Load the media catalog; a corrupt backing document aborts startup
	// rather than silently starting over with an empty library.
	mediaCatalog := catalog.New(cfg.CatalogPath)
	if err := mediaCatalog.Load(); err != nil {
		slog.Error("failed to load media catalog", "error", err)
		os.Exit(1)
	}
	metrics.CatalogRecords.Set(float64(len(mediaCatalog.All())))

	// Start libvips for the image pipeline.
	imaging.Startup(cfg.VipsThreads)
	defer imaging.Shutdown()

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	noticeStore := store.NewNoticeStore(db)

	// Connect the S3-compatible evidence archive (optional).
	archiveClient, err := storage.New(
		cfg.ArchiveEndpoint, cfg.ArchiveRegion,
		cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket,
	)
	if err != nil {
		slog.Error("failed to initialize evidence archive", "error", err)
		os.Exit(1)
	}
	if archiveClient != nil {
		slog.Info("evidence archive connected",
			"endpoint", cfg.ArchiveEndpoint,
			"bucket", cfg.ArchiveBucket,
		)
	} else {
		slog.Warn("evidence archive not configured, originals are kept on local disk only")
	}

	// Create handler groups with their dependencies.
	authHandlers := handlers.NewAuth(sessionStore, userStore)
	noticeHandlers := handlers.NewNotices(noticeStore, responseCache)
	mediaHandlers := handlers.NewMedia(mediaCatalog, cfg.MediaRoot, archiveClient)
	userHandlers := handlers.NewUsers(userStore)

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Options{
		Sessions:  sessionStore,
		Auth:      authHandlers,
		Notices:   noticeHandlers,
		Media:     mediaHandlers,
		Users:     userHandlers,
		MediaRoot: cfg.MediaRoot,
		Secure:    secureCookies,
	})

	// Create the HTTP server with sensible timeouts. WriteTimeout must
	// accommodate large media uploads and the edit pipeline.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
