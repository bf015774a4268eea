package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/snapselect/snapselect/internal/config"
	"github.com/snapselect/snapselect/internal/handler"
	"github.com/snapselect/snapselect/internal/policy"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/internal/service"
	"github.com/snapselect/snapselect/pkg/database"
	"github.com/snapselect/snapselect/pkg/logger"
)

// auditRetention bounds how long audit events are kept before the hourly
// cleanup job prunes them.
const auditRetention = 90 * 24 * time.Hour

func main() {
	// Initialize structured logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}
	logger.Init(logger.Config{
		Level:  logLevel,
		Format: logFormat,
		Output: os.Stdout,
	})

	// Load configuration
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration error")
	}

	logger.Info().
		Str("bind_address", cfg.Server.BindAddress).
		Str("port", cfg.Server.Port).
		Str("log_level", logLevel).
		Msg("Starting SnapSelect server")

	// Initialize database
	db, err := database.Initialize(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Initialize schema
	if err := database.InitSchema(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	logger.Info().Msg("Database schema initialized")

	// Initialize repositories
	photographerRepo := repository.NewPhotographerRepository(db)
	planRepo := repository.NewPlanRepository(db)
	galleryRepo := repository.NewGalleryRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	policyStore := repository.NewPolicyStore(db)

	// Policy engine drives every share/revoke/restriction decision.
	engine := policy.NewEngine(policyStore)

	// Initialize services
	authSvc := service.NewAuthService(photographerRepo, cfg)
	gallerySvc := service.NewGalleryService(galleryRepo, photographerRepo, engine)
	photoSvc := service.NewPhotoService(photoRepo, galleryRepo, planRepo, engine, cfg.Storage.Path)
	selectionSvc := service.NewSelectionService(galleryRepo, photoRepo, selectionRepo)
	statsSvc := service.NewStatsService(galleryRepo, photoRepo, selectionRepo)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authSvc, cfg.Auth.TokenTTL)
	galleryHandler := handler.NewGalleryHandler(gallerySvc)
	photoHandler := handler.NewPhotoHandler(photoSvc)
	clientHandler := handler.NewClientHandler(selectionSvc, photoSvc)
	statsHandler := handler.NewStatsHandler(statsSvc, selectionSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:               100 * 1024 * 1024, // 100MB limit for photo uploads
		DisableKeepalive:        false,
		ReadTimeout:             10 * time.Second,
		WriteTimeout:            30 * time.Second,
		IdleTimeout:             60 * time.Second,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      true,
	})

	logger.Info().
		Strs("trusted_proxies", cfg.Server.TrustedProxies).
		Msg("Trusted proxy configuration loaded")

	// Middleware
	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))
	app.Use(handler.SecurityHeadersMiddleware())
	app.Use(handler.RequestIDMiddleware())
	app.Use(handler.MetricsMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-CSRF-Token, X-Gallery-Password",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           3600, // Cache preflight responses for 1 hour
	}))
	app.Use(logger.Middleware())

	// Routes
	api := app.Group("/api/v1")

	// Rate limiters: auth uses IP-only (runs before auth), uploads use
	// IP+photographer, client routes use IP-only. Backed by DB to persist
	// counters across restarts and shared replicas.
	authRateLimiter := handler.NewPersistentRateLimiter(db, "auth", 10, 1*time.Minute)
	uploadRateLimiter := handler.NewPersistentRateLimiterWithKey(db, "upload", 60, 1*time.Minute, handler.IPAndPhotographerKey)
	clientRateLimiter := handler.NewPersistentRateLimiter(db, "client", 120, 1*time.Minute)

	// Body limit middleware: 1MB for JSON API routes, uploads use the
	// app-level 100MB limit.
	jsonBodyLimit := handler.BodyLimitMiddleware(1 * 1024 * 1024) // 1MB

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", jsonBodyLimit, authRateLimiter.Middleware(), authHandler.Register)
	auth.Post("/login", jsonBodyLimit, authRateLimiter.Middleware(), authHandler.Login)
	auth.Post("/logout", jsonBodyLimit, handler.CSRFMiddleware(), authHandler.Logout)
	auth.Get("/me", handler.AuthMiddleware(authSvc), authHandler.GetMe)

	// Gallery routes (CSRF-protected for state-changing operations)
	galleries := api.Group("/galleries", handler.AuthMiddleware(authSvc))
	galleries.Post("/", jsonBodyLimit, handler.CSRFMiddleware(), galleryHandler.Create)
	galleries.Get("/", galleryHandler.List)
	galleries.Get("/:id", galleryHandler.Get)
	galleries.Delete("/:id", handler.CSRFMiddleware(), galleryHandler.Delete)
	galleries.Post("/:id/share", jsonBodyLimit, handler.CSRFMiddleware(), galleryHandler.Share)
	galleries.Get("/:id/revoke-warning", galleryHandler.RevokeWarning)
	galleries.Post("/:id/revoke", jsonBodyLimit, handler.CSRFMiddleware(), galleryHandler.Revoke)
	galleries.Post("/:id/photos", handler.CSRFMiddleware(), uploadRateLimiter.Middleware(), photoHandler.Upload)
	galleries.Get("/:id/photos", photoHandler.List)
	galleries.Get("/:id/selections", statsHandler.GallerySelections)

	// Photo routes
	photos := api.Group("/photos", handler.AuthMiddleware(authSvc))
	photos.Get("/:id/file", photoHandler.Download)
	photos.Delete("/:id", handler.CSRFMiddleware(), photoHandler.Delete)

	// Client routes (share token is the credential, no photographer session)
	client := api.Group("/client", clientRateLimiter.Middleware())
	client.Post("/galleries/:token/access", jsonBodyLimit, clientHandler.AccessGallery)
	client.Get("/galleries/:token/photos", clientHandler.ListPhotos)
	client.Post("/galleries/:token/selections", jsonBodyLimit, clientHandler.SubmitSelection)
	client.Get("/galleries/:token/photos/:photoID/file", clientHandler.PhotoFile)

	// Stats routes
	stats := api.Group("/stats", handler.AuthMiddleware(authSvc))
	stats.Get("/dashboard", statsHandler.Dashboard)

	// Health check handler
	healthHandler := handler.NewHealthHandler(db, cfg.Storage.Path)
	app.Get("/health", healthHandler.Liveness)
	app.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint
	metricsHandler := handler.NewMetricsHandler()
	if cfg.Observability.MetricsEnabled {
		if cfg.IsProduction {
			app.Get("/metrics", handler.BearerTokenMiddleware(cfg.Observability.MetricsToken), metricsHandler.Handler())
		} else {
			app.Get("/metrics", metricsHandler.Handler())
		}
	} else {
		logger.Info().Msg("Metrics endpoint disabled")
	}

	// Background job: clear lapsed upload restrictions and prune old audit
	// rows. Lapsed restrictions are also self-healed on read, so this only
	// keeps the stored rows from going stale indefinitely.
	cleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.Info().Msg("Running maintenance cleanup...")
				now := time.Now()
				cleared, err := galleryRepo.ClearLapsedRestrictions(now)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to clear lapsed restrictions")
				} else if cleared > 0 {
					logger.Info().Int64("galleries", cleared).Msg("Cleared lapsed upload restrictions")
				}
				if err := auditRepo.DeleteOlderThan(now.Add(-auditRetention)); err != nil {
					logger.Error().Err(err).Msg("Failed to prune audit events")
				}
				logger.Info().Msg("Maintenance cleanup completed")
			case <-cleanupStop:
				return
			}
		}
	}()

	// Start server in goroutine
	go func() {
		addr := net.JoinHostPort(cfg.Server.BindAddress, cfg.Server.Port)
		logger.Info().
			Str("address", addr).
			Bool("metrics_enabled", cfg.Observability.MetricsEnabled).
			Msg("HTTP server listening")
		if err := app.Listen(addr); err != nil {
			logger.Error().Err(err).Msg("Server stopped")
		}
	}()

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop background jobs
	logger.Info().Msg("Stopping background jobs...")
	close(cleanupStop)
	authRateLimiter.Stop()
	uploadRateLimiter.Stop()
	clientRateLimiter.Stop()

	// Shutdown Fiber app
	logger.Info().Msg("Shutting down HTTP server...")
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
	}

	// Close database connection
	logger.Info().Msg("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing database")
	}

	logger.Info().Msg("Server stopped gracefully")
}
