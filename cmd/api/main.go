package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/davidmarsh/reelhaven/internal/background"
	"github.com/davidmarsh/reelhaven/internal/breach"
	"github.com/davidmarsh/reelhaven/internal/config"
	"github.com/davidmarsh/reelhaven/internal/database"
	"github.com/davidmarsh/reelhaven/internal/handlers"
	middlewareCustom "github.com/davidmarsh/reelhaven/internal/middleware"
	"github.com/davidmarsh/reelhaven/internal/repositories"
	"github.com/davidmarsh/reelhaven/internal/routes"
	"github.com/davidmarsh/reelhaven/internal/security"
	"github.com/davidmarsh/reelhaven/internal/services"
	pkghttp "github.com/davidmarsh/reelhaven/pkg/http"
	pkglogger "github.com/davidmarsh/reelhaven/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	contentRepo := repositories.NewContentRepository(db)
	ratingRepo := repositories.NewRatingRepository(db)
	playlistRepo := repositories.NewPlaylistRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Initialize security components
	auditLogger := pkglogger.NewAuditLogger(logger)
	limiter := security.NewTokenBucketLimiter(logger)
	tracker := security.NewLoginAttemptTracker(security.AttemptTrackerConfig{
		MaxAttempts:                cfg.Security.MaxAttempts,
		AttemptWindow:              cfg.Security.AttemptWindow,
		LockoutDuration:            cfg.Security.LockoutDuration,
		DistributedAttackThreshold: cfg.Security.DistributedAttackThreshold,
		ResetClearsGlobal:          cfg.Security.ResetClearsGlobal,
	}, logger)
	codes := security.NewMultiFactorCodeService(cfg.Security.CodeTTL, logger)

	breachChecker := breach.NewClient(logger)
	passwordEngine := security.NewPasswordEngine(security.PasswordPolicy{
		Pepper:              cfg.Security.Pepper,
		BcryptCost:          cfg.Security.BcryptCost,
		BreachCheckFailOpen: cfg.Security.BreachCheckFailOpen,
	}, breachChecker, logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	loginQuota := security.LoginQuota(cfg.Security.LoginRateCapacity, cfg.Security.LoginRateWindow)
	authService := services.NewAuthService(userRepo, limiter, tracker, passwordEngine, loginQuota, logger, auditLogger)
	mfaService := services.NewMFAService(
		codes, limiter, tracker, emailService,
		services.DefaultMFAQuotas(cfg.Security.CodeHourlyQuota, cfg.Security.CodeDailyQuota),
		cfg.Security.CodeTTL,
		logger, auditLogger,
	)
	userService := services.NewUserService(userRepo, logger)
	contentService := services.NewContentService(contentRepo, ratingRepo, playlistRepo, logger)
	notificationService := services.NewNotificationService(notificationRepo, userRepo, emailService, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	mfaHandler := handlers.NewMFAHandler(mfaService, ipConfig)
	userHandler := handlers.NewUserHandler(userService)
	contentHandler := handlers.NewContentHandler(contentService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Reaper bounds memory held by the in-process security state
	reaper := background.NewReaper(limiter, tracker, codes, logger,
		cfg.Security.ReaperInterval, 24*time.Hour)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, mfaHandler, userHandler, contentHandler, notificationHandler)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start reaper
	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	defer reaperCancel()

	go reaper.Start(reaperCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	reaperCancel()
	reaper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
