package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/background"
	"github.com/echopoint/echopoint/internal/config"
	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/handlers"
	middlewareCustom "github.com/echopoint/echopoint/internal/middleware"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	"github.com/echopoint/echopoint/internal/routes"
	"github.com/echopoint/echopoint/internal/services"
	pkgauth "github.com/echopoint/echopoint/pkg/auth"
	pkglogger "github.com/echopoint/echopoint/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
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
	userRepo := repositories.NewUserRepository()
	postRepo := repositories.NewPostRepository()
	commentRepo := repositories.NewCommentRepository()

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(db.Pool, userRepo, logger, cfg.Auth.CleanupInterval)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	authService := services.NewAuthService(
		db,
		userRepo,
		emailService,
		tokenManager,
		cfg.Email.BaseURL,
		cfg.Email.SendTimeout,
		logger,
		auditLogger,
	)
	userService := services.NewUserService(db.Pool, db, userRepo, logger, auditLogger)
	postService := services.NewPostService(db.Pool, db, postRepo)
	commentService := services.NewCommentService(db.Pool, db, commentRepo, postRepo)

	// Initialize handlers
	cookieCfg := auth.CookieConfig{
		ExpiresDays: cfg.Auth.CookieExpiresDays,
		Secure:      cfg.Server.Env == "production",
	}
	authHandler := handlers.NewAuthHandler(authService, cookieCfg)
	userHandler := handlers.NewUserHandler(userService, cookieCfg)
	postHandler := handlers.NewPostHandler(postService)
	commentHandler := handlers.NewCommentHandler(commentService)

	// Bootstrap first admin user if configured
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(bootCtx, db.Pool, userRepo, cfg.Admin, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	bootCancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	errorHandler := middlewareCustom.NewErrorHandler(logger, cfg.Server.Env)
	routes.RegisterRoutes(router, routes.Deps{
		ErrorHandler:   errorHandler,
		TokenManager:   tokenManager,
		Pool:           db.Pool,
		Accounts:       userRepo,
		AuthHandler:    authHandler,
		UserHandler:    userHandler,
		PostHandler:    postHandler,
		CommentHandler: commentHandler,
	})

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

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

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

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set. The account is created verified so it can log in
// without the OTP flow.
func ensureAdminUser(ctx context.Context, pool database.Querier, userRepo *repositories.UserRepository, cfg config.AdminConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	existing, err := userRepo.GetByEmail(ctx, pool, cfg.Email)
	if err == nil && existing != nil {
		logger.Info("admin user already exists")
		return nil
	}
	var appErr *models.AppError
	if !(errors.As(err, &appErr) && appErr.Kind == models.KindNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        cfg.Email,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         models.RoleAdmin,
	}

	if _, err := userRepo.Create(ctx, pool, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	// Create leaves accounts unverified; the bootstrap admin skips that step.
	if err := userRepo.MarkEmailVerified(ctx, pool, admin.ID); err != nil {
		return fmt.Errorf("failed to verify admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
