package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/student-records-service/internal/assets"
	"github.com/SAP-F-2025/student-records-service/internal/auth"
	"github.com/SAP-F-2025/student-records-service/internal/cache"
	"github.com/SAP-F-2025/student-records-service/internal/config"
	"github.com/SAP-F-2025/student-records-service/internal/events"
	"github.com/SAP-F-2025/student-records-service/internal/handlers"
	"github.com/SAP-F-2025/student-records-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/student-records-service/internal/services"
	"github.com/SAP-F-2025/student-records-service/internal/utils"
	"github.com/SAP-F-2025/student-records-service/internal/validator"
	"github.com/SAP-F-2025/student-records-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient)

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Event transport and the in-process audit consumer
	rootCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	transport, err := events.NewTransport(cfg.Events, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event transport: %v", err)
	}
	if transport.Subscriber != nil {
		if err := events.RunAuditLog(rootCtx, transport.Subscriber, cfg.Events.Topic, slogLogger); err != nil {
			log.Fatalf("Failed to start audit log: %v", err)
		}
	}

	photoStore, err := assets.NewFileStore(cfg.Media.Root, cfg.Media.MaxDimension)
	if err != nil {
		log.Fatalf("Failed to initialize media store: %v", err)
	}

	authConfig := services.AuthServiceConfig{
		Tokens:          auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL),
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		Cache:           cacheManager,
	}
	if cfg.Casdoor.Enabled() {
		authConfig.Verifier = auth.NewCasdoorVerifier(cfg.Casdoor)
		logger.Info("Accepting federated tokens", "endpoint", cfg.Casdoor.Endpoint)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(db, repoManager.GetRepository(), slogLogger, validator.New(), services.ServiceManagerConfig{
		Publisher: transport.Publisher,
		Assets:    photoStore,
		Auth:      authConfig,
		Location:  cfg.Location(),
	})
	if err := serviceManager.Initialize(rootCtx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if cfg.BootstrapAdmin.Username != "" {
		admin := cfg.BootstrapAdmin
		if err := serviceManager.Auth().EnsureBootstrapAdmin(rootCtx, admin.Username, admin.Password, admin.Email); err != nil {
			log.Fatalf("Failed to create bootstrap admin: %v", err)
		}
	}

	maxUpload := cfg.Media.MaxUploadMB << 20
	handlerManager := handlers.NewHandlerManager(serviceManager, cacheManager, maxUpload, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUpload

	handlers.SetupMiddleware(router, logger)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Closes the event publisher
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	stopConsumers()

	// Also closes the Redis client
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	logger.Info("Server exited")
}
