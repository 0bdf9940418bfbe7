package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account_service/internal/avatar"
	"account_service/internal/config"
	"account_service/internal/logger"
	"account_service/internal/metrics"
	"account_service/internal/repository"
	"account_service/internal/service"
	"account_service/internal/utils"
	"account_service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog, err := logger.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLog.Sync() //nolint:errcheck

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(cfg.AvatarsDir(), 0o755); err != nil {
		zapLog.Fatal("failed to create avatars directory", zap.String("dir", cfg.AvatarsDir()), zap.Error(err))
	}

	// --- Database ---
	dbPool, err := config.ConnectDB(context.Background(), cfg.DatabaseURL, zapLog)
	if err != nil {
		zapLog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := config.Migrate(dbPool, zapLog); err != nil {
		zapLog.Fatal("failed to migrate database", zap.Error(err))
	}

	jwtUtil, err := utils.NewJWTUtil(cfg.SecretKey, cfg.Algorithm, cfg.TokenTTL())
	if err != nil {
		zapLog.Fatal("failed to initialise tokens", zap.Error(err))
	}

	appMetrics := metrics.New()
	store := avatar.NewStore(cfg.AvatarsDir())
	queue := worker.New(worker.Config{
		Workers:       cfg.WorkerCount,
		QueueSize:     cfg.JobQueueSize,
		MaxAttempts:   cfg.JobMaxAttempts,
		RetryBackoff:  cfg.JobRetryBackoff,
		RetryMaxDelay: cfg.JobRetryMaxDelay,
	}, zapLog.Named("worker"), worker.WithRecorder(appMetrics))
	queue.Handle(service.TaskAvatarDerivatives, service.DerivativesHandler(store))

	userRepo := repository.NewUserRepository(dbPool)
	avatars := service.NewAvatars(store, queue, zapLog)
	authService := service.NewAuthService(userRepo, jwtUtil, avatars, appMetrics, zapLog)
	userService := service.NewUserService(userRepo, avatars, zapLog)

	router := newRouter(routerDeps{
		auth:           authService,
		users:          userService,
		jwt:            jwtUtil,
		metrics:        appMetrics,
		db:             dbPool,
		log:            zapLog,
		allowedOrigins: cfg.AllowedOrigins,
		tokenRate:      cfg.TokenRateLimit,
		tokenBurst:     cfg.TokenRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rootCtx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return queue.Run(ctx)
	})
	g.Go(func() error {
		zapLog.Info("server starting", zap.String("app", cfg.AppTitle), zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		zapLog.Info("shutdown signal received")
	case <-ctx.Done():
		zapLog.Warn("component stopped, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server forced to shutdown", zap.Error(err))
	}
	cancel()

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
	zapLog.Info("server exiting")
}
