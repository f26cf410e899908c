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

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kintai/internal/auth"
	"kintai/internal/cache"
	"kintai/internal/config"
	"kintai/internal/db"
	"kintai/internal/handler"
	"kintai/internal/logging"
	"kintai/internal/observability"
	"kintai/internal/repository"
	"kintai/internal/router"
	"kintai/internal/service"
)

var version = "dev"

// @title Kintai API
// @version 1.0
// @description Attendance schedules with proposal, approval and absence tracking.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, version)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	gormDB, err := db.Open(cfg, logger)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	defer func() { _ = db.Close(gormDB) }()

	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if cacheClient.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cacheClient.Ping(ctx); err != nil {
			// Revocation degrades to a no-op until Redis comes back.
			logger.Warn("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
	} else {
		logger.Warn("REDIS_ADDR not set, logout will not revoke tokens")
	}

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	scheduleRepo := repository.NewScheduleRepository(gormDB)

	// Auth components
	tokenService := auth.NewTokenService(cfg)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	credentials := service.NewCredentialStore(userRepo, cfg.BcryptCost)
	authService := service.NewAuthService(credentials, tokenService, tokenStore, logger)
	userService := service.NewUserService(credentials, logger)
	scheduleService := service.NewScheduleService(scheduleRepo, userRepo, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService, userService),
		Users:     handler.NewUserHandler(userService),
		Schedules: handler.NewScheduleHandler(scheduleService),
	}, func(ctx context.Context) error {
		if err := db.Ping(ctx, gormDB); err != nil {
			return err
		}
		if cacheClient.Enabled() {
			return cacheClient.Ping(ctx)
		}
		return nil
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.AppEnv), zap.Duration("token_ttl", tokenService.TTL()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
