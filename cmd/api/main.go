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

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/octobees/exhibitor-leads/internal/app"
	"github.com/octobees/exhibitor-leads/internal/auth"
	"github.com/octobees/exhibitor-leads/internal/config"
	"github.com/octobees/exhibitor-leads/internal/database"
	"github.com/octobees/exhibitor-leads/internal/handler"
	"github.com/octobees/exhibitor-leads/internal/logging"
	middlewarepkg "github.com/octobees/exhibitor-leads/internal/middleware"
	"github.com/octobees/exhibitor-leads/internal/repository"
	"github.com/octobees/exhibitor-leads/internal/router"
	"github.com/octobees/exhibitor-leads/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	components, err := app.Build(cfg, logger, reg)
	if err != nil {
		logger.Fatal("failed to build extraction stack", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(cfg.OperatorEmail, cfg.OperatorPasswordHash, jwtManager)
	if !authService.Enabled() {
		logger.Warn("OPERATOR_EMAIL or OPERATOR_PASSWORD_HASH not set, token endpoint disabled")
	}

	handlers := router.Handlers{
		Auth:    handler.NewAuthHandler(authService, jwtManager),
		Extract: handler.NewExtractHandler(components.Pipeline),
		Enrich:  handler.NewEnrichHandler(components.Aggregator),
	}

	var runService *service.RunService
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := database.Open(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect database", zap.Error(err))
		}
		defer pool.Close()

		runService = service.NewRunService(
			repository.NewPGXRunsRepository(pool),
			components.Pipeline,
			service.WithStrategies(components.Strategies),
			service.WithRunLogger(logger.Named("runs")),
		)
		handlers.Runs = handler.NewRunsHandler(runService)
	} else {
		logger.Warn("DATABASE_URL not set, run endpoints disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger.Named("http")))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, reg, handlers)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if runService != nil {
		runService.Wait()
	}
}
