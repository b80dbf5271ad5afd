package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/szlkpr/ims-ml-service/internal/api"
	"github.com/szlkpr/ims-ml-service/internal/cache"
	"github.com/szlkpr/ims-ml-service/internal/config"
	"github.com/szlkpr/ims-ml-service/internal/events"
	"github.com/szlkpr/ims-ml-service/internal/forecast"
	"github.com/szlkpr/ims-ml-service/internal/forecaster"
	"github.com/szlkpr/ims-ml-service/internal/repository"
	"github.com/szlkpr/ims-ml-service/internal/repository/postgres"
	"github.com/szlkpr/ims-ml-service/internal/service"
	"github.com/szlkpr/ims-ml-service/internal/storage"
	"github.com/szlkpr/ims-ml-service/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Server.LogFormat, cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Forecast engine; an unreachable engine leaves the gateway unavailable
	var engine forecaster.Forecaster
	if cfg.Forecaster.URL != "" {
		client, err := forecaster.NewClient(ctx, forecaster.Config{
			BaseURL:      cfg.Forecaster.URL,
			ClientID:     cfg.Forecaster.ClientID,
			ClientSecret: cfg.Forecaster.ClientSecret,
			TokenURL:     cfg.Forecaster.TokenURL,
			Timeout:      cfg.Forecaster.Timeout,
		})
		if err != nil {
			logger.Log.Error().Err(err).Str("url", cfg.Forecaster.URL).Msg("Forecaster unavailable, serving fallback forecasts")
		} else {
			engine = client
			logger.Log.Info().Str("url", cfg.Forecaster.URL).Bool("trained", client.Trained()).Msg("Forecaster connected")
		}
	} else {
		logger.Log.Warn().Msg("FORECASTER_URL not set, serving fallback forecasts")
	}

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Forecast cache disabled")
		forecastCache = cache.NewNoopForecastCache()
	}

	// Run history
	runs := repository.NewNoopRunRepository()
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		pgRuns := postgres.NewRunRepository(db)
		if err := pgRuns.EnsureSchema(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to prepare database schema")
		}
		runs = pgRuns
	}

	// Report archive
	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(ctx, cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize report storage")
		}
		archive = client
	}

	publisher, err := events.NewPublisher(ctx, cfg.Events)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	defer publisher.Close()

	// Initialize services
	fallback := forecast.NewFallback(forecast.NewRandSource(cfg.Forecaster.FallbackSeed))
	gateway := service.NewGateway(engine, fallback, forecastCache, runs, service.GatewayConfig{
		EngineConfigured: cfg.Forecaster.URL != "",
		TrainEpochs:      cfg.Forecaster.TrainEpochs,
		MaxHorizon:       cfg.Forecaster.MaxHorizon,
	})
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Gateway close failed")
		}
	}()

	services := &api.Services{
		Forecasts: gateway,
		Inventory: service.NewInventoryService(gateway, publisher, archive, runs, service.InventoryConfig{
			Concurrency:   cfg.Forecaster.OptimizeConcurrency,
			ArchivePrefix: cfg.Storage.Prefix,
		}),
		Market:  service.NewMarketService(gateway),
		Explain: service.NewExplainService(gateway),
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Str("forecaster_state", gateway.State()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("Failed to start server")
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}
