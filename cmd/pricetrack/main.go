package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pricetrack/internal/api"
	"pricetrack/internal/config"
	"pricetrack/internal/extractor"
	"pricetrack/internal/fetcher"
	"pricetrack/internal/monitoring"
	"pricetrack/internal/pipeline"
	"pricetrack/internal/rotation"
	"pricetrack/internal/scheduler"
	"pricetrack/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	pgStore, err := storage.NewPostgresStore(cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	redisStore := storage.NewRedisStore(cfg.RedisAddr)

	// Initialize Monitoring and Fetching
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	rot := rotation.NewManager(cfg.UserAgentList(), cfg.Proxies(), time.Now().UnixNano())

	var pageFetcher fetcher.Fetcher
	if cfg.RenderJS {
		pageFetcher = fetcher.NewBrowserFetcher(
			time.Duration(cfg.FetchTimeout)*time.Second, logger)
	} else {
		pageFetcher = fetcher.NewHTTPFetcher(rot, cfg.MaxRetries,
			time.Duration(cfg.FetchTimeout)*time.Second,
			time.Duration(cfg.RetryBaseDelay)*time.Second, logger)
	}

	// Initialize Extraction Pipeline
	svc := pipeline.New(pageFetcher, extractor.New(logger), metrics, logger, pipeline.Options{
		Workers:  cfg.BatchWorkers,
		Interval: rate.Every(time.Duration(cfg.RequestIntervalMS) * time.Millisecond),
	})

	// Initialize Price Checker
	checker := scheduler.NewChecker(svc, pgStore, redisStore, metrics, logger,
		time.Duration(cfg.RecheckTTLHours)*time.Hour, cfg.MaxFailures)
	if err := checker.Start(time.Duration(cfg.CheckIntervalMinutes) * time.Minute); err != nil {
		logger.Fatal("could not schedule price checker", zap.Error(err))
	}

	// Initialize API Server
	server := api.NewServer(cfg, svc, pgStore, redisStore, checker, metrics, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	checker.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	pgStore.Close()
	logger.Info("server exiting")
}
