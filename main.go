package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"autoalert/listingworker/config"
	"autoalert/listingworker/helpers"
	"autoalert/listingworker/internal/scraper"
	"autoalert/listingworker/logger"
	"autoalert/listingworker/services/cache"
	"autoalert/listingworker/services/notifier"
	"autoalert/listingworker/services/publisher"
	"autoalert/listingworker/services/store"
	"autoalert/listingworker/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	searches, err := config.LoadSearches(cfg.SearchesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load searches")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("run_mode", cfg.RunMode).
		Int("searches", len(searches)).
		Msg("Starting listing worker")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	if cfg.CleanupAge > 0 {
		if removed, err := services.Store.CleanupOlderThan(cfg.CleanupAge); err != nil {
			log.Warn().Err(err).Msg("Store cleanup failed")
		} else if removed > 0 {
			log.Info().Int("removed", removed).Msg("Store cleanup done")
		}
	}

	w := worker.New(worker.Deps{
		Runner:        services.Runner,
		Store:         services.Store,
		Dispatcher:    services.Dispatcher,
		Publisher:     services.Publisher,
		Status:        services.Notifier,
		Searches:      searches,
		MaxConcurrent: cfg.MaxConcurrentSearches,
		NotifyMaxAge:  cfg.NotifyMaxAge,
		Interval:      cfg.CheckInterval,
	})

	if cfg.RunMode == "once" {
		report, err := w.RunOnce(ctx)
		printReport(report)
		if err != nil {
			log.Fatal().Err(err).Msg("Run failed")
		}
		return
	}

	// Continuous mode: run until a shutdown signal arrives
	if cfg.WebhookURL != "" {
		msg := fmt.Sprintf("Watching %d searches every %s", len(searches), cfg.CheckInterval)
		if err := services.Notifier.NotifyStatus(ctx, "Listing worker started", msg); err != nil {
			log.Warn().Err(err).Msg("Startup status notification failed")
		}
	}

	workerDone := make(chan error, 1)
	go func() {
		log.Info().Dur("interval", cfg.CheckInterval).Msg("Starting continuous run loop")
		workerDone <- w.Start(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Worker exited with error")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Store      store.Store
	Runner     *scraper.Runner
	Notifier   notifier.Notifier
	Dispatcher *notifier.Dispatcher
	Publisher  publisher.Publisher
}

// Cleanup closes all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg config.Config) (*Services, error) {
	services := &Services{}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	services.Store = st
	logger.Info("Listing store opened at %s", cfg.StorePath)

	var cacheSvc cache.CacheService
	if cfg.MemcacheAddr != "" {
		cacheSvc = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	} else {
		cacheSvc = cache.NewMemoryCache()
	}

	fetcher := helpers.NewHTTPFetcher(cacheSvc, helpers.DefaultRetryPolicy())
	services.Runner = scraper.NewRunner(fetcher)

	if cfg.WebhookURL == "" {
		logger.Warn("WEBHOOK_URL not set; notifications will fail and stay pending")
	}
	services.Notifier = notifier.NewWebhookNotifier(cfg.WebhookURL, helpers.DefaultRetryPolicy())
	services.Dispatcher = notifier.NewDispatcher(services.Notifier, services.Store, cfg.NotifyInterval)

	if cfg.RedisAddr != "" {
		services.Publisher = publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		services.Publisher = publisher.Noop{}
	}

	return services, nil
}

// printReport writes the machine-readable run summary to stdout
func printReport(report worker.RunReport) {
	data, err := json.Marshal(report)
	if err != nil {
		logger.Error("Failed to marshal run report: %v", err)
		return
	}
	os.Stdout.Write(append(data, '\n'))
}
