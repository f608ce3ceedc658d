package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/content-review-api/internal/api"
	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/database"
	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/notify"
	"github.com/content-review-api/internal/repository"
	"github.com/content-review-api/internal/service"
	"github.com/content-review-api/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting Content Review API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize repositories
	var repos *repository.Repositories
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		repos = repository.NewMemory()
	default:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		repos = repository.New(db)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Notification dispatch
	dispatcher := notify.NewManager(cfg.Notification.Workers, cfg.Notification.QueueSize, log, m)
	dispatcher.Subscribe(notify.NewLogObserver(log))
	if cfg.Notification.StoreEvents {
		dispatcher.Subscribe(notify.NewStoreObserver(repos.Event))
	}
	if cfg.Notification.WebhookURL != "" {
		dispatcher.Subscribe(notify.NewWebhookObserver(cfg.Notification.WebhookURL, cfg.Notification.WebhookTimeout))
	}

	// Initialize services
	services := service.NewServices(repos, cfg, log, dispatcher, m)

	// Start scheduled publisher
	if cfg.Scheduler.Enabled {
		go services.Publisher.StartProcessor(context.Background())
		log.Info().Dur("interval", cfg.Scheduler.Interval).Msg("Scheduled publisher started")
	}

	// Initialize router
	router := api.NewRouter(services, cfg, log, reg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("storage", cfg.Storage.Driver).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the publisher before the server so no sweep races shutdown
	services.Publisher.StopProcessor()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Drain queued workflow events
	dispatcher.Shutdown()

	log.Info().Msg("Server exited gracefully")
}
