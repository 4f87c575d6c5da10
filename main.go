package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/G0V1NDS/city-list/config"
	"github.com/G0V1NDS/city-list/handlers"
	"github.com/G0V1NDS/city-list/ingest"
	"github.com/G0V1NDS/city-list/metrics"
	"github.com/G0V1NDS/city-list/reconcile"
	"github.com/G0V1NDS/city-list/services"
	"github.com/G0V1NDS/city-list/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config depends on cfg, so this one goes to a bootstrap logger
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := config.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	startTime := time.Now()
	log.Info("Starting server initialization",
		zap.String("env", cfg.AppEnv),
		zap.String("storeDriver", cfg.StoreDriver))

	health := map[string]handlers.HealthChecker{}

	var cols store.Collections
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("Using in-memory store, data is lost on restart")
		cols = store.NewMemoryCollections()
	default:
		log.Info("Initializing MongoDB...")
		if err := config.ConnectWithRetry(cfg, log); err != nil {
			log.Fatal("Failed to initialize MongoDB", zap.Error(err))
		}
		cols = store.NewMongoCollections(config.MongoDB)
		health["mongo"] = config.CheckMongoHealth
	}

	var queue reconcile.Queue = reconcile.NewMemoryQueue()
	if cfg.ReconcileDSN != "" {
		log.Info("Initializing PostgreSQL reconcile queue...")
		if err := config.InitDB(cfg.ReconcileDSN, log); err != nil {
			log.Fatal("Failed to initialize PostgreSQL", zap.Error(err))
		}
		pq := reconcile.NewPostgresQueue(config.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := pq.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatal("Failed to create reconcile schema", zap.Error(err))
		}
		queue = pq
		health["postgres"] = config.CheckPostgresHealth
	}
	defer config.CloseDB(log)

	m := metrics.New(prometheus.DefaultRegisterer)
	caches := config.NewCaches(cfg.ListCacheTTL)
	hierarchy := services.NewHierarchy(cols, caches, queue, log, m)
	importer := ingest.NewImporter(hierarchy, ingest.Options{
		Delimiter:         cfg.Delimiter(),
		Concurrency:       cfg.ImportConcurrency,
		Timeout:           cfg.ImportTimeout,
		SkipMalformedRows: cfg.ImportSkipMalformedRows,
	}, log, m)
	worker := reconcile.NewWorker(queue, hierarchy, log, m)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.ReconcileInterval > 0 {
		worker.Start(workerCtx, cfg.ReconcileInterval)
		log.Info("Reconcile worker started", zap.Duration("interval", cfg.ReconcileInterval))
	}

	api := handlers.New(hierarchy, importer, worker, handlers.UploadLimits{
		MinSize: cfg.CSVMinFileSize,
		MaxSize: cfg.CSVMaxFileSize,
	}, health, log)
	router := newRouter(cfg, api, nil, log)
	log.Info("Routes registered successfully")

	// The import endpoint can run for minutes, so there is no write timeout.
	srv := &http.Server{
		Handler:           router,
		Addr:              ":" + cfg.Port,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Port), zap.Duration("startup", time.Since(startTime)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("Shutdown signal received")
	case err := <-serverErrors:
		log.Error("Server error received", zap.Error(err))
	}

	log.Info("Shutting down server...")
	stopWorker()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Error during server shutdown", zap.Error(err))
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
