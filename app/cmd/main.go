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

	"github.com/go-chi/httprate"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"testgen/app/config"
	"testgen/app/usecase"
	"testgen/internal/domain/repository"
	"testgen/internal/infrastructure/events"
	"testgen/internal/infrastructure/llm"
	"testgen/internal/infrastructure/metrics"
	"testgen/internal/infrastructure/store/filesystem"
	"testgen/internal/infrastructure/store/memory"
	mongorepo "testgen/internal/infrastructure/store/mongodb"
	"testgen/internal/infrastructure/transport"
	"testgen/internal/infrastructure/validator"
)

type stores struct {
	settings repository.SettingsRepository
	jobs     repository.JobRepository
	files    repository.TestFileRepository
	close    func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Error("open stores failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}

	generator := newGenerator(cfg.Generation)
	broker := events.NewBroker()

	worker := usecase.NewTestGenerationWorker(
		st.jobs,
		st.files,
		generator,
		validator.NewPlaywrightValidator(),
		broker,
		logger,
		usecase.WorkerOptions{
			PollInterval: cfg.Generation.PollInterval,
			JobTimeout:   cfg.Generation.JobTimeout,
		},
	)

	settingsSvc := usecase.NewSettingsService(st.settings, logger)
	jobSvc := usecase.NewJobService(st.jobs, worker, logger)
	filesSvc := usecase.NewTestFilesService(st.jobs, st.files)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx) // background worker

	handler := transport.NewHandler(settingsSvc, jobSvc, filesSvc, broker, logger)

	// Router and server
	r := mux.NewRouter()
	handler.RegisterRoutes(r, cfg.Server.APIPrefix)

	var root http.Handler = r
	if cfg.Server.RateLimit > 0 {
		root = httprate.LimitByIP(cfg.Server.RateLimit, time.Minute)(r)
	}
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	)(root)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Server.MetricsAddr != "" {
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Server.MetricsAddr)
			if err := metrics.StartMetricsServer(cfg.Server.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		logger.Info("starting HTTP server", "addr", addr, "prefix", cfg.Server.APIPrefix, "generator", generator.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	worker.Stop()
	cancel()

	if st.close != nil {
		logger.Info("closing stores")
		if err := st.close(shutdownCtx); err != nil {
			logger.Error("store close error", "err", err)
		}
	}

	logger.Info("service stopped")
}

func openStores(cfg config.Config, logger *slog.Logger) (stores, error) {
	switch cfg.Store.Backend {
	case "file":
		settings, err := filesystem.NewSettingsFile(cfg.Store.SettingsFile)
		if err != nil {
			return stores{}, fmt.Errorf("settings file: %w", err)
		}
		files, err := filesystem.NewTestFileRepository(cfg.Store.OutputDir)
		if err != nil {
			return stores{}, fmt.Errorf("output dir: %w", err)
		}
		logger.Info("using file store", "settings", cfg.Store.SettingsFile, "output", files.GetBasePath())
		return stores{settings: settings, jobs: memory.NewJobRepo(), files: files}, nil

	case "mongo":
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer connectCancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return stores{}, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return stores{}, fmt.Errorf("mongo ping: %w", err)
		}
		logger.Info("connected to mongo", "database", cfg.Mongo.Database)

		db := client.Database(cfg.Mongo.Database)
		return stores{
			settings: mongorepo.NewMongoSettingsRepo(db),
			jobs:     mongorepo.NewMongoJobRepo(db),
			files:    mongorepo.NewMongoTestFileRepo(db),
			close:    client.Disconnect,
		}, nil
	}

	return stores{
		settings: memory.NewSettingsRepo(),
		jobs:     memory.NewJobRepo(),
		files:    memory.NewTestFileRepo(),
	}, nil
}

func newGenerator(cfg config.GenerationConfig) repository.TestGenerator {
	if cfg.Generator == "anthropic" {
		return llm.NewAnthropicGenerator(cfg.AnthropicBaseURL, cfg.Model, cfg.MaxTokens, cfg.RequestTimeout)
	}
	return llm.NewSimulatedGenerator(cfg.SimulatedDelay)
}
