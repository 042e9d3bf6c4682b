package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/api/handlers"
	"github.com/dvloznov/imoveis-tracker/internal/api/middleware"
	"github.com/dvloznov/imoveis-tracker/internal/app"
	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/dvloznov/imoveis-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
	"github.com/dvloznov/imoveis-tracker/internal/metrics"
	"github.com/dvloznov/imoveis-tracker/internal/store"
)

func main() {
	envFile := flag.String("env", "", "Optional .env file (defaults to ./.env when present)")
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	log := logger.NewForFormat(cfg.LogFormat, cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	backends, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backends")
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close backends")
		}
	}()

	m := metrics.New()

	var listeners []store.RenameListener
	if backends.Notion != nil {
		listeners = append(listeners, backends.Notion)
	}
	sess := engine.NewSession(backends.Store,
		engine.WithLogger(log),
		engine.WithRecorder(m),
		engine.WithUndoWindow(cfg.UndoWindow),
		engine.WithRenameListeners(listeners...),
	)
	defer sess.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore(inmemory.WithRetention(cfg.JobRetention))
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, jobStore,
		inmemory.WithWorkers(cfg.JobWorkers),
		inmemory.WithMaxRetries(cfg.JobMaxRetries),
		inmemory.WithFinishHook(func(job jobs.ExportJob) {
			m.JobFinished(string(job.Type), string(job.Status))
		}),
	)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, backends.Runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Create router
	mux := http.NewServeMux()
	handlers.NewPropertiesHandler(sess, backends.Store, log).Register(mux)
	handlers.NewJobsHandler(jobStore, jobQueue, backends.Runner.Supports, log).Register(mux)
	mux.Handle("GET /metrics", m.Handler())

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.Logger(log)(
				middleware.Metrics(m)(
					middleware.CORS(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
