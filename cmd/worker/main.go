// Command worker runs the export jobs on a schedule: GCS backups, BigQuery
// snapshots and the Notion mirror, through the same queue and runner as the
// API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/imoveis-tracker/internal/app"
	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/dvloznov/imoveis-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
)

func main() {
	envFile := flag.String("env", "", "Optional .env file (defaults to ./.env when present)")
	once := flag.Bool("once", false, "Publish one round of jobs, wait for them and exit")
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

	// Initialize logger
	log := logger.NewForFormat(cfg.LogFormat, cfg.LogLevel)
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	backends, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backends")
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close backends")
		}
	}()

	types, err := scheduledTypes(cfg.ExportJobs, backends.Runner.Supports)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid EXPORT_JOBS")
	}
	if len(types) == 0 {
		log.Warn().Str("jobs", cfg.ExportJobs).Msg("No scheduled job has a configured backend, nothing to do")
		return
	}

	done := make(chan jobs.ExportJob, len(types))
	jobStore := inmemory.NewStore(inmemory.WithRetention(cfg.JobRetention))
	jobQueue := inmemory.NewQueue(cfg.JobQueueSize, jobStore,
		inmemory.WithWorkers(cfg.JobWorkers),
		inmemory.WithMaxRetries(cfg.JobMaxRetries),
		inmemory.WithFinishHook(func(job jobs.ExportJob) {
			logFinished(log, job)
			if *once {
				done <- job
			}
		}),
	)

	if err := jobQueue.Start(ctx, backends.Runner.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().
		Strs("jobs", typeNames(types)).
		Dur("interval", cfg.ExportInterval).
		Bool("once", *once).
		Msg("Worker service started")

	publishRound(ctx, log, jobQueue, types)

	if *once {
		for range types {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
	} else {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ticker.C:
				publishRound(ctx, log, jobQueue, types)
			case <-quit:
				break loop
			}
		}
	}

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}

// scheduledTypes parses the comma separated EXPORT_JOBS list and keeps the
// types whose backend is configured. Unknown names are an error, duplicates
// are dropped.
func scheduledTypes(list string, supports func(jobs.JobType) bool) ([]jobs.JobType, error) {
	var types []jobs.JobType
	seen := make(map[jobs.JobType]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, err := jobs.ParseJobType(name)
		if err != nil {
			return nil, fmt.Errorf("scheduledTypes: %w", err)
		}
		if seen[t] || !supports(t) {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types, nil
}

func publishRound(ctx context.Context, log zerolog.Logger, q *inmemory.Queue, types []jobs.JobType) {
	for _, t := range types {
		job := &jobs.ExportJob{Type: t}
		if err := q.Publish(ctx, job); err != nil {
			log.Error().Err(err).Str("job_type", string(t)).Msg("Failed to enqueue scheduled job")
			continue
		}
		log.Debug().Str("job_id", job.JobID).Str("job_type", string(t)).Msg("Scheduled job enqueued")
	}
}

func logFinished(log zerolog.Logger, job jobs.ExportJob) {
	if job.Status == jobs.JobStatusFailed {
		log.Error().
			Str("job_id", job.JobID).
			Str("job_type", string(job.Type)).
			Int("retries", job.RetryCount).
			Str("error", job.Error).
			Msg("Scheduled job failed")
		return
	}
	log.Info().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Str("result", job.Result).
		Msg("Scheduled job completed")
}

func typeNames(types []jobs.JobType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
