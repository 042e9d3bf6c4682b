// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting used by the binaries.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	GCPProject string
	BQDataset  string
	GCSBucket  string

	NotionToken      string
	NotionDatabaseID string

	UndoWindow time.Duration

	JobQueueSize  int
	JobMaxRetries int
	JobWorkers    int
	JobRetention  int

	// ExportInterval and ExportJobs drive the scheduled worker. ExportJobs is a
	// comma separated list of job types.
	ExportInterval time.Duration
	ExportJobs     string
}

// Load reads the optional .env files (the working directory's by default) and
// then the environment. Variables already set win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:             GetString("PORT", "8080"),
		LogLevel:         GetString("LOG_LEVEL", "info"),
		LogFormat:        GetString("LOG_FORMAT", "console"),
		StoreDriver:      GetString("STORE_DRIVER", DriverMemory),
		DatabaseURL:      GetString("DATABASE_URL", ""),
		SQLitePath:       GetString("SQLITE_PATH", "imoveis.db"),
		GCPProject:       GetString("GCP_PROJECT", ""),
		BQDataset:        GetString("BQ_DATASET", "imoveis"),
		GCSBucket:        GetString("GCS_BUCKET", ""),
		NotionToken:      GetString("NOTION_TOKEN", ""),
		NotionDatabaseID: GetString("NOTION_DATABASE_ID", ""),
		UndoWindow:       GetDuration("UNDO_WINDOW", 5*time.Second),
		JobQueueSize:     GetInt("JOB_QUEUE_SIZE", 100),
		JobMaxRetries:    GetInt("JOB_MAX_RETRIES", 3),
		JobWorkers:       GetInt("JOB_WORKERS", 2),
		JobRetention:     GetInt("JOB_RETENTION", 500),
		ExportInterval:   GetDuration("EXPORT_INTERVAL", 24*time.Hour),
		ExportJobs:       GetString("EXPORT_JOBS", "backup,bigquery_export,notion_sync"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that would fail later in a confusing way.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JobQueueSize < 1 {
		return fmt.Errorf("config: JOB_QUEUE_SIZE must be at least 1, got %d", c.JobQueueSize)
	}
	if c.UndoWindow <= 0 {
		return fmt.Errorf("config: UNDO_WINDOW must be positive, got %s", c.UndoWindow)
	}
	if c.ExportInterval <= 0 {
		return fmt.Errorf("config: EXPORT_INTERVAL must be positive, got %s", c.ExportInterval)
	}
	return nil
}

// NotionEnabled reports whether the Notion mirror is configured.
func (c Config) NotionEnabled() bool {
	return c.NotionToken != "" && c.NotionDatabaseID != ""
}

func GetString(key, fallback string) string {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return val
}

func GetInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	valInt, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return valInt
}

// GetDuration accepts Go durations ("5s") or a bare number of seconds.
func GetDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
