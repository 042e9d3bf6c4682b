// Package jobs runs exports in the background: BigQuery snapshots, the Notion
// mirror and GCS backups.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned by JobStore.GetJob.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeBigQueryExport snapshots entries and summaries into BigQuery.
	JobTypeBigQueryExport JobType = "bigquery_export"
	// JobTypeNotionSync mirrors property summaries to Notion.
	JobTypeNotionSync JobType = "notion_sync"
	// JobTypeBackup uploads every entry to GCS.
	JobTypeBackup JobType = "backup"
)

// ParseJobType validates a job type name.
func ParseJobType(s string) (JobType, error) {
	switch t := JobType(s); t {
	case JobTypeBigQueryExport, JobTypeNotionSync, JobTypeBackup:
		return t, nil
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Final reports whether no further transition will happen.
func (s JobStatus) Final() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ExportJob is one export run.
type ExportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	Type JobType `json:"type"`

	// DryRun only applies to Notion syncs.
	DryRun bool `json:"dry_run,omitempty"`

	// Result is the export ID, backup URI or sync counts of a completed job.
	Result string `json:"result,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the last attempt failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues an export job.
	Publish(ctx context.Context, job *ExportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job and returns its result. A non-nil error makes
// the job eligible for a retry.
type JobHandler func(ctx context.Context, job *ExportJob) (string, error)

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExportJob) error

	// GetJob retrieves a job by ID. Unknown or evicted IDs give ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*ExportJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Type filters jobs by type.
	Type JobType

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
