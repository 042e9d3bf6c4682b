package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/gcsuploader"
	"github.com/dvloznov/imoveis-tracker/internal/infra/bigquery"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
	"github.com/dvloznov/imoveis-tracker/internal/notionsync"
	"github.com/dvloznov/imoveis-tracker/internal/store"
)

// ErrNotConfigured is returned for a job type whose backend was not set up.
var ErrNotConfigured = errors.New("job backend not configured")

// Runner executes export jobs against the entry store. Nil backends disable
// the matching job type.
type Runner struct {
	Store    store.EntryStore
	BigQuery bigquery.Repository
	Notion   *notionsync.Syncer
	Storage  gcsuploader.StorageService
	Bucket   string
	Now      func() time.Time
}

// Supports reports whether the backend of t is configured.
func (r *Runner) Supports(t JobType) bool {
	switch t {
	case JobTypeBigQueryExport:
		return r.BigQuery != nil
	case JobTypeNotionSync:
		return r.Notion != nil
	case JobTypeBackup:
		return r.Storage != nil && r.Bucket != ""
	}
	return false
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Handle is a JobHandler.
func (r *Runner) Handle(ctx context.Context, job *ExportJob) (string, error) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("job_type", string(job.Type)).
		Int("attempt", job.RetryCount+1).
		Logger()
	ctx = logger.WithContext(ctx, log)

	if !r.Supports(job.Type) {
		return "", fmt.Errorf("%s: %w", job.Type, ErrNotConfigured)
	}

	entries, err := r.Store.ListEntries(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: list entries: %w", job.Type, err)
	}
	now := r.now()

	switch job.Type {
	case JobTypeBigQueryExport:
		return bigquery.Export(ctx, r.BigQuery, entries, now)
	case JobTypeNotionSync:
		res, err := r.Notion.SyncSummaries(ctx, engine.Report(entries, now), job.DryRun)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("created=%d updated=%d deleted=%d failed=%d", res.Created, res.Updated, res.Deleted, res.Failed), nil
	case JobTypeBackup:
		return gcsuploader.Backup(ctx, r.Storage, r.Bucket, entries, now)
	}
	return "", fmt.Errorf("unknown job type %q", job.Type)
}
