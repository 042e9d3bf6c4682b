// Package app builds the entry store and export backends selected by the
// configuration. Both binaries start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/gcsuploader"
	"github.com/dvloznov/imoveis-tracker/internal/infra/bigquery"
	"github.com/dvloznov/imoveis-tracker/internal/infra/sqlstore"
	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/dvloznov/imoveis-tracker/internal/notionsync"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/dvloznov/imoveis-tracker/internal/store/inmemory"
	"github.com/rs/zerolog"
)

// Backends holds everything opened for one process.
type Backends struct {
	Store  store.EntryStore
	Runner *jobs.Runner
	// Notion is nil unless NOTION_TOKEN and NOTION_DATABASE_ID are set.
	Notion *notionsync.Syncer

	closers []func() error
}

// OpenStore opens the entry store named by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg config.Config) (store.EntryStore, func() error, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return inmemory.NewStore(), func() error { return nil }, nil
	case config.DriverPostgres:
		st, err := sqlstore.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		return st, st.Close, nil
	case config.DriverSQLite:
		st, err := sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("OpenStore: %w", err)
		}
		return st, st.Close, nil
	}
	return nil, nil, fmt.Errorf("OpenStore: unknown driver %q", cfg.StoreDriver)
}

// Open opens the store and every configured export backend. A backend that
// fails to start is logged and left disabled; only a store failure is fatal.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Backends, error) {
	st, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b := &Backends{
		Store:   st,
		Runner:  &jobs.Runner{Store: st, Bucket: cfg.GCSBucket, Now: time.Now},
		closers: []func() error{closeStore},
	}

	if cfg.GCPProject != "" {
		repo, err := bigquery.NewBigQueryRepository(ctx, cfg.GCPProject, cfg.BQDataset)
		if err != nil {
			log.Warn().Err(err).Msg("BigQuery export disabled")
		} else {
			b.Runner.BigQuery = repo
			b.closers = append(b.closers, repo.Close)
		}
	} else {
		log.Warn().Msg("No GCP project configured - BigQuery export will be disabled")
	}

	if cfg.GCSBucket != "" {
		svc, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("GCS backups disabled")
		} else {
			b.Runner.Storage = svc
			b.closers = append(b.closers, svc.Close)
		}
	} else {
		log.Warn().Msg("No GCS bucket configured - backups will be disabled")
	}

	if cfg.NotionEnabled() {
		b.Notion = notionsync.NewSyncer(notionsync.NewClient(cfg.NotionToken, cfg.NotionDatabaseID))
		b.Runner.Notion = b.Notion
	}

	log.Info().
		Str("store", cfg.StoreDriver).
		Bool("bigquery", b.Runner.Supports(jobs.JobTypeBigQueryExport)).
		Bool("backup", b.Runner.Supports(jobs.JobTypeBackup)).
		Bool("notion", b.Runner.Supports(jobs.JobTypeNotionSync)).
		Msg("Backends ready")
	return b, nil
}

// Close closes every opened backend, the store last.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
