// Package notionsync mirrors property summaries to a Notion database, one page
// per property keyed by its name.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/jomei/notionapi"
)

// SyncResult counts what a sync did (or would do on a dry run).
type SyncResult struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Syncer writes to one Notion database.
type Syncer struct {
	pages PageService
}

// NewSyncer creates a Syncer on top of pages.
func NewSyncer(pages PageService) *Syncer {
	return &Syncer{pages: pages}
}

// SyncSummaries makes the database hold exactly one page per reported
// property. Pages of properties that no longer exist are archived. A failure
// on one page is logged and counted, the rest of the sync goes on.
func (s *Syncer) SyncSummaries(ctx context.Context, report []engine.PropertySummary, dryRun bool) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var res SyncResult

	byProperty := make(map[string][]engine.PropertySummary)
	var order []string
	for _, p := range report {
		if _, ok := byProperty[p.Imovel]; !ok {
			order = append(order, p.Imovel)
		}
		byProperty[p.Imovel] = append(byProperty[p.Imovel], p)
	}

	log.Info().
		Int("property_count", len(order)).
		Bool("dry_run", dryRun).
		Msg("Starting property sync to Notion")

	pages, err := listAllPages(ctx, s.pages)
	if err != nil {
		return res, fmt.Errorf("SyncSummaries: %w", err)
	}

	existing := make(map[string]notionapi.ObjectID)
	for _, page := range pages {
		name := extractImovel(page)
		if _, valid := byProperty[name]; name == "" || !valid {
			if dryRun {
				log.Info().Str("page_id", string(page.ID)).Str("imovel", name).Msg("[DRY RUN] Would archive stale Notion page")
				res.Deleted++
				continue
			}
			if err := s.pages.ArchivePage(ctx, page.ID); err != nil {
				log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
				res.Failed++
				continue
			}
			res.Deleted++
			continue
		}
		if _, dup := existing[name]; dup {
			// keep the first page, archive duplicates
			if !dryRun {
				if err := s.pages.ArchivePage(ctx, page.ID); err != nil {
					log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive duplicate Notion page")
					res.Failed++
					continue
				}
			}
			res.Deleted++
			continue
		}
		existing[name] = page.ID
	}

	for _, name := range order {
		props := PropertyToNotionProperties(name, byProperty[name])
		pageID, found := existing[name]

		if dryRun {
			if found {
				res.Updated++
			} else {
				res.Created++
			}
			log.Info().Str("imovel", name).Bool("exists", found).Msg("[DRY RUN] Would write Notion page")
			continue
		}

		if found {
			if err := s.pages.SetProperties(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("imovel", name).Str("page_id", string(pageID)).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		id, err := s.pages.CreatePage(ctx, props)
		if err != nil {
			log.Warn().Err(err).Str("imovel", name).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("imovel", name).Str("page_id", string(id)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("Property sync completed")
	return res, nil
}

// PropertyRenamed retitles the page of oldName so the next sync updates it in
// place instead of archiving it. It implements store.RenameListener.
func (s *Syncer) PropertyRenamed(ctx context.Context, oldName, newName string) error {
	pages, err := listAllPages(ctx, s.pages)
	if err != nil {
		return fmt.Errorf("PropertyRenamed: %w", err)
	}
	for _, page := range pages {
		if extractImovel(page) != oldName {
			continue
		}
		props := notionapi.Properties{TitleColumn: titleProperty(newName)}
		if err := s.pages.SetProperties(ctx, page.ID, props); err != nil {
			return fmt.Errorf("PropertyRenamed: %w", err)
		}
		log := logger.FromContext(ctx)
		log.Info().
			Str("old_name", oldName).
			Str("new_name", newName).
			Str("page_id", string(page.ID)).
			Msg("Renamed Notion page")
	}
	return nil
}

// listAllPages follows the cursor until the database is exhausted.
func listAllPages(ctx context.Context, svc PageService) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		batch, err := svc.ListPages(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("listAllPages: %w", err)
		}
		all = append(all, batch.Pages...)
		if batch.Next == "" {
			return all, nil
		}
		cursor = batch.Next
	}
}

// Ensure Syncer implements RenameListener interface.
var _ store.RenameListener = (*Syncer)(nil)
