// Package bigquery snapshots entries and property summaries into BigQuery so
// the portfolio can be charted over time.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	entriesTable   = "financial_entries"
	summariesTable = "property_summaries"
)

// BigQueryRepository is the concrete implementation of Repository. It holds a
// shared BigQuery client.
type BigQueryRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryRepository creates a repository writing to projectID.datasetID.
func NewBigQueryRepository(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*BigQueryRepository, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("NewBigQueryRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRepository: creating client: %w", err)
	}
	return &BigQueryRepository{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// EnsureTables creates the dataset and both day-partitioned tables if they do
// not exist yet.
func (r *BigQueryRepository) EnsureTables(ctx context.Context) error {
	ds := r.client.DatasetInProject(r.projectID, r.datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("EnsureTables: dataset metadata: %w", err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isStatus(err, http.StatusConflict) {
			return fmt.Errorf("EnsureTables: creating dataset: %w", err)
		}
	}

	tables := []struct {
		name string
		row  any
	}{
		{entriesTable, EntryRow{}},
		{summariesTable, SummaryRow{}},
	}
	for _, t := range tables {
		schema, err := bigquery.InferSchema(t.row)
		if err != nil {
			return fmt.Errorf("EnsureTables: inferring %s schema: %w", t.name, err)
		}
		meta := &bigquery.TableMetadata{
			Schema: schema,
			TimePartitioning: &bigquery.TimePartitioning{
				Type:  bigquery.DayPartitioningType,
				Field: "exported_ts",
			},
		}
		if err := ds.Table(t.name).Create(ctx, meta); err != nil && !isStatus(err, http.StatusConflict) {
			return fmt.Errorf("EnsureTables: creating %s: %w", t.name, err)
		}
	}
	return nil
}

// InsertEntries implements Repository.
func (r *BigQueryRepository) InsertEntries(ctx context.Context, rows []*EntryRow) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(entriesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertEntries: inserting rows: %w", err)
	}
	return nil
}

// InsertSummaries implements Repository.
func (r *BigQueryRepository) InsertSummaries(ctx context.Context, rows []*SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(summariesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertSummaries: inserting rows: %w", err)
	}
	return nil
}

// SummaryHistory implements Repository.
func (r *BigQueryRepository) SummaryHistory(ctx context.Context, imovel string, limit int) ([]*SummaryRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT
			export_id,
			imovel,
			cenario,
			status_imovel,
			tipo_compra,
			num_cotistas,
			data_compra,
			data_venda,
			lucro_total,
			lucro_por_cota,
			custo_investimento,
			roi_total,
			roi_mensal,
			duration_months,
			exported_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE imovel = @imovel
		ORDER BY exported_ts DESC
		LIMIT @limit
	`, r.projectID, r.datasetID, summariesTable)

	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "imovel", Value: imovel},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SummaryHistory: reading query: %w", err)
	}

	var rows []*SummaryRow
	for {
		var row SummaryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SummaryHistory: iterating: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

// Export writes one snapshot of every entry and every property summary and
// returns its export ID.
func Export(ctx context.Context, repo Repository, entries []domain.FinancialEntry, now time.Time) (string, error) {
	log := logger.FromContext(ctx)

	if err := repo.EnsureTables(ctx); err != nil {
		return "", fmt.Errorf("Export: %w", err)
	}

	exportID := uuid.NewString()
	ts := now.UTC()
	entryRows := NewEntryRows(exportID, entries, ts)
	summaryRows := NewSummaryRows(exportID, engine.Report(entries, now), ts)

	if err := repo.InsertEntries(ctx, entryRows); err != nil {
		return "", fmt.Errorf("Export: %w", err)
	}
	if err := repo.InsertSummaries(ctx, summaryRows); err != nil {
		return "", fmt.Errorf("Export: %w", err)
	}

	log.Info().
		Str("export_id", exportID).
		Int("entries", len(entryRows)).
		Int("summaries", len(summaryRows)).
		Msg("Exported snapshot to BigQuery")
	return exportID, nil
}

// Ensure BigQueryRepository implements Repository interface.
var _ Repository = (*BigQueryRepository)(nil)
