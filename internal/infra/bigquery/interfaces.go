package bigquery

import "context"

// Repository provides the warehouse operations used by the export job.
type Repository interface {
	// EnsureTables creates the dataset and tables when missing.
	EnsureTables(ctx context.Context) error

	// InsertEntries streams a batch of EntryRow into the entries table.
	InsertEntries(ctx context.Context, rows []*EntryRow) error

	// InsertSummaries streams a batch of SummaryRow into the summaries table.
	InsertSummaries(ctx context.Context, rows []*SummaryRow) error

	// SummaryHistory returns the latest exported summaries of a property,
	// newest first.
	SummaryHistory(ctx context.Context, imovel string, limit int) ([]*SummaryRow, error)

	// Close releases the underlying client.
	Close() error
}
