package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/dvloznov/imoveis-tracker/internal/gcsuploader"
	"github.com/dvloznov/imoveis-tracker/internal/infra/bigquery"
	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/dvloznov/imoveis-tracker/internal/money"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

var exportCommands = []subcommands.Command{
	&exportJobCmd{name: "export-bq", typ: jobs.JobTypeBigQueryExport, synopsis: "write a snapshot of entries and summaries to BigQuery"},
	&exportJobCmd{name: "backup", typ: jobs.JobTypeBackup, synopsis: "back up every entry to GCS as JSON lines"},
	&exportJobCmd{name: "notion-sync", typ: jobs.JobTypeNotionSync, synopsis: "mirror property summaries to Notion"},
	&restoreCmd{},
	&historyCmd{},
}

// exportJobCmd runs one export job in the foreground.
type exportJobCmd struct {
	name     string
	typ      jobs.JobType
	synopsis string
	dryRun   bool
}

func (c *exportJobCmd) Name() string     { return c.name }
func (c *exportJobCmd) Synopsis() string { return c.synopsis }
func (c *exportJobCmd) Usage() string {
	flags := ""
	if c.typ == jobs.JobTypeNotionSync {
		flags = " [-dry-run]"
	}
	return fmt.Sprintf("cli %s%s\n\n  Runs the %s job once and prints its result.\n", c.name, flags, c.typ)
}

func (c *exportJobCmd) SetFlags(f *flag.FlagSet) {
	if c.typ == jobs.JobTypeNotionSync {
		f.BoolVar(&c.dryRun, "dry-run", false, "Report what would change without writing to Notion")
	}
}

func (c *exportJobCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	job := &jobs.ExportJob{JobID: uuid.NewString(), Type: c.typ, DryRun: c.dryRun}
	result, err := rt.backends.Runner.Handle(ctx, job)
	if err != nil {
		return fail(err)
	}
	fmt.Println(result)
	return subcommands.ExitSuccess
}

type restoreCmd struct{}

func (*restoreCmd) Name() string     { return "restore" }
func (*restoreCmd) Synopsis() string { return "restore entries from a GCS backup" }
func (*restoreCmd) Usage() string {
	return `cli restore gs://<bucket>/backups/<file>.jsonl

  Reinserts every entry of the backup, keeping their IDs. Entries that still
  exist are overwritten with the backed up values.
`
}
func (*restoreCmd) SetFlags(*flag.FlagSet) {}

func (*restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "restore takes one gs:// URI")
	}
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	// the bucket comes from the URI, GCS_BUCKET may be unset
	svc := rt.backends.Runner.Storage
	if svc == nil {
		gcs, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			return fail(err)
		}
		defer gcs.Close()
		svc = gcs
	}
	entries, err := gcsuploader.Restore(ctx, svc, f.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := rt.backends.Store.RestoreEntries(ctx, entries); err != nil {
		return fail(err)
	}
	fmt.Printf("Restored %d entries\n", len(entries))
	return subcommands.ExitSuccess
}

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the exported summaries of a property" }
func (*historyCmd) Usage() string {
	return `cli history [-n 12] <imovel>

  Lists the summaries written by past BigQuery exports, newest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 12, "Number of exports to show")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "history takes one property name")
	}
	rt, ctx, err := openRuntime(ctx, "", "")
	if err != nil {
		return fail(err)
	}
	defer rt.close()

	repo := rt.backends.Runner.BigQuery
	if repo == nil {
		return fail(fmt.Errorf("history: %w", jobs.ErrNotConfigured))
	}
	rows, err := repo.SummaryHistory(ctx, f.Arg(0), c.limit)
	if err != nil {
		return fail(err)
	}
	printMarkdown(historyMarkdown(f.Arg(0), rows))
	return subcommands.ExitSuccess
}

func historyMarkdown(imovel string, rows []*bigquery.SummaryRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Histórico de %s\n\n", imovel)
	if len(rows) == 0 {
		b.WriteString("Nenhuma exportação encontrada.\n")
		return b.String()
	}
	fmt.Fprintln(&b, "| Exportado em | Cenário | Lucro Total | ROI Total | ROI Mensal |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
	for _, r := range rows {
		lucro := 0.0
		if r.LucroTotal != nil {
			lucro, _ = r.LucroTotal.Float64()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			r.ExportedTS.Format("02/01/2006 15:04"),
			r.Cenario,
			money.Format(lucro),
			money.FormatPercent(r.RoiTotal, 2),
			money.FormatPercent(r.RoiMensal, 2),
		)
	}
	return b.String()
}
