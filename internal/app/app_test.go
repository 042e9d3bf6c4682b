package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/jobs"
	"github.com/rs/zerolog"
)

func TestOpen_MemoryWithoutBackends(t *testing.T) {
	cfg := config.Config{StoreDriver: config.DriverMemory}

	b, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	for _, typ := range []jobs.JobType{jobs.JobTypeBigQueryExport, jobs.JobTypeBackup, jobs.JobTypeNotionSync} {
		if b.Runner.Supports(typ) {
			t.Errorf("%s should be disabled", typ)
		}
	}
	if b.Notion != nil {
		t.Error("Notion should be nil without a token")
	}
}

func TestOpen_NotionOnly(t *testing.T) {
	cfg := config.Config{
		StoreDriver:      config.DriverMemory,
		NotionToken:      "secret",
		NotionDatabaseID: "db",
	}

	b, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	if b.Notion == nil || !b.Runner.Supports(jobs.JobTypeNotionSync) {
		t.Error("Expected the Notion sync to be enabled")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, closeStore, err := OpenStore(ctx, config.Config{
		StoreDriver: config.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "data", "imoveis.db"),
	})
	if err != nil {
		t.Fatalf("OpenStore(sqlite) failed: %v", err)
	}
	defer closeStore()

	e := domain.FinancialEntry{Cenario: domain.Projetado, Descricao: domain.FieldVenda}
	if _, err := st.AddEntry(ctx, e.WithMetadata(domain.DefaultMetadata("Casa", time.Now()))); err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	entries, err := st.ListEntries(ctx)
	if err != nil || len(entries) != 1 {
		t.Errorf("ListEntries = %d entries, %v", len(entries), err)
	}

	if _, _, err := OpenStore(ctx, config.Config{StoreDriver: "mongo"}); err == nil {
		t.Error("Expected an error for an unknown driver")
	}
}
