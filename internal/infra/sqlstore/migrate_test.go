package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestReadMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		want    []string
		wantErr bool
	}{
		{
			name: "sorted by version",
			files: fstest.MapFS{
				"m/0002_b.sql": {Data: []byte("SELECT 2;")},
				"m/0001_a.sql": {Data: []byte("SELECT 1;")},
			},
			want: []string{"a", "b"},
		},
		{
			name:    "bad file name",
			files:   fstest.MapFS{"m/001_short.sql": {Data: []byte("SELECT 1;")}},
			wantErr: true,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/0001_a.sql": {Data: []byte("SELECT 1;")},
				"m/0001_b.sql": {Data: []byte("SELECT 2;")},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readMigrations(tt.files, "m")
			if (err != nil) != tt.wantErr {
				t.Fatalf("readMigrations error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d migrations, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name || got[i].Checksum == "" {
					t.Errorf("migration %d = %+v, want name %q", i, got[i], name)
				}
			}
		})
	}
}

func TestStatements(t *testing.T) {
	got := statements("-- header\nCREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n-- trailing\n")
	if len(got) != 2 {
		t.Errorf("got %d statements, want 2: %q", len(got), got)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %s has version %d, want %d", m.Filename, m.Version, i+1)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "imoveis.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	all, _ := Migrations()
	if len(applied) != len(all) {
		t.Fatalf("Open applied %d migrations, want %d", len(applied), len(all))
	}
	if applied[0].AppliedBy != "sqlstore" || applied[0].AppliedAt.IsZero() {
		t.Errorf("Unexpected record %+v", applied[0])
	}

	ran, err := s.Migrate(ctx, "test")
	if err != nil || len(ran) != 0 {
		t.Errorf("second Migrate ran %d migrations, err %v", len(ran), err)
	}
}

func TestMigrate_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "imoveis.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	all, _ := Migrations()
	edited := append([]Migration(nil), all...)
	edited[0].Checksum = "edited"

	if _, err := s.migrate(ctx, edited, "test"); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Expected ErrChecksumMismatch, got %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "imoveis.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer s.Close()

	bad := Migration{Version: 99, Name: "broken", SQL: "CREATE TABLE ok_table (x INT); NOT SQL;", Checksum: "x"}
	all, _ := Migrations()
	if _, err := s.migrate(ctx, append(all, bad), "test"); err == nil {
		t.Fatal("Expected the broken migration to fail")
	}

	applied, _ := s.AppliedMigrations(ctx)
	for _, am := range applied {
		if am.Version == 99 {
			t.Error("failed migration must not be recorded")
		}
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ok_table'`).Scan(&n); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 0 {
		t.Error("statements of a failed migration must be rolled back")
	}
}
