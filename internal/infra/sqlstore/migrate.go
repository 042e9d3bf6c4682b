package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrChecksumMismatch is returned when an applied migration file was edited
// afterwards.
var ErrChecksumMismatch = errors.New("applied migration was modified")

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

const schemaMigrationsDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_by TEXT NOT NULL
)`

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Migrations returns the embedded migrations sorted by version.
func Migrations() ([]Migration, error) {
	return readMigrations(migrationsFS, "migrations")
}

func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			return nil, fmt.Errorf("invalid migration file name %q", file.Name())
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %q: %w", file.Name(), err)
		}

		content, err := fs.ReadFile(fsys, dir+"/"+file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %04d", migrations[i].Version)
		}
	}
	return migrations, nil
}

// statements splits a migration into its statements. Migrations must not put
// semicolons inside literals.
func statements(sqlText string) []string {
	var out []string
	for _, stmt := range strings.Split(sqlText, ";") {
		if strings.TrimSpace(stripComments(stmt)) != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// AppliedMigrations lists the migrations recorded in schema_migrations.
func (s *Store) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	if _, err := s.db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return nil, fmt.Errorf("AppliedMigrations: ensure table: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, name, applied_at, checksum, applied_by FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: query: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			am        AppliedMigration
			appliedAt string
		)
		if err := rows.Scan(&am.Version, &am.Name, &appliedAt, &am.Checksum, &am.AppliedBy); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scan: %w", err)
		}
		am.AppliedAt, err = time.Parse(time.RFC3339, appliedAt)
		if err != nil {
			return nil, fmt.Errorf("AppliedMigrations: applied_at of %04d: %w", am.Version, err)
		}
		applied = append(applied, am)
	}
	return applied, rows.Err()
}

// Migrate applies the pending embedded migrations, each in its own
// transaction, and returns those it ran.
func (s *Store) Migrate(ctx context.Context, appliedBy string) ([]Migration, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	return s.migrate(ctx, migrations, appliedBy)
}

func (s *Store) migrate(ctx context.Context, migrations []Migration, appliedBy string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	checksums := make(map[int]string, len(applied))
	for _, am := range applied {
		checksums[am.Version] = am.Checksum
	}

	var ran []Migration
	for _, m := range migrations {
		if sum, ok := checksums[m.Version]; ok {
			if sum != m.Checksum {
				return ran, fmt.Errorf("Migrate: %04d_%s: %w", m.Version, m.Name, ErrChecksumMismatch)
			}
			continue
		}

		err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range statements(m.SQL) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO schema_migrations (version, name, applied_at, checksum, applied_by) VALUES (?, ?, ?, ?, ?)`),
				m.Version, m.Name, time.Now().UTC().Format(time.RFC3339), m.Checksum, appliedBy)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("Migrate: %04d_%s: %w", m.Version, m.Name, err)
		}

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
		ran = append(ran, m)
	}
	return ran, nil
}
