// Command migrate applies the SQL entry store migrations, or lists their
// status.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/config"
	"github.com/dvloznov/imoveis-tracker/internal/infra/sqlstore"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
)

var (
	envFile   = flag.String("env", "", "Optional .env file (defaults to ./.env when present)")
	driver    = flag.String("store", "", "postgres or sqlite (defaults to STORE_DRIVER)")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	status    = flag.Bool("status", false, "List migrations and whether they were applied, without running any")
)

func main() {
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *driver != "" {
		cfg.StoreDriver = *driver
	}

	log := logger.NewForFormat(cfg.LogFormat, cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var sqlDriver, dsn string
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		sqlDriver, dsn = sqlstore.DriverPostgres, cfg.DatabaseURL
	case config.DriverSQLite:
		sqlDriver, dsn = sqlstore.DriverSQLite, cfg.SQLitePath
	default:
		log.Fatal().Str("store", cfg.StoreDriver).Msg("Migrations only apply to the postgres and sqlite stores")
	}

	s, err := sqlstore.Connect(ctx, sqlDriver, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer s.Close()

	log.Info().Str("store", cfg.StoreDriver).Msg("Connected")

	if *status {
		if err := printStatus(ctx, os.Stdout, s); err != nil {
			log.Fatal().Err(err).Msg("Failed to read migration status")
		}
		return
	}

	ran, err := s.Migrate(ctx, *appliedBy)
	for _, m := range ran {
		fmt.Printf("  [OK]   %04d_%s\n", m.Version, m.Name)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if len(ran) == 0 {
		fmt.Println("No new migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("Successfully applied %d migration(s)\n", len(ran))
	}
}

// printStatus writes one line per known migration.
func printStatus(ctx context.Context, w io.Writer, s *sqlstore.Store) error {
	migrations, err := sqlstore.Migrations()
	if err != nil {
		return err
	}
	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(w, statusLines(migrations, applied))
	return nil
}

func statusLines(migrations []sqlstore.Migration, applied []sqlstore.AppliedMigration) string {
	byVersion := make(map[int]sqlstore.AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}

	var out string
	for _, m := range migrations {
		am, ok := byVersion[m.Version]
		switch {
		case !ok:
			out += fmt.Sprintf("  [PENDING]  %04d_%s\n", m.Version, m.Name)
		case am.Checksum != m.Checksum:
			out += fmt.Sprintf("  [MODIFIED] %04d_%s (applied %s by %s)\n", m.Version, m.Name, am.AppliedAt.Format(time.RFC3339), am.AppliedBy)
		default:
			out += fmt.Sprintf("  [APPLIED]  %04d_%s (%s by %s)\n", m.Version, m.Name, am.AppliedAt.Format(time.RFC3339), am.AppliedBy)
		}
	}
	return out
}
