// Package sqlstore persists entries in a SQL database through database/sql.
// Postgres is reached through the pgx driver and local files through the
// pure Go SQLite driver; both share one schema, kept in migrations/.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"

	dateLayout = "2006-01-02"
)

const columns = `id, seq, imovel, cenario, tipo_despesa, descricao, fluxo_caixa, cota, referencia,
	estado, cidade, tipo_compra, vendido, num_cotistas, data_compra, data_venda, status_imovel`

// Store implements store.EntryStore on a SQL database.
type Store struct {
	db     *sql.DB
	driver string
}

// Connect opens a database with the given driver without touching the
// schema.
func Connect(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// A single connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &Store{db: db, driver: driver}, nil
}

// Open connects and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	s, err := Connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := s.Migrate(ctx, "sqlstore"); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a Postgres store.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	return Open(ctx, DriverPostgres, dsn)
}

// OpenSQLite opens (creating if needed) a SQLite file store.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "imoveis.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return Open(ctx, DriverSQLite, path)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.FinancialEntry, error) {
	var (
		e               domain.FinancialEntry
		seq             int64
		cenario, tipo   string
		tipoCompra      string
		vendido, status string
		compra          string
		venda           sql.NullString
	)
	err := row.Scan(&e.ID, &seq, &e.Imovel, &cenario, &tipo, &e.Descricao, &e.FluxoCaixa, &e.Cota, &e.Referencia,
		&e.Estado, &e.Cidade, &tipoCompra, &vendido, &e.NumCotistas, &compra, &venda, &status)
	if err != nil {
		return e, err
	}
	e.Cenario = domain.Cenario(cenario)
	e.TipoDespesa = domain.TipoDespesa(tipo)
	e.TipoCompra = domain.TipoCompra(tipoCompra)
	e.Vendido = domain.Vendido(vendido)
	e.StatusImovel = domain.StatusImovel(status)

	if compra != "" {
		if e.DataCompra, err = time.Parse(dateLayout, compra); err != nil {
			return e, fmt.Errorf("entry %s: data_compra: %w", e.ID, err)
		}
	}
	if venda.Valid && venda.String != "" {
		t, err := time.Parse(dateLayout, venda.String)
		if err != nil {
			return e, fmt.Errorf("entry %s: data_venda: %w", e.ID, err)
		}
		e.DataVenda = &t
	}
	return e, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func formatOptionalDate(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

// values lists e in the order of columns.
func values(e domain.FinancialEntry, seq int64) []any {
	return []any{
		e.ID, seq, e.Imovel, string(e.Cenario), string(e.TipoDespesa), e.Descricao, e.FluxoCaixa, e.Cota, e.Referencia,
		e.Estado, e.Cidade, string(e.TipoCompra), string(e.Vendido), e.NumCotistas,
		formatDate(e.DataCompra), formatOptionalDate(e.DataVenda), string(e.StatusImovel),
	}
}

const placeholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

// execer is implemented by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) nextSeq(ctx context.Context, q execer) (int64, error) {
	var seq int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM financial_entries`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

func (s *Store) insert(ctx context.Context, q execer, e domain.FinancialEntry, seq int64) error {
	query := s.rebind(`INSERT INTO financial_entries (` + columns + `) VALUES (` + placeholders + `)`)
	if _, err := q.ExecContext(ctx, query, values(e, seq)...); err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	return nil
}

// ListEntries implements the EntryStore interface.
func (s *Store) ListEntries(ctx context.Context) ([]domain.FinancialEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM financial_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("ListEntries: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []domain.FinancialEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ListEntries: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEntries: rows: %w", err)
	}
	return entries, nil
}

// AddEntry implements the EntryStore interface.
func (s *Store) AddEntry(ctx context.Context, entry domain.FinancialEntry) (domain.FinancialEntry, error) {
	entry.ID = uuid.New().String()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		return s.insert(ctx, tx, entry, seq)
	})
	if err != nil {
		return domain.FinancialEntry{}, fmt.Errorf("AddEntry: %w", err)
	}
	return entry, nil
}

// UpdateEntry implements the EntryStore interface.
func (s *Store) UpdateEntry(ctx context.Context, entry domain.FinancialEntry) error {
	query := s.rebind(`UPDATE financial_entries SET
		imovel = ?, cenario = ?, tipo_despesa = ?, descricao = ?, fluxo_caixa = ?, cota = ?, referencia = ?,
		estado = ?, cidade = ?, tipo_compra = ?, vendido = ?, num_cotistas = ?, data_compra = ?, data_venda = ?,
		status_imovel = ?
		WHERE id = ?`)
	args := values(entry, 0)[2:]
	args = append(args, entry.ID)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("UpdateEntry: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateEntry: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateEntry: entry %s: %w", entry.ID, store.ErrNotFound)
	}
	return nil
}

// DeleteEntriesByImovel implements the EntryStore interface.
func (s *Store) DeleteEntriesByImovel(ctx context.Context, imovel string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM financial_entries WHERE imovel = ?`), imovel); err != nil {
		return fmt.Errorf("DeleteEntriesByImovel: %w", err)
	}
	return nil
}

// RestoreEntries implements the EntryStore interface. Entries whose ID
// already exists are overwritten.
func (s *Store) RestoreEntries(ctx context.Context, entries []domain.FinancialEntry) error {
	upsert := s.rebind(`INSERT INTO financial_entries (` + columns + `) VALUES (` + placeholders + `)
		ON CONFLICT (id) DO UPDATE SET
		imovel = excluded.imovel, cenario = excluded.cenario, tipo_despesa = excluded.tipo_despesa,
		descricao = excluded.descricao, fluxo_caixa = excluded.fluxo_caixa, cota = excluded.cota,
		referencia = excluded.referencia, estado = excluded.estado, cidade = excluded.cidade,
		tipo_compra = excluded.tipo_compra, vendido = excluded.vendido, num_cotistas = excluded.num_cotistas,
		data_compra = excluded.data_compra, data_venda = excluded.data_venda, status_imovel = excluded.status_imovel`)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		for i, e := range entries {
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			if _, err := tx.ExecContext(ctx, upsert, values(e, seq+int64(i))...); err != nil {
				return fmt.Errorf("upsert entry %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("RestoreEntries: %w", err)
	}
	return nil
}

// DuplicateImovel implements the EntryStore interface.
func (s *Store) DuplicateImovel(ctx context.Context, imovel string) (string, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return "", fmt.Errorf("DuplicateImovel: %w", err)
	}
	newName := store.UniqueName(imovel+" (cópia)", store.Names(entries))

	var copies []domain.FinancialEntry
	for _, e := range entries {
		if e.Imovel != imovel {
			continue
		}
		e.ID = uuid.New().String()
		e.Imovel = newName
		copies = append(copies, e)
	}
	if len(copies) == 0 {
		return "", fmt.Errorf("DuplicateImovel: imovel %q: %w", imovel, store.ErrNotFound)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx)
		if err != nil {
			return err
		}
		for i, c := range copies {
			if err := s.insert(ctx, tx, c, seq+int64(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("DuplicateImovel: %w", err)
	}
	return newName, nil
}

// UpdateImovelStatus implements the EntryStore interface.
func (s *Store) UpdateImovelStatus(ctx context.Context, imovel string, status domain.StatusImovel) error {
	query := s.rebind(`UPDATE financial_entries SET status_imovel = ? WHERE imovel = ?`)
	if _, err := s.db.ExecContext(ctx, query, string(status), imovel); err != nil {
		return fmt.Errorf("UpdateImovelStatus: %w", err)
	}
	return nil
}

// RenameImovelGlobal implements the EntryStore interface.
func (s *Store) RenameImovelGlobal(ctx context.Context, oldName, newName string) error {
	query := s.rebind(`UPDATE financial_entries SET imovel = ? WHERE imovel = ?`)
	if _, err := s.db.ExecContext(ctx, query, newName, oldName); err != nil {
		return fmt.Errorf("RenameImovelGlobal: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ensure Store implements EntryStore interface.
var _ store.EntryStore = (*Store)(nil)
