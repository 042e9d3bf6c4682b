// Package store defines the persistence contract consumed by the engine.
package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// ErrNotFound is returned when an entry or property does not exist.
var ErrNotFound = errors.New("not found")

// EntryStore provides the entry operations the engine relies on. Implementations
// must make writes visible to the next ListEntries call.
type EntryStore interface {
	// ListEntries returns every entry of every property.
	ListEntries(ctx context.Context) ([]domain.FinancialEntry, error)

	// AddEntry inserts a new entry and returns it with its assigned ID.
	AddEntry(ctx context.Context, entry domain.FinancialEntry) (domain.FinancialEntry, error)

	// UpdateEntry replaces the entry with the same ID.
	UpdateEntry(ctx context.Context, entry domain.FinancialEntry) error

	// DeleteEntriesByImovel removes every entry of a property in both scenarios.
	DeleteEntriesByImovel(ctx context.Context, imovel string) error

	// RestoreEntries reinserts previously deleted entries, keeping their IDs.
	RestoreEntries(ctx context.Context, entries []domain.FinancialEntry) error

	// DuplicateImovel clones every entry of a property under a new unique name
	// and returns that name.
	DuplicateImovel(ctx context.Context, imovel string) (string, error)

	// UpdateImovelStatus sets the status of every entry of a property.
	UpdateImovelStatus(ctx context.Context, imovel string, status domain.StatusImovel) error

	// RenameImovelGlobal rewrites the property key on every entry.
	RenameImovelGlobal(ctx context.Context, oldName, newName string) error
}

// RenameListener is notified after a property was renamed so that property-keyed
// linkage held outside the entry store stays in sync.
type RenameListener interface {
	PropertyRenamed(ctx context.Context, oldName, newName string) error
}

// Names returns the distinct property names found in entries.
func Names(entries []domain.FinancialEntry) map[string]bool {
	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Imovel] = true
	}
	return names
}

// UniqueName tries base, "base 2", "base 3", ... until a name absent from
// existing is found.
func UniqueName(base string, existing map[string]bool) string {
	if !existing[base] {
		return base
	}
	for i := 2; ; i++ {
		name := base + " " + strconv.Itoa(i)
		if !existing[name] {
			return name
		}
	}
}
