package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of EntryStore.
// It keeps entries in insertion order and is safe for concurrent use.
// Data is lost on restart - for persistence, use the SQL-backed store.
type Store struct {
	mu      sync.RWMutex
	entries []domain.FinancialEntry
}

// NewStore creates a new in-memory entry store seeded with entries.
func NewStore(entries ...domain.FinancialEntry) *Store {
	s := &Store{}
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		s.entries = append(s.entries, e.Clone())
	}
	return s
}

// ListEntries implements the EntryStore interface.
// It returns copies so callers cannot mutate stored entries.
func (s *Store) ListEntries(ctx context.Context) ([]domain.FinancialEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.FinancialEntry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e.Clone())
	}
	return result, nil
}

// AddEntry implements the EntryStore interface.
func (s *Store) AddEntry(ctx context.Context, entry domain.FinancialEntry) (domain.FinancialEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.New().String()
	s.entries = append(s.entries, entry.Clone())
	return entry.Clone(), nil
}

// UpdateEntry implements the EntryStore interface.
func (s *Store) UpdateEntry(ctx context.Context, entry domain.FinancialEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = entry.Clone()
			return nil
		}
	}
	return fmt.Errorf("entry %s: %w", entry.ID, store.ErrNotFound)
}

// DeleteEntriesByImovel implements the EntryStore interface.
func (s *Store) DeleteEntriesByImovel(ctx context.Context, imovel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.Imovel != imovel {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

// RestoreEntries implements the EntryStore interface.
// Entries whose ID already exists are replaced rather than duplicated.
func (s *Store) RestoreEntries(ctx context.Context, entries []domain.FinancialEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := make(map[string]int, len(s.entries))
	for i, e := range s.entries {
		index[e.ID] = i
	}
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if i, ok := index[e.ID]; ok {
			s.entries[i] = e.Clone()
			continue
		}
		index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e.Clone())
	}
	return nil
}

// DuplicateImovel implements the EntryStore interface.
func (s *Store) DuplicateImovel(ctx context.Context, imovel string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newName := store.UniqueName(imovel+" (cópia)", store.Names(s.entries))

	var copies []domain.FinancialEntry
	for _, e := range s.entries {
		if e.Imovel != imovel {
			continue
		}
		c := e.Clone()
		c.ID = uuid.New().String()
		c.Imovel = newName
		copies = append(copies, c)
	}
	if len(copies) == 0 {
		return "", fmt.Errorf("imovel %q: %w", imovel, store.ErrNotFound)
	}
	s.entries = append(s.entries, copies...)
	return newName, nil
}

// UpdateImovelStatus implements the EntryStore interface.
func (s *Store) UpdateImovelStatus(ctx context.Context, imovel string, status domain.StatusImovel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].Imovel == imovel {
			s.entries[i].StatusImovel = status
		}
	}
	return nil
}

// RenameImovelGlobal implements the EntryStore interface.
func (s *Store) RenameImovelGlobal(ctx context.Context, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].Imovel == oldName {
			s.entries[i].Imovel = newName
		}
	}
	return nil
}

// Ensure Store implements EntryStore interface.
var _ store.EntryStore = (*Store)(nil)
