package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/store"
)

// NewPropertyBase is the base name of a created property.
const NewPropertyBase = "Novo Imóvel"

// PropertyList groups property names by status, each group sorted.
type PropertyList struct {
	All         []string `json:"all"`
	EmAndamento []string `json:"emAndamento"`
	Finalizados []string `json:"finalizados"`
}

// Properties lists every property.
func (s *Session) Properties(ctx context.Context) (PropertyList, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return PropertyList{}, fmt.Errorf("Properties: list entries: %w", err)
	}
	statuses := statusByProperty(entries)
	list := PropertyList{All: propertyNames(entries)}
	for _, name := range list.All {
		if statuses[name] == domain.Finalizado {
			list.Finalizados = append(list.Finalizados, name)
		} else {
			list.EmAndamento = append(list.EmAndamento, name)
		}
	}
	return list, nil
}

// statusByProperty takes the status of the last entry seen for each property.
func statusByProperty(entries []domain.FinancialEntry) map[string]domain.StatusImovel {
	out := make(map[string]domain.StatusImovel)
	for _, e := range entries {
		out[e.Imovel] = e.StatusImovel
	}
	return out
}

// Create adds a property with a single zero-valued Entrada entry and makes it
// active.
func (s *Session) Create(ctx context.Context) (string, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return "", fmt.Errorf("Create: list entries: %w", err)
	}
	name := store.UniqueName(NewPropertyBase, s.takenNames(entries))

	seed := domain.FinancialEntry{
		Cenario:     domain.Projetado,
		TipoDespesa: domain.TypeOf(domain.FieldEntrada),
		Descricao:   domain.FieldEntrada,
	}.WithMetadata(domain.DefaultMetadata(name, s.now()))
	if _, err := s.store.AddEntry(ctx, seed); err != nil {
		return "", fmt.Errorf("Create: add seed entry: %w", err)
	}

	s.active = name
	s.cenario = domain.Projetado
	s.resetSession()
	s.rec.LifecycleOp("create")
	s.log.Info().Str("imovel", name).Msg("Property created")
	return name, nil
}

// Rename gives a property a new name on every entry and notifies the rename
// listeners. The name must be non-empty and unused.
func (s *Session) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("Rename: %w", ErrEmptyName)
	}
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("Rename: list entries: %w", err)
	}
	names := store.Names(entries)
	if !names[oldName] {
		return fmt.Errorf("Rename %q: %w", oldName, ErrUnknownProperty)
	}
	if newName == oldName {
		return nil
	}
	if s.takenNames(entries)[newName] {
		return fmt.Errorf("Rename to %q: %w", newName, ErrNameInUse)
	}

	if err := s.store.RenameImovelGlobal(ctx, oldName, newName); err != nil {
		return fmt.Errorf("Rename: store: %w", err)
	}
	if s.active == oldName {
		s.active = newName
	}
	s.rec.LifecycleOp("rename")
	s.log.Info().Str("from", oldName).Str("to", newName).Msg("Property renamed")

	// The entries are already renamed; a lagging mirror is logged, not fatal.
	for _, l := range s.listeners {
		if err := l.PropertyRenamed(ctx, oldName, newName); err != nil {
			s.log.Error().Err(err).Str("from", oldName).Str("to", newName).Msg("Rename listener failed")
		}
	}
	return nil
}

// Duplicate copies every entry of a property under a new unique name and makes
// the copy active.
func (s *Session) Duplicate(ctx context.Context, imovel string) (string, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return "", fmt.Errorf("Duplicate: list entries: %w", err)
	}
	if !store.Names(entries)[imovel] {
		return "", fmt.Errorf("Duplicate %q: %w", imovel, ErrUnknownProperty)
	}
	newName, err := s.store.DuplicateImovel(ctx, imovel)
	if err != nil {
		return "", fmt.Errorf("Duplicate: store: %w", err)
	}
	if pending, ok := s.undo.pending(); ok && newName == pending {
		taken := s.takenNames(entries)
		alt := store.UniqueName(newName, taken)
		if err := s.store.RenameImovelGlobal(ctx, newName, alt); err != nil {
			return "", fmt.Errorf("Duplicate: move copy off %q: %w", newName, err)
		}
		newName = alt
	}

	s.active = newName
	s.resetSession()
	s.rec.LifecycleOp("duplicate")
	s.log.Info().Str("imovel", imovel).Str("copy", newName).Msg("Property duplicated")
	return newName, nil
}

// Delete removes every entry of a property. The entries stay recoverable with
// Undo until the undo window elapses or another property is deleted.
func (s *Session) Delete(ctx context.Context, imovel string) error {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("Delete: list entries: %w", err)
	}
	var captured []domain.FinancialEntry
	for _, e := range entries {
		if e.Imovel == imovel {
			captured = append(captured, e)
		}
	}
	if len(captured) == 0 {
		return fmt.Errorf("Delete %q: %w", imovel, ErrUnknownProperty)
	}

	if err := s.store.DeleteEntriesByImovel(ctx, imovel); err != nil {
		return fmt.Errorf("Delete: store: %w", err)
	}
	s.undo.hold(imovel, captured)

	if s.active == imovel {
		s.active = fallbackSelection(propertyNames(entries), imovel)
		s.resetSession()
	}
	s.rec.LifecycleOp("delete")
	s.log.Info().Str("imovel", imovel).Int("entries", len(captured)).Msg("Property deleted")
	return nil
}

// takenNames is every live property name plus the one a pending undo would
// bring back.
func (s *Session) takenNames(entries []domain.FinancialEntry) map[string]bool {
	names := store.Names(entries)
	if pending, ok := s.undo.pending(); ok {
		names[pending] = true
	}
	return names
}

// fallbackSelection picks the property preceding deleted in sorted order, else
// the first remaining one, else none. names still contains deleted.
func fallbackSelection(names []string, deleted string) string {
	i := sort.SearchStrings(names, deleted)
	var remaining []string
	for _, n := range names {
		if n != deleted {
			remaining = append(remaining, n)
		}
	}
	switch {
	case len(remaining) == 0:
		return ""
	case i > 0:
		return names[i-1]
	default:
		return remaining[0]
	}
}

// PendingUndo returns the name of the property that Undo would restore.
func (s *Session) PendingUndo() (string, bool) {
	return s.undo.pending()
}

// Undo restores the most recent deletion if its window is still open. It
// reports whether anything was restored. If a live property holds the deleted
// name again, Undo fails with ErrNameInUse and the deletion stays pending.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	pending, ok := s.undo.pending()
	if !ok {
		return false, nil
	}
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return false, fmt.Errorf("Undo: list entries: %w", err)
	}
	if store.Names(entries)[pending] {
		return false, fmt.Errorf("Undo %q: %w", pending, ErrNameInUse)
	}

	d, ok := s.undo.take()
	if !ok {
		return false, nil
	}
	if err := s.store.RestoreEntries(ctx, d.entries); err != nil {
		return false, fmt.Errorf("Undo: restore %q: %w", d.imovel, err)
	}
	s.active = d.imovel
	s.resetSession()
	s.rec.LifecycleOp("undo")
	s.log.Info().Str("imovel", d.imovel).Int("entries", len(d.entries)).Msg("Deletion undone")
	return true, nil
}

// SetStatus moves a property to the given status group. Calculations are not
// affected.
func (s *Session) SetStatus(ctx context.Context, imovel string, status domain.StatusImovel) error {
	if status != domain.EmAndamento && status != domain.Finalizado {
		return fmt.Errorf("SetStatus: unknown status %q", status)
	}
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("SetStatus: list entries: %w", err)
	}
	if !store.Names(entries)[imovel] {
		return fmt.Errorf("SetStatus %q: %w", imovel, ErrUnknownProperty)
	}
	if err := s.store.UpdateImovelStatus(ctx, imovel, status); err != nil {
		return fmt.Errorf("SetStatus: store: %w", err)
	}
	s.rec.LifecycleOp("status")
	s.log.Info().Str("imovel", imovel).Str("status", string(status)).Msg("Property status changed")
	return nil
}

// ToggleStatus flips a property between em andamento and finalizado and
// returns the new status.
func (s *Session) ToggleStatus(ctx context.Context, imovel string) (domain.StatusImovel, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return "", fmt.Errorf("ToggleStatus: list entries: %w", err)
	}
	current, ok := statusByProperty(entries)[imovel]
	if !ok {
		return "", fmt.Errorf("ToggleStatus %q: %w", imovel, ErrUnknownProperty)
	}
	next := domain.Finalizado
	if current == domain.Finalizado {
		next = domain.EmAndamento
	}
	if err := s.SetStatus(ctx, imovel, next); err != nil {
		return "", err
	}
	return next, nil
}
