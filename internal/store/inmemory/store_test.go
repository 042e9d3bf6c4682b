package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/store"
)

func entry(imovel string, cenario domain.Cenario, descricao string, fluxo float64) domain.FinancialEntry {
	venda := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.FinancialEntry{
		Imovel:       imovel,
		Cenario:      cenario,
		Descricao:    descricao,
		FluxoCaixa:   fluxo,
		NumCotistas:  1,
		DataVenda:    &venda,
		StatusImovel: domain.EmAndamento,
	}
}

func TestStore_AddAndList(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	added, err := s.AddEntry(ctx, entry("Casa", domain.Projetado, domain.FieldVenda, 1000))
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	if added.ID == "" {
		t.Error("Expected an ID to be assigned")
	}

	list, _ := s.ListEntries(ctx)
	if len(list) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(list))
	}

	// Mutating the returned copy must not reach the store.
	list[0].FluxoCaixa = 5
	*list[0].DataVenda = time.Time{}
	again, _ := s.ListEntries(ctx)
	if again[0].FluxoCaixa != 1000 || again[0].DataVenda.IsZero() {
		t.Errorf("Store entry was mutated through a returned copy: %+v", again[0])
	}
}

func TestStore_UpdateEntry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	added, _ := s.AddEntry(ctx, entry("Casa", domain.Projetado, domain.FieldITBI, -100))

	added.FluxoCaixa = -200
	if err := s.UpdateEntry(ctx, added); err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}
	list, _ := s.ListEntries(ctx)
	if list[0].FluxoCaixa != -200 {
		t.Errorf("Expected -200, got %v", list[0].FluxoCaixa)
	}

	if err := s.UpdateEntry(ctx, domain.FinancialEntry{ID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_DeleteAndRestore(t *testing.T) {
	s := NewStore(
		entry("Casa", domain.Projetado, domain.FieldVenda, 1000),
		entry("Casa", domain.Executado, domain.FieldVenda, 900),
		entry("Apto", domain.Projetado, domain.FieldVenda, 500),
	)
	ctx := context.Background()
	before, _ := s.ListEntries(ctx)

	if err := s.DeleteEntriesByImovel(ctx, "Casa"); err != nil {
		t.Fatalf("DeleteEntriesByImovel failed: %v", err)
	}
	list, _ := s.ListEntries(ctx)
	if len(list) != 1 || list[0].Imovel != "Apto" {
		t.Fatalf("Expected only Apto to remain, got %+v", list)
	}

	if err := s.RestoreEntries(ctx, before[:2]); err != nil {
		t.Fatalf("RestoreEntries failed: %v", err)
	}
	// Restoring twice replaces by ID instead of duplicating.
	if err := s.RestoreEntries(ctx, before[:2]); err != nil {
		t.Fatalf("RestoreEntries failed: %v", err)
	}
	list, _ = s.ListEntries(ctx)
	if len(list) != 3 {
		t.Errorf("Expected 3 entries after restore, got %d", len(list))
	}
}

func TestStore_DuplicateImovel(t *testing.T) {
	s := NewStore(
		entry("Casa", domain.Projetado, domain.FieldVenda, 1000),
		entry("Casa", domain.Executado, domain.FieldITBI, -20),
	)
	ctx := context.Background()

	name, err := s.DuplicateImovel(ctx, "Casa")
	if err != nil {
		t.Fatalf("DuplicateImovel failed: %v", err)
	}
	if name != "Casa (cópia)" {
		t.Errorf("Expected 'Casa (cópia)', got %q", name)
	}
	second, _ := s.DuplicateImovel(ctx, "Casa")
	if second != "Casa (cópia) 2" {
		t.Errorf("Expected 'Casa (cópia) 2', got %q", second)
	}

	list, _ := s.ListEntries(ctx)
	ids := make(map[string]bool)
	for _, e := range list {
		if ids[e.ID] {
			t.Errorf("Duplicate ID %s", e.ID)
		}
		ids[e.ID] = true
	}
	if len(list) != 6 {
		t.Errorf("Expected 6 entries, got %d", len(list))
	}

	if _, err := s.DuplicateImovel(ctx, "Nada"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_StatusAndRename(t *testing.T) {
	s := NewStore(
		entry("Casa", domain.Projetado, domain.FieldVenda, 1000),
		entry("Casa", domain.Executado, domain.FieldVenda, 900),
		entry("Apto", domain.Projetado, domain.FieldVenda, 500),
	)
	ctx := context.Background()

	if err := s.UpdateImovelStatus(ctx, "Casa", domain.Finalizado); err != nil {
		t.Fatalf("UpdateImovelStatus failed: %v", err)
	}
	if err := s.RenameImovelGlobal(ctx, "Casa", "Sobrado"); err != nil {
		t.Fatalf("RenameImovelGlobal failed: %v", err)
	}

	list, _ := s.ListEntries(ctx)
	for _, e := range list {
		switch e.Imovel {
		case "Sobrado":
			if e.StatusImovel != domain.Finalizado {
				t.Errorf("Expected finalizado, got %s", e.StatusImovel)
			}
		case "Apto":
			if e.StatusImovel != domain.EmAndamento {
				t.Errorf("Apto status changed to %s", e.StatusImovel)
			}
		default:
			t.Errorf("Unexpected property %q", e.Imovel)
		}
	}
}
