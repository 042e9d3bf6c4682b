package notionsync

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/engine"
	"github.com/jomei/notionapi"
)

// mockNotionService implements PageService in memory. It lists one page per
// batch to exercise cursors.
type mockNotionService struct {
	pages     []notionapi.Page
	archived  map[string]bool
	nextID    int
	createErr error
}

func newMockNotionService(titles ...string) *mockNotionService {
	m := &mockNotionService{archived: make(map[string]bool)}
	for _, title := range titles {
		m.add(notionapi.Properties{TitleColumn: &notionapi.TitleProperty{
			Title: []notionapi.RichText{{PlainText: title}},
		}})
	}
	return m
}

func (m *mockNotionService) add(props notionapi.Properties) *notionapi.Page {
	m.nextID++
	m.pages = append(m.pages, notionapi.Page{
		ID:         notionapi.ObjectID("page-" + strconv.Itoa(m.nextID)),
		Properties: props,
	})
	return &m.pages[len(m.pages)-1]
}

func (m *mockNotionService) live() []notionapi.Page {
	var out []notionapi.Page
	for _, p := range m.pages {
		if !m.archived[string(p.ID)] {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockNotionService) ListPages(ctx context.Context, cursor notionapi.Cursor) (PageBatch, error) {
	live := m.live()
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(string(cursor))
	}
	var batch PageBatch
	if start < len(live) {
		batch.Pages = live[start : start+1]
	}
	if start+1 < len(live) {
		batch.Next = notionapi.Cursor(strconv.Itoa(start + 1))
	}
	return batch, nil
}

func (m *mockNotionService) CreatePage(ctx context.Context, properties notionapi.Properties) (notionapi.ObjectID, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.add(properties).ID, nil
}

func (m *mockNotionService) SetProperties(ctx context.Context, pageID notionapi.ObjectID, properties notionapi.Properties) error {
	for i := range m.pages {
		if m.pages[i].ID == pageID {
			for k, v := range properties {
				m.pages[i].Properties[k] = v
			}
			return nil
		}
	}
	return errors.New("page not found")
}

func (m *mockNotionService) ArchivePage(ctx context.Context, pageID notionapi.ObjectID) error {
	m.archived[string(pageID)] = true
	return nil
}

func (m *mockNotionService) titles() map[string]bool {
	out := make(map[string]bool)
	for _, p := range m.live() {
		out[extractImovel(p)] = true
	}
	return out
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func summaryRow(imovel string, c domain.Cenario, lucro float64) engine.PropertySummary {
	return engine.PropertySummary{
		Imovel:   imovel,
		Cenario:  c,
		Status:   domain.EmAndamento,
		Metadata: domain.DefaultMetadata(imovel, now),
		Summary:  engine.Summary{LucroTotal: lucro, RoiTotal: 10, RoiMensal: 0.8},
	}
}

func TestSyncSummaries(t *testing.T) {
	svc := newMockNotionService("Casa", "Antigo", "")
	s := NewSyncer(svc)
	report := []engine.PropertySummary{
		summaryRow("Apto", domain.Projetado, 100),
		summaryRow("Casa", domain.Projetado, 200),
		summaryRow("Casa", domain.Executado, 150),
	}

	res, err := s.SyncSummaries(context.Background(), report, false)
	if err != nil {
		t.Fatalf("SyncSummaries failed: %v", err)
	}
	want := SyncResult{Created: 1, Updated: 1, Deleted: 2}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}

	titles := svc.titles()
	if len(titles) != 2 || !titles["Apto"] || !titles["Casa"] {
		t.Errorf("Unexpected pages after sync: %v", titles)
	}

	for _, p := range svc.live() {
		if extractImovel(p) != "Casa" {
			continue
		}
		n, ok := p.Properties[LucroExecutadoColumn].(notionapi.NumberProperty)
		if !ok || n.Number != 150 {
			t.Errorf("Expected Lucro Executado 150, got %#v", p.Properties[LucroExecutadoColumn])
		}
	}
}

func TestSyncSummaries_DryRun(t *testing.T) {
	svc := newMockNotionService("Casa", "Antigo")
	s := NewSyncer(svc)

	res, err := s.SyncSummaries(context.Background(), []engine.PropertySummary{summaryRow("Casa", domain.Projetado, 1)}, true)
	if err != nil {
		t.Fatalf("SyncSummaries failed: %v", err)
	}
	if res != (SyncResult{Updated: 1, Deleted: 1}) {
		t.Errorf("Unexpected dry run result %+v", res)
	}
	if len(svc.live()) != 2 || svc.nextID != 2 {
		t.Error("Dry run must not touch Notion")
	}
}

func TestSyncSummaries_CreateFailureIsCounted(t *testing.T) {
	svc := newMockNotionService()
	svc.createErr = errors.New("rate limited")
	s := NewSyncer(svc)

	res, err := s.SyncSummaries(context.Background(), []engine.PropertySummary{summaryRow("Casa", domain.Projetado, 1)}, false)
	if err != nil {
		t.Fatalf("SyncSummaries failed: %v", err)
	}
	if res.Failed != 1 || res.Created != 0 {
		t.Errorf("Unexpected result %+v", res)
	}
}

func TestPropertyRenamed(t *testing.T) {
	svc := newMockNotionService("Casa", "Apto")
	s := NewSyncer(svc)

	if err := s.PropertyRenamed(context.Background(), "Casa", "Sobrado"); err != nil {
		t.Fatalf("PropertyRenamed failed: %v", err)
	}
	titles := svc.titles()
	if !titles["Sobrado"] || titles["Casa"] || !titles["Apto"] {
		t.Errorf("Unexpected titles after rename: %v", titles)
	}

	// Renaming a property without a page is a no-op.
	if err := s.PropertyRenamed(context.Background(), "Nada", "Outro"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestPropertyToNotionProperties(t *testing.T) {
	venda := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	row := summaryRow("Casa", domain.Projetado, 342125)
	row.Metadata.Cidade = "Campinas"
	row.Metadata.DataVenda = &venda

	props := PropertyToNotionProperties("Casa", []engine.PropertySummary{row})

	if _, ok := props[DataVendaColumn]; !ok {
		t.Error("Expected a Data Venda column")
	}
	if _, ok := props[LucroExecutadoColumn]; ok {
		t.Error("Executed columns must be absent without an executed row")
	}
	resumo, ok := props[ResumoColumn].(notionapi.RichTextProperty)
	if !ok || resumo.RichText[0].Text.Content != "Projetado: R$342.125,00 (0,80% a.m.)" {
		t.Errorf("Unexpected Resumo %#v", props[ResumoColumn])
	}

	bare := PropertyToNotionProperties("Vazio", nil)
	if len(bare) != 1 {
		t.Errorf("Expected only the title, got %v", bare)
	}
}
