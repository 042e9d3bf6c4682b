package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/store/inmemory"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeTimer and fakeTimers stand in for time.AfterFunc.
type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeTimers struct {
	timers []*fakeTimer
}

func (c *fakeTimers) after(_ time.Duration, f func()) stopper {
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that was not stopped.
func (c *fakeTimers) fire() {
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

func withAfterFunc(f afterFunc) Option {
	return func(c *sessionConfig) { c.after = f }
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *inmemory.Store) {
	t.Helper()
	st := inmemory.NewStore()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s := NewSession(st, opts...)
	t.Cleanup(s.Close)
	return s, st
}

// newProperty creates a property and returns its name.
func newProperty(t *testing.T, s *Session) string {
	t.Helper()
	name, err := s.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return name
}

func mustSet(t *testing.T, s *Session, field string, v float64) {
	t.Helper()
	if err := s.SetValue(context.Background(), field, v); err != nil {
		t.Fatalf("SetValue(%q, %v) failed: %v", field, v, err)
	}
}

// valueOf reads a field from the active view.
func valueOf(t *testing.T, s *Session, field string) float64 {
	t.Helper()
	v, err := s.View(context.Background())
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	f, ok := v.Field(field)
	if !ok {
		t.Fatalf("field %q not in view", field)
	}
	return f.Valor
}

func approx(a, b float64) bool { return math.Abs(a-b) <= Tolerance }

func TestSetValue_DefaultRatesOnVenda(t *testing.T) {
	tests := []float64{100000, 350000.5, 1234567.89}

	for _, venda := range tests {
		s, _ := newTestSession(t)
		newProperty(t, s)
		mustSet(t, s, domain.FieldVenda, venda)

		want := map[string]float64{
			domain.FieldComissaoCorretor:  venda * 0.05,
			domain.FieldITBI:              venda * 0.02,
			domain.FieldRegistro:          venda * 0.01,
			domain.FieldTaxaFinanciamento: venda * 0.01,
		}
		for field, w := range want {
			if got := valueOf(t, s, field); !approx(got, w) {
				t.Errorf("Venda=%v: %s = %v, want %v", venda, field, got, w)
			}
		}
	}
}

func TestSetValue_AVistaScenario(t *testing.T) {
	s, _ := newTestSession(t)
	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 500000)
	mustSet(t, s, domain.FieldEntrada, 50000)

	want := map[string]float64{
		domain.FieldComissaoLeiloeiro: 2500,
		domain.FieldComissaoCorretor:  25000,
		domain.FieldITBI:              10000,
		domain.FieldRegistro:          5000,
		domain.FieldTaxaFinanciamento: 5000,
		domain.FieldImpostoGanho:      60375,
	}
	for field, w := range want {
		if got := valueOf(t, s, field); !approx(got, w) {
			t.Errorf("%s = %v, want %v", field, got, w)
		}
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	s, _ := newTestSession(t)
	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 500000)
	mustSet(t, s, domain.FieldEntrada, 50000)
	mustSet(t, s, domain.FieldReforma, 33333.33)

	res, err := s.Recompute(context.Background())
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if res.Writes != 0 || res.Passes != 1 || !res.Converged {
		t.Errorf("second recompute = %+v, want one pass and no writes", res)
	}
}

func TestRecompute_NoActiveProperty(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Recompute(context.Background()); !errors.Is(err, ErrNoActiveProperty) {
		t.Errorf("Recompute() error = %v, want ErrNoActiveProperty", err)
	}
	v, err := s.View(context.Background())
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if v.Imovel != "" || v.Summary != (Summary{}) {
		t.Errorf("View() = %+v, want empty view", v)
	}
}

func TestOverride_SurvivesUnrelatedEdit(t *testing.T) {
	s, _ := newTestSession(t)
	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 100000)
	mustSet(t, s, domain.FieldComissaoCorretor, 1234)
	mustSet(t, s, domain.FieldVenda, 200000)

	if got := valueOf(t, s, domain.FieldComissaoCorretor); got != 1234 {
		t.Errorf("overridden Comissão Corretor = %v, want 1234", got)
	}
	if got := valueOf(t, s, domain.FieldITBI); !approx(got, 4000) {
		t.Errorf("ITBI = %v, want 4000", got)
	}
}

func TestOverride_ClearedByPurchaseTypeChange(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 200000)
	mustSet(t, s, domain.FieldComissaoCorretor, 1234)

	tipo := domain.Financiado
	if err := s.SetMetadata(ctx, MetadataUpdate{TipoCompra: &tipo}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if got := s.Overrides(); len(got) != 0 {
		t.Errorf("Overrides() = %v, want none", got)
	}
	if got := valueOf(t, s, domain.FieldComissaoCorretor); !approx(got, 10000) {
		t.Errorf("Comissão Corretor = %v, want 10000 after reset", got)
	}
}

func TestSetRate_ClearsOverrideAndRewrites(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 100000)
	mustSet(t, s, domain.FieldITBI, 1)

	if err := s.SetRate(ctx, RateITBI, 4); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	if got := valueOf(t, s, domain.FieldITBI); !approx(got, 4000) {
		t.Errorf("ITBI = %v, want 4000", got)
	}
	if s.overrides.IsOverridden(domain.FieldITBI) {
		t.Error("ITBI still overridden after rate change")
	}
}

func TestSwitchingResetsSession(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	first := newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 100000)
	mustSet(t, s, domain.FieldITBI, 1)
	if err := s.SetRate(ctx, RateComissaoCorretor, 6); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}

	if err := s.SetScenario(domain.Executado); err != nil {
		t.Fatalf("SetScenario failed: %v", err)
	}
	if len(s.Overrides()) != 0 || s.Rates() != DefaultRates() {
		t.Errorf("scenario switch kept overrides %v / rates %+v", s.Overrides(), s.Rates())
	}

	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 1)
	if err := s.Select(ctx, first); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(s.Overrides()) != 0 {
		t.Errorf("property switch kept overrides %v", s.Overrides())
	}
	if err := s.Select(ctx, "missing"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("Select(missing) error = %v, want ErrUnknownProperty", err)
	}
}

func TestSetValue_ReadOnlyFields(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	newProperty(t, s)

	if err := s.SetValue(ctx, domain.FieldImpostoGanho, 10); !errors.Is(err, ErrReadOnlyField) {
		t.Errorf("AVista imposto error = %v, want ErrReadOnlyField", err)
	}
	tipo := domain.Financiado
	if err := s.SetMetadata(ctx, MetadataUpdate{TipoCompra: &tipo}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	for _, f := range []string{domain.FieldEntrada, domain.FieldComissaoLeiloeiro} {
		if err := s.SetValue(ctx, f, 10); !errors.Is(err, ErrReadOnlyField) {
			t.Errorf("Financiado %s error = %v, want ErrReadOnlyField", f, err)
		}
	}
	if err := s.SetValue(ctx, "Piscina", 10); !errors.Is(err, ErrUnknownField) {
		t.Errorf("unknown field error = %v, want ErrUnknownField", err)
	}
}

func TestFinanciado_ValorAquisicaoDrivesEntrada(t *testing.T) {
	s, st := newTestSession(t)
	ctx := context.Background()
	name := newProperty(t, s)
	tipo := domain.Financiado
	if err := s.SetMetadata(ctx, MetadataUpdate{TipoCompra: &tipo}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	mustSet(t, s, domain.FieldValorAquisicao, 400000)

	if got := valueOf(t, s, domain.FieldEntrada); !approx(got, 20000) {
		t.Errorf("Entrada = %v, want 20000", got)
	}
	if got := valueOf(t, s, domain.FieldComissaoLeiloeiro); !approx(got, 20000) {
		t.Errorf("Comissão Leiloeiro = %v, want 20000", got)
	}

	entries, _ := st.ListEntries(ctx)
	for _, e := range entries {
		if e.Imovel == name && e.Descricao == domain.FieldValorAquisicao && e.FluxoCaixa != 0 {
			t.Errorf("Valor Aquisição fluxoCaixa = %v, want 0", e.FluxoCaixa)
		}
	}
}

func TestSetMonthlyValue(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	newProperty(t, s)

	if err := s.SetMonthlyValue(ctx, domain.FieldCondominio, 850); err != nil {
		t.Fatalf("SetMonthlyValue failed: %v", err)
	}
	if got := valueOf(t, s, domain.FieldCondominio); got != 10200 {
		t.Errorf("Condomínio = %v, want 10200", got)
	}
	if err := s.SetMonthlyValue(ctx, domain.FieldVenda, 1); err == nil {
		t.Error("SetMonthlyValue(Venda) succeeded, want error")
	}
}

func TestSetMetadata_CotaFollowsNumCotistas(t *testing.T) {
	s, st := newTestSession(t)
	ctx := context.Background()
	name := newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 300000)
	if err := s.SetScenario(domain.Executado); err != nil {
		t.Fatalf("SetScenario failed: %v", err)
	}
	mustSet(t, s, domain.FieldReforma, 9000)

	n := 3
	if err := s.SetMetadata(ctx, MetadataUpdate{NumCotistas: &n}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}

	entries, _ := st.ListEntries(ctx)
	var seen int
	for _, e := range entries {
		if e.Imovel != name {
			continue
		}
		seen++
		if e.NumCotistas != 3 {
			t.Errorf("%s/%s numCotistas = %d, want 3", e.Cenario, e.Descricao, e.NumCotistas)
		}
		if math.Abs(e.Cota-e.FluxoCaixa/3) > 1e-9 {
			t.Errorf("%s/%s cota = %v, want %v", e.Cenario, e.Descricao, e.Cota, e.FluxoCaixa/3)
		}
	}
	if seen < 7 {
		t.Errorf("saw %d entries, want both scenarios covered", seen)
	}

	zero := 0
	if err := s.SetMetadata(ctx, MetadataUpdate{NumCotistas: &zero}); !errors.Is(err, ErrInvalidCotistas) {
		t.Errorf("numCotistas=0 error = %v, want ErrInvalidCotistas", err)
	}
}

func TestSetMetadata_DataCompraMovesDataVenda(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	newProperty(t, s)

	compra := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	if err := s.SetMetadata(ctx, MetadataUpdate{DataCompra: &compra}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	v, _ := s.View(ctx)
	if want := compra.AddDate(1, 0, 0); v.Metadata.DataVenda == nil || !v.Metadata.DataVenda.Equal(want) {
		t.Fatalf("DataVenda = %v, want %v", v.Metadata.DataVenda, want)
	}

	venda := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.SetMetadata(ctx, MetadataUpdate{DataVenda: &venda}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	later := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	if err := s.SetMetadata(ctx, MetadataUpdate{DataCompra: &later}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	v, _ = s.View(ctx)
	if !v.Metadata.DataVenda.Equal(venda) {
		t.Errorf("user-set DataVenda moved to %v", v.Metadata.DataVenda)
	}

	bad := "XX"
	if err := s.SetMetadata(ctx, MetadataUpdate{Estado: &bad}); !errors.Is(err, ErrInvalidEstado) {
		t.Errorf("Estado=XX error = %v, want ErrInvalidEstado", err)
	}
}

func TestReplication_ExecutadoReadsProjetado(t *testing.T) {
	s, st := newTestSession(t)
	ctx := context.Background()
	newProperty(t, s)
	mustSet(t, s, domain.FieldEntrada, 50000)

	if err := s.SetScenario(domain.Executado); err != nil {
		t.Fatalf("SetScenario failed: %v", err)
	}
	if _, err := s.Recompute(ctx); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	v, err := s.View(ctx)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	entrada, _ := v.Field(domain.FieldEntrada)
	if entrada.Valor != 50000 || !entrada.Replicated {
		t.Errorf("Entrada = %+v, want replicated 50000", entrada)
	}
	leiloeiro, _ := v.Field(domain.FieldComissaoLeiloeiro)
	if !approx(leiloeiro.Valor, 2500) || !leiloeiro.Replicated {
		t.Errorf("Comissão Leiloeiro = %+v, want replicated 2500", leiloeiro)
	}
	venda, _ := v.Field(domain.FieldVenda)
	if venda.Present || venda.Replicated {
		t.Errorf("Venda = %+v, want absent", venda)
	}

	entries, _ := st.ListEntries(ctx)
	for _, e := range entries {
		if e.Cenario == domain.Executado {
			t.Fatalf("replication created executed entry %s", e.Descricao)
		}
	}

	mustSet(t, s, domain.FieldEntrada, 60000)
	if got := valueOf(t, s, domain.FieldComissaoLeiloeiro); !approx(got, 3000) {
		t.Errorf("executed Comissão Leiloeiro = %v, want 3000", got)
	}
	if err := s.SetScenario(domain.Projetado); err != nil {
		t.Fatalf("SetScenario failed: %v", err)
	}
	if got := valueOf(t, s, domain.FieldEntrada); got != 50000 {
		t.Errorf("planned Entrada = %v, want 50000", got)
	}
}

// countingRecorder records engine events.
type countingRecorder struct {
	recomputes int
	ops        []string
}

func (r *countingRecorder) RecomputeDone(passes, writes int, converged bool) { r.recomputes++ }
func (r *countingRecorder) LifecycleOp(op string)                           { r.ops = append(r.ops, op) }

func TestRecorder(t *testing.T) {
	rec := &countingRecorder{}
	s, _ := newTestSession(t, WithRecorder(rec))
	newProperty(t, s)
	mustSet(t, s, domain.FieldVenda, 1000)

	if rec.recomputes != 1 {
		t.Errorf("recomputes = %d, want 1", rec.recomputes)
	}
	if len(rec.ops) != 1 || rec.ops[0] != "create" {
		t.Errorf("ops = %v, want [create]", rec.ops)
	}
}
