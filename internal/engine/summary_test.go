package engine

import (
	"math"
	"testing"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func metaBetween(compra time.Time, venda *time.Time, cotistas int) domain.Metadata {
	return domain.Metadata{DataCompra: compra, DataVenda: venda, NumCotistas: cotistas, TipoCompra: domain.AVista}
}

func TestSummarize_AVistaScenario(t *testing.T) {
	v := Values{
		domain.FieldVenda:             500000,
		domain.FieldEntrada:           50000,
		domain.FieldComissaoLeiloeiro: 2500,
		domain.FieldComissaoCorretor:  25000,
		domain.FieldITBI:              10000,
		domain.FieldRegistro:          5000,
		domain.FieldTaxaFinanciamento: 5000,
		domain.FieldImpostoGanho:      60375,
	}
	venda := date(2025, 1, 1)
	s := Summarize(v, metaBetween(date(2024, 1, 1), &venda, 2), testNow)

	if !approx(s.LucroTotal, 342125) {
		t.Errorf("LucroTotal = %v, want 342125", s.LucroTotal)
	}
	if !approx(s.CustoInvestimento, 72500) {
		t.Errorf("CustoInvestimento = %v, want 72500", s.CustoInvestimento)
	}
	if !approx(s.LucroPorCota, 171062.5) {
		t.Errorf("LucroPorCota = %v, want 171062.5", s.LucroPorCota)
	}
	wantRoi := 342125.0 / 72500 * 100
	if math.Abs(s.RoiTotal-wantRoi) > 1e-9 {
		t.Errorf("RoiTotal = %v, want %v", s.RoiTotal, wantRoi)
	}
	months := 366 / daysPerMonth
	wantMensal := (math.Pow(1+wantRoi/100, 1/months) - 1) * 100
	if math.Abs(s.RoiMensal-wantMensal) > 1e-9 {
		t.Errorf("RoiMensal = %v, want %v", s.RoiMensal, wantMensal)
	}
}

func TestSummarize_EdgeCases(t *testing.T) {
	tenYears := date(2034, 1, 1)
	tests := []struct {
		name        string
		v           Values
		meta        domain.Metadata
		wantRoi     float64
		wantMensal  float64
		wantLucro   float64
		wantPerCota float64
	}{
		{
			name:        "total loss over one year",
			v:           Values{domain.FieldEntrada: 100000},
			meta:        metaBetween(date(2024, 1, 1), nil, 1),
			wantRoi:     -100,
			wantMensal:  -100,
			wantLucro:   -100000,
			wantPerCota: -100000,
		},
		{
			name:        "total loss over ten years",
			v:           Values{domain.FieldEntrada: 100000},
			meta:        metaBetween(date(2024, 1, 1), &tenYears, 4),
			wantRoi:     -100,
			wantMensal:  -100,
			wantLucro:   -100000,
			wantPerCota: -25000,
		},
		{
			name:        "loss beyond invested capital",
			v:           Values{domain.FieldEntrada: 100000, domain.FieldComissaoCorretor: 50000},
			meta:        metaBetween(date(2024, 1, 1), nil, 1),
			wantRoi:     -150,
			wantMensal:  -100,
			wantLucro:   -150000,
			wantPerCota: -150000,
		},
		{
			name:        "nothing invested",
			v:           Values{domain.FieldVenda: 1000, domain.FieldSaldoDevedor: 400},
			meta:        metaBetween(date(2024, 1, 1), nil, 1),
			wantRoi:     0,
			wantMensal:  0,
			wantLucro:   600,
			wantPerCota: 600,
		},
		{
			name:        "zero quota count counts as one",
			v:           Values{domain.FieldVenda: 1000},
			meta:        metaBetween(date(2024, 1, 1), nil, 0),
			wantLucro:   1000,
			wantPerCota: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.v, tt.meta, testNow)
			if !approx(s.RoiTotal, tt.wantRoi) {
				t.Errorf("RoiTotal = %v, want %v", s.RoiTotal, tt.wantRoi)
			}
			if !approx(s.RoiMensal, tt.wantMensal) {
				t.Errorf("RoiMensal = %v, want %v", s.RoiMensal, tt.wantMensal)
			}
			if !approx(s.LucroTotal, tt.wantLucro) {
				t.Errorf("LucroTotal = %v, want %v", s.LucroTotal, tt.wantLucro)
			}
			if !approx(s.LucroPorCota, tt.wantPerCota) {
				t.Errorf("LucroPorCota = %v, want %v", s.LucroPorCota, tt.wantPerCota)
			}
		})
	}
}

func TestDurationMonths(t *testing.T) {
	ptr := func(t time.Time) *time.Time { return &t }
	tests := []struct {
		name   string
		compra time.Time
		venda  *time.Time
		want   float64
	}{
		{"same day is one month", date(2024, 1, 1), ptr(date(2024, 1, 1)), 1},
		{"leap year", date(2024, 1, 1), ptr(date(2025, 1, 1)), 366 / daysPerMonth},
		{"partial day rounds up", date(2024, 1, 1), ptr(time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)), 31 / daysPerMonth},
		{"unsold uses now", date(2025, 1, 1), nil, 60 / daysPerMonth},
		{"reversed dates", date(2025, 1, 1), ptr(date(2024, 1, 1)), 366 / daysPerMonth},
		{"no purchase date", time.Time{}, nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := durationMonths(tt.compra, tt.venda, testNow); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("durationMonths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	mk := func(imovel string, c domain.Cenario, field string, m float64) domain.FinancialEntry {
		e := domain.FinancialEntry{Imovel: imovel, Cenario: c, Descricao: field}
		return e.WithMetadata(domain.DefaultMetadata(imovel, testNow)).WithMagnitude(m)
	}
	entries := []domain.FinancialEntry{
		mk("Casa", domain.Projetado, domain.FieldVenda, 1000),
		mk("Casa", domain.Projetado, domain.FieldEntrada, 100),
		mk("Apto", domain.Projetado, domain.FieldVenda, 500),
		mk("Apto", domain.Executado, domain.FieldVenda, 400),
	}

	got := Report(entries, testNow)
	want := []struct {
		imovel  string
		cenario domain.Cenario
		lucro   float64
	}{
		{"Apto", domain.Projetado, 500},
		{"Apto", domain.Executado, 400},
		{"Casa", domain.Projetado, 900},
	}
	if len(got) != len(want) {
		t.Fatalf("Report returned %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].Imovel != w.imovel || got[i].Cenario != w.cenario {
			t.Errorf("row %d = %s/%s, want %s/%s", i, got[i].Imovel, got[i].Cenario, w.imovel, w.cenario)
		}
		if !approx(got[i].Summary.LucroTotal, w.lucro) {
			t.Errorf("row %d LucroTotal = %v, want %v", i, got[i].Summary.LucroTotal, w.lucro)
		}
	}
	if got[2].Status != domain.EmAndamento {
		t.Errorf("Casa status = %q", got[2].Status)
	}
}
