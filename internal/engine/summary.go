package engine

import (
	"math"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// daysPerMonth is the average month length used to turn a holding period
// into months.
const daysPerMonth = 30.44

// Summary is the profitability of one property in one scenario.
type Summary struct {
	LucroTotal        float64 `json:"lucroTotal"`
	LucroPorCota      float64 `json:"lucroPorCota"`
	RoiTotal          float64 `json:"roiTotal"`  // percent
	RoiMensal         float64 `json:"roiMensal"` // percent, compound monthly equivalent
	CustoInvestimento float64 `json:"custoInvestimento"`
	DurationMonths    float64 `json:"durationMonths"`
}

// investedFields are the costs paid up front with the investor's capital.
var investedFields = []string{
	domain.FieldEntrada, domain.FieldITBI, domain.FieldRegistro, domain.FieldDespachante,
	domain.FieldComissaoLeiloeiro, domain.FieldTaxaFinanciamento, domain.FieldReforma,
	domain.FieldDesocupacao, domain.FieldDivida, domain.FieldPrestacao, domain.FieldCondominio,
	domain.FieldIPTU,
}

// settledFromSale are the costs paid out of the sale proceeds.
var settledFromSale = []string{
	domain.FieldComissaoCorretor, domain.FieldImpostoGanho, domain.FieldSaldoDevedor,
}

// Summarize computes profit and returns from field magnitudes. now stands in
// for the sale date while the property is unsold.
func Summarize(v Values, meta domain.Metadata, now time.Time) Summary {
	var invested, settled float64
	for _, f := range investedFields {
		invested += v[f]
	}
	for _, f := range settledFromSale {
		settled += v[f]
	}

	s := Summary{
		LucroTotal:        v[domain.FieldVenda] - settled - invested,
		CustoInvestimento: invested,
		DurationMonths:    durationMonths(meta.DataCompra, meta.DataVenda, now),
	}
	if invested > 0 {
		s.RoiTotal = s.LucroTotal / invested * 100
	}
	s.RoiMensal = monthlyReturn(s.RoiTotal, s.DurationMonths)

	cotistas := meta.NumCotistas
	if cotistas < 1 {
		cotistas = 1
	}
	s.LucroPorCota = s.LucroTotal / float64(cotistas)
	return s
}

// monthlyReturn de-annualizes a total return over months with compounding.
// A loss of 100% or more has no real root and maps to -100.
func monthlyReturn(roiTotal, months float64) float64 {
	base := 1 + roiTotal/100
	if base <= 0 {
		return -100
	}
	return (math.Pow(base, 1/months) - 1) * 100
}

// durationMonths is the holding period in months, never below one. Partial
// days count as a full day.
func durationMonths(compra time.Time, venda *time.Time, now time.Time) float64 {
	if compra.IsZero() {
		return 1
	}
	end := now
	if venda != nil && !venda.IsZero() {
		end = *venda
	}
	diff := end.Sub(compra)
	if diff < 0 {
		diff = -diff
	}
	days := math.Ceil(diff.Hours() / 24)
	return math.Max(1, days/daysPerMonth)
}

// PropertySummary is one row of a portfolio report.
type PropertySummary struct {
	Imovel   string              `json:"imovel"`
	Cenario  domain.Cenario      `json:"cenario"`
	Status   domain.StatusImovel `json:"status"`
	Metadata domain.Metadata     `json:"metadata"`
	Summary  Summary             `json:"summary"`
}

// Report summarizes every property found in entries, sorted by name. The
// planned scenario is always reported; the executed one only once it holds
// entries of its own.
func Report(entries []domain.FinancialEntry, now time.Time) []PropertySummary {
	statuses := statusByProperty(entries)
	executed := make(map[string]bool)
	for _, e := range entries {
		if e.Cenario == domain.Executado {
			executed[e.Imovel] = true
		}
	}

	var out []PropertySummary
	for _, name := range propertyNames(entries) {
		for _, c := range []domain.Cenario{domain.Projetado, domain.Executado} {
			if c == domain.Executado && !executed[name] {
				continue
			}
			sc := newScope(entries, name, c, domain.DefaultMetadata(name, now))
			out = append(out, PropertySummary{
				Imovel:   name,
				Cenario:  c,
				Status:   statuses[name],
				Metadata: sc.meta,
				Summary:  Summarize(sc.values(), sc.meta, now),
			})
		}
	}
	return out
}
