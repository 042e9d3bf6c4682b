package engine

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// Tolerance is the smallest difference, in monetary units, that makes a
// computed value replace the stored one.
const Tolerance = 0.01

// registroPct and taxaFinanciamentoPct are fixed, not user adjustable.
const (
	registroPct          = 1
	taxaFinanciamentoPct = 1
)

// Values maps field labels to magnitudes. Missing fields read as 0.
type Values map[string]float64

// Write is one automatic field update produced by Plan.
type Write struct {
	Field string
	Value float64
}

// rule derives target from inputs. when gates the rule on the purchase type
// and on its inputs being present.
type rule struct {
	target  string
	inputs  []string
	when    func(tipo domain.TipoCompra, v Values) bool
	compute func(v Values, r Rates) float64
}

func pct(base, percent float64) float64 { return base * percent / 100 }

func vendaPositive(_ domain.TipoCompra, v Values) bool { return v[domain.FieldVenda] > 0 }

var ruleTable = []rule{
	{
		target:  domain.FieldComissaoCorretor,
		inputs:  []string{domain.FieldVenda},
		when:    vendaPositive,
		compute: func(v Values, r Rates) float64 { return pct(v[domain.FieldVenda], r.ComissaoCorretor) },
	},
	{
		target:  domain.FieldITBI,
		inputs:  []string{domain.FieldVenda},
		when:    vendaPositive,
		compute: func(v Values, r Rates) float64 { return pct(v[domain.FieldVenda], r.ITBI) },
	},
	{
		target:  domain.FieldRegistro,
		inputs:  []string{domain.FieldVenda},
		when:    vendaPositive,
		compute: func(v Values, _ Rates) float64 { return pct(v[domain.FieldVenda], registroPct) },
	},
	{
		target:  domain.FieldTaxaFinanciamento,
		inputs:  []string{domain.FieldVenda},
		when:    vendaPositive,
		compute: func(v Values, _ Rates) float64 { return pct(v[domain.FieldVenda], taxaFinanciamentoPct) },
	},
	{
		target: domain.FieldComissaoLeiloeiro,
		inputs: []string{domain.FieldEntrada},
		when: func(tipo domain.TipoCompra, v Values) bool {
			return tipo == domain.AVista && v[domain.FieldEntrada] > 0
		},
		compute: func(v Values, r Rates) float64 { return pct(v[domain.FieldEntrada], r.ComissaoLeiloeiro) },
	},
	{
		target: domain.FieldImpostoGanho,
		inputs: []string{
			domain.FieldVenda, domain.FieldComissaoCorretor, domain.FieldEntrada, domain.FieldITBI,
			domain.FieldRegistro, domain.FieldDespachante, domain.FieldComissaoLeiloeiro,
			domain.FieldTaxaFinanciamento, domain.FieldReforma,
		},
		when:    func(tipo domain.TipoCompra, _ Values) bool { return tipo == domain.AVista },
		compute: func(v Values, r Rates) float64 { return pct(math.Max(capitalGainsBase(v), 0), r.GanhoCapital) },
	},
	{
		target: domain.FieldEntrada,
		inputs: []string{domain.FieldValorAquisicao},
		when: func(tipo domain.TipoCompra, v Values) bool {
			return tipo == domain.Financiado && v[domain.FieldValorAquisicao] > 0
		},
		compute: func(v Values, r Rates) float64 { return pct(v[domain.FieldValorAquisicao], r.EntradaFinanciado) },
	},
	{
		target: domain.FieldComissaoLeiloeiro,
		inputs: []string{domain.FieldValorAquisicao},
		when: func(tipo domain.TipoCompra, v Values) bool {
			return tipo == domain.Financiado && v[domain.FieldValorAquisicao] > 0
		},
		compute: func(v Values, r Rates) float64 { return pct(v[domain.FieldValorAquisicao], r.ComissaoLeiloeiro) },
	},
}

// capitalGainsBase nets the sale against the costs deductible for the
// capital-gains tax of a cash purchase.
func capitalGainsBase(v Values) float64 {
	costs := v[domain.FieldComissaoCorretor] + v[domain.FieldEntrada] + v[domain.FieldITBI] +
		v[domain.FieldRegistro] + v[domain.FieldDespachante] + v[domain.FieldComissaoLeiloeiro] +
		v[domain.FieldTaxaFinanciamento] + v[domain.FieldReforma]
	return v[domain.FieldVenda] - costs
}

// rules is ruleTable sorted so that every rule runs after the rules producing
// its inputs. A single pass over it reaches the fixed point.
var rules = mustOrder(ruleTable)

// mustOrder topologically sorts the rule table and panics on a dependency
// cycle: the table must stay acyclic for Recompute to converge.
func mustOrder(table []rule) []rule {
	ordered, err := orderRules(table)
	if err != nil {
		panic(err)
	}
	return ordered
}

func orderRules(table []rule) ([]rule, error) {
	producers := make(map[string][]int)
	for i, r := range table {
		producers[r.target] = append(producers[r.target], i)
	}

	// deps[i] holds the rules whose target is an input of rule i.
	deps := make([]map[int]bool, len(table))
	for i, r := range table {
		deps[i] = make(map[int]bool)
		for _, in := range r.inputs {
			for _, j := range producers[in] {
				deps[i][j] = true
			}
		}
	}

	done := make([]bool, len(table))
	ordered := make([]rule, 0, len(table))
	for len(ordered) < len(table) {
		progressed := false
		for i := range table {
			if done[i] || !allDone(deps[i], done) {
				continue
			}
			done[i] = true
			ordered = append(ordered, table[i])
			progressed = true
		}
		if !progressed {
			var stuck []string
			for i, r := range table {
				if !done[i] {
					stuck = append(stuck, r.target)
				}
			}
			return nil, fmt.Errorf("derivation rules form a cycle through %v", stuck)
		}
	}
	return ordered, nil
}

func allDone(deps map[int]bool, done []bool) bool {
	for j := range deps {
		if !done[j] {
			return false
		}
	}
	return true
}

// IsDerived reports whether some rule can write field.
func IsDerived(field string) bool {
	return slices.ContainsFunc(rules, func(r rule) bool { return r.target == field })
}

// Plan evaluates the rule table once against vals and returns the writes that
// move a field by more than Tolerance. Overridden fields are skipped. vals is
// not modified.
func Plan(tipo domain.TipoCompra, vals Values, rates Rates, overridden func(string) bool) []Write {
	v := maps.Clone(vals)
	if v == nil {
		v = Values{}
	}

	var writes []Write
	for _, r := range rules {
		if overridden(r.target) || !r.when(tipo, v) {
			continue
		}
		computed := r.compute(v, rates)
		if math.Abs(v[r.target]-computed) > Tolerance {
			v[r.target] = computed
			writes = append(writes, Write{Field: r.target, Value: computed})
		}
	}
	return writes
}

// rateTarget is the field a rate control drives.
var rateTarget = map[RateKind]string{
	RateITBI:              domain.FieldITBI,
	RateEntradaFinanciado: domain.FieldEntrada,
	RateGanhoCapital:      domain.FieldImpostoGanho,
	RateComissaoCorretor:  domain.FieldComissaoCorretor,
	RateComissaoLeiloeiro: domain.FieldComissaoLeiloeiro,
}
