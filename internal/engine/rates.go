package engine

import "fmt"

// Rates holds the percentage parameters of the derivation rules, in percent.
type Rates struct {
	ITBI              float64 `json:"itbi"`
	EntradaFinanciado float64 `json:"entradaFinanciado"`
	GanhoCapital      float64 `json:"ganhoCapital"`
	ComissaoCorretor  float64 `json:"comissaoCorretor"`
	ComissaoLeiloeiro float64 `json:"comissaoLeiloeiro"`
}

// DefaultRates returns the rates every session starts with.
func DefaultRates() Rates {
	return Rates{
		ITBI:              2,
		EntradaFinanciado: 5,
		GanhoCapital:      15,
		ComissaoCorretor:  5,
		ComissaoLeiloeiro: 5,
	}
}

// RateKind names one of the adjustable rates.
type RateKind string

const (
	RateITBI              RateKind = "itbi"
	RateEntradaFinanciado RateKind = "entrada_financiado"
	RateGanhoCapital      RateKind = "ganho_capital"
	RateComissaoCorretor  RateKind = "comissao_corretor"
	RateComissaoLeiloeiro RateKind = "comissao_leiloeiro"
)

// RateKinds lists every adjustable rate.
var RateKinds = []RateKind{
	RateITBI, RateEntradaFinanciado, RateGanhoCapital, RateComissaoCorretor, RateComissaoLeiloeiro,
}

// ParseRateKind parses a rate name.
func ParseRateKind(s string) (RateKind, error) {
	for _, k := range RateKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown rate %q", s)
}

// Get returns the rate of the given kind.
func (r Rates) Get(kind RateKind) float64 {
	switch kind {
	case RateITBI:
		return r.ITBI
	case RateEntradaFinanciado:
		return r.EntradaFinanciado
	case RateGanhoCapital:
		return r.GanhoCapital
	case RateComissaoCorretor:
		return r.ComissaoCorretor
	case RateComissaoLeiloeiro:
		return r.ComissaoLeiloeiro
	}
	return 0
}

// With returns a copy of r with the rate of the given kind set to pct.
func (r Rates) With(kind RateKind, pct float64) Rates {
	switch kind {
	case RateITBI:
		r.ITBI = pct
	case RateEntradaFinanciado:
		r.EntradaFinanciado = pct
	case RateGanhoCapital:
		r.GanhoCapital = pct
	case RateComissaoCorretor:
		r.ComissaoCorretor = pct
	case RateComissaoLeiloeiro:
		r.ComissaoLeiloeiro = pct
	}
	return r
}
