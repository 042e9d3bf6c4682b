package domain

import (
	"math"
	"time"
)

// Cenario separates planned figures from the ones actually realized.
type Cenario string

const (
	Projetado Cenario = "Projetado"
	Executado Cenario = "Executado"
)

// TipoCompra is the purchase type of a property. Each type has its own
// derivation rule set.
type TipoCompra string

const (
	AVista     TipoCompra = "À Vista"
	Financiado TipoCompra = "Financiado"
)

// TipoDespesa is the category of a cash-flow line.
type TipoDespesa string

const (
	DespesaVenda           TipoDespesa = "Venda"
	DespesaCustoAquisicao  TipoDespesa = "Custo Aquisição"
	DespesaCustoManutencao TipoDespesa = "Custo Manutenção"
)

// Vendido flags whether the property was sold.
type Vendido string

const (
	VendidoSim Vendido = "Sim"
	VendidoNao Vendido = "Não"
)

// StatusImovel only affects grouping, never calculations.
type StatusImovel string

const (
	EmAndamento StatusImovel = "em_andamento"
	Finalizado  StatusImovel = "finalizado"
)

// FinancialEntry is one labeled cash-flow line of a property in a scenario.
// Property metadata (Estado through StatusImovel) is duplicated on every entry
// of the same Imovel and must stay identical across both scenarios.
type FinancialEntry struct {
	ID          string      `json:"id"`
	Imovel      string      `json:"imovel"`
	Cenario     Cenario     `json:"cenario"`
	TipoDespesa TipoDespesa `json:"tipoDespesa"`
	Descricao   string      `json:"descricao"`
	FluxoCaixa  float64     `json:"fluxoCaixa"` // negative = outflow, positive = inflow
	Cota        float64     `json:"cota"`       // FluxoCaixa / NumCotistas
	Referencia  float64     `json:"referencia,omitempty"`

	Estado       string       `json:"estado"`
	Cidade       string       `json:"cidade"`
	TipoCompra   TipoCompra   `json:"tipoCompra"`
	Vendido      Vendido      `json:"vendido"`
	NumCotistas  int          `json:"numCotistas"`
	DataCompra   time.Time    `json:"dataCompra"`
	DataVenda    *time.Time   `json:"dataVenda,omitempty"`
	StatusImovel StatusImovel `json:"statusImovel"`
}

// Magnitude returns the absolute value of the entry, the unit the derivation
// rules and the summary work with. Reference-only fields carry it in
// Referencia since their cash flow is always 0.
func (e FinancialEntry) Magnitude() float64 {
	if IsReferenceOnly(e.Descricao) {
		return math.Abs(e.Referencia)
	}
	return math.Abs(e.FluxoCaixa)
}

// WithMagnitude returns a copy of the entry holding magnitude, signed by the
// convention of its field, with the cota share updated.
func (e FinancialEntry) WithMagnitude(magnitude float64) FinancialEntry {
	e.FluxoCaixa = CashFlow(e.Descricao, magnitude)
	e.Referencia = 0
	if IsReferenceOnly(e.Descricao) {
		e.Referencia = math.Abs(magnitude)
	}
	e.Cota = Quota(e.FluxoCaixa, e.NumCotistas)
	return e
}

// IsReferenceOnly reports whether a field is a base for other fields and
// never moves cash.
func IsReferenceOnly(descricao string) bool {
	return descricao == FieldValorAquisicao
}

// Metadata is the property-level part of an entry.
type Metadata struct {
	Imovel       string       `json:"imovel"`
	Estado       string       `json:"estado"`
	Cidade       string       `json:"cidade"`
	TipoCompra   TipoCompra   `json:"tipoCompra"`
	Vendido      Vendido      `json:"vendido"`
	NumCotistas  int          `json:"numCotistas"`
	DataCompra   time.Time    `json:"dataCompra"`
	DataVenda    *time.Time   `json:"dataVenda,omitempty"`
	StatusImovel StatusImovel `json:"statusImovel"`
}

// Metadata extracts the property-level attributes of the entry.
func (e FinancialEntry) Metadata() Metadata {
	return Metadata{
		Imovel:       e.Imovel,
		Estado:       e.Estado,
		Cidade:       e.Cidade,
		TipoCompra:   e.TipoCompra,
		Vendido:      e.Vendido,
		NumCotistas:  e.NumCotistas,
		DataCompra:   e.DataCompra,
		DataVenda:    cloneTime(e.DataVenda),
		StatusImovel: e.StatusImovel,
	}
}

// WithMetadata returns a copy of the entry carrying m as its property-level
// attributes. The cota share is recomputed for the new quota count.
func (e FinancialEntry) WithMetadata(m Metadata) FinancialEntry {
	e.Imovel = m.Imovel
	e.Estado = m.Estado
	e.Cidade = m.Cidade
	e.TipoCompra = m.TipoCompra
	e.Vendido = m.Vendido
	e.NumCotistas = m.NumCotistas
	e.DataCompra = m.DataCompra
	e.DataVenda = cloneTime(m.DataVenda)
	e.StatusImovel = m.StatusImovel
	e.Cota = Quota(e.FluxoCaixa, e.NumCotistas)
	return e
}

// DefaultMetadata is the metadata of a brand new property.
func DefaultMetadata(imovel string, today time.Time) Metadata {
	return Metadata{
		Imovel:       imovel,
		Estado:       "SP",
		TipoCompra:   AVista,
		Vendido:      VendidoNao,
		NumCotistas:  1,
		DataCompra:   Day(today),
		StatusImovel: EmAndamento,
	}
}

// CashFlow applies the sign convention of a field to a magnitude: Venda is an
// inflow, Valor Aquisição is reference-only and never moves cash, everything
// else is an outflow.
func CashFlow(descricao string, magnitude float64) float64 {
	switch descricao {
	case FieldVenda:
		return math.Abs(magnitude)
	case FieldValorAquisicao:
		return 0
	default:
		return -math.Abs(magnitude)
	}
}

// Quota is the per-co-investor share of a cash flow.
func Quota(fluxoCaixa float64, numCotistas int) float64 {
	if numCotistas < 1 {
		numCotistas = 1
	}
	return fluxoCaixa / float64(numCotistas)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Clone returns a deep copy of the entry.
func (e FinancialEntry) Clone() FinancialEntry {
	e.DataVenda = cloneTime(e.DataVenda)
	return e
}
