package domain

// Field labels. Within one (imovel, cenario) pair a label identifies exactly
// one entry.
const (
	FieldVenda             = "Venda"
	FieldComissaoCorretor  = "Comissão Corretor"
	FieldImpostoGanho      = "Imposto de Ganho de Capital"
	FieldSaldoDevedor      = "Saldo Devedor"
	FieldValorAquisicao    = "Valor Aquisição"
	FieldEntrada           = "Entrada"
	FieldITBI              = "ITBI"
	FieldRegistro          = "Registro"
	FieldDespachante       = "Despachante"
	FieldComissaoLeiloeiro = "Comissão Leiloeiro"
	FieldTaxaFinanciamento = "Taxa Financiamento/Escritura"
	FieldReforma           = "Reforma"
	FieldDesocupacao       = "Desocupação"
	FieldDivida            = "Dívida"
	FieldPrestacao         = "Prestação"
	FieldCondominio        = "Condomínio"
	FieldIPTU              = "IPTU"
)

// FieldGroup is a set of fields sharing one expense category.
type FieldGroup struct {
	Title  string
	Type   TipoDespesa
	Fields []string
}

// FieldGroups lists every field of a property, grouped by category, in form
// order.
var FieldGroups = []FieldGroup{
	{
		Title:  "Venda",
		Type:   DespesaVenda,
		Fields: []string{FieldVenda, FieldComissaoCorretor, FieldImpostoGanho, FieldSaldoDevedor},
	},
	{
		Title: "Custo de Aquisição",
		Type:  DespesaCustoAquisicao,
		Fields: []string{
			FieldValorAquisicao, FieldEntrada, FieldITBI, FieldRegistro,
			FieldDespachante, FieldComissaoLeiloeiro, FieldTaxaFinanciamento,
		},
	},
	{
		Title: "Custo de Manutenção",
		Type:  DespesaCustoManutencao,
		Fields: []string{
			FieldReforma, FieldDesocupacao, FieldDivida,
			FieldPrestacao, FieldCondominio, FieldIPTU,
		},
	},
}

// TypeOf returns the expense category a field belongs to. Unknown labels are
// treated as acquisition costs.
func TypeOf(field string) TipoDespesa {
	for _, g := range FieldGroups {
		for _, f := range g.Fields {
			if f == field {
				return g.Type
			}
		}
	}
	return DespesaCustoAquisicao
}

// IsKnownField reports whether field is one of the labels in FieldGroups.
func IsKnownField(field string) bool {
	for _, g := range FieldGroups {
		for _, f := range g.Fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

// ManualFields are never derived: user edits are always accepted as-is.
var ManualFields = []string{
	FieldVenda, FieldReforma, FieldDesocupacao, FieldDivida,
	FieldDespachante, FieldIPTU, FieldSaldoDevedor, FieldValorAquisicao,
}

// MonthlyFields are entered as a monthly amount and stored annualized.
var MonthlyFields = []string{FieldPrestacao, FieldCondominio}

// Estados holds the Brazilian federative unit codes accepted as Estado.
var Estados = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA", "MT", "MS", "MG", "PA",
	"PB", "PR", "PE", "PI", "RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// IsManual reports whether field only ever takes user-entered values.
func IsManual(field string) bool { return contains(ManualFields, field) }

// IsMonthly reports whether field is entered as a monthly amount.
func IsMonthly(field string) bool { return contains(MonthlyFields, field) }

// IsValidEstado reports whether uf is a known state code.
func IsValidEstado(uf string) bool { return contains(Estados, uf) }
