package engine

import "github.com/dvloznov/imoveis-tracker/internal/domain"

// replicatedFields fall back to their planned value while the executed
// scenario has no entry of its own.
var replicatedFields = map[string]bool{
	domain.FieldEntrada:           true,
	domain.FieldComissaoLeiloeiro: true,
}

// lookup resolves the effective entry of a field. In the executed scenario a
// missing Entrada or Comissão Leiloeiro reads through to the planned scenario
// without creating an entry; replicated reports that case. A miss on both
// sides is not an error, the field is simply absent.
func (sc *scope) lookup(descricao string) (e domain.FinancialEntry, replicated, ok bool) {
	if e, ok := sc.own(descricao); ok {
		return e, false, true
	}
	if sc.cenario != domain.Executado || !replicatedFields[descricao] {
		return domain.FinancialEntry{}, false, false
	}
	if e, ok := find(sc.projected, descricao); ok {
		return e, true, true
	}
	return domain.FinancialEntry{}, false, false
}

// values returns the effective magnitude of every known field.
func (sc *scope) values() Values {
	v := make(Values)
	for _, g := range domain.FieldGroups {
		for _, f := range g.Fields {
			if e, _, ok := sc.lookup(f); ok {
				v[f] = e.Magnitude()
			}
		}
	}
	return v
}
