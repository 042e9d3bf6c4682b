package engine

import (
	"sort"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// scope is a read-only view of the store for one (property, scenario) pair,
// loaded fresh after every mutation.
type scope struct {
	imovel    string
	cenario   domain.Cenario
	all       []domain.FinancialEntry // every entry of the property, both scenarios
	active    []domain.FinancialEntry // entries of (imovel, cenario)
	projected []domain.FinancialEntry // entries of (imovel, Projetado)
	meta      domain.Metadata
}

func newScope(entries []domain.FinancialEntry, imovel string, cenario domain.Cenario, fallback domain.Metadata) *scope {
	sc := &scope{imovel: imovel, cenario: cenario}
	for _, e := range entries {
		if e.Imovel != imovel {
			continue
		}
		sc.all = append(sc.all, e)
		if e.Cenario == cenario {
			sc.active = append(sc.active, e)
		}
		if e.Cenario == domain.Projetado {
			sc.projected = append(sc.projected, e)
		}
	}
	sc.meta = sc.resolveMetadata(fallback)
	return sc
}

// resolveMetadata takes the metadata of the first entry of the active
// scenario, then of the planned one, then the fallback.
func (sc *scope) resolveMetadata(fallback domain.Metadata) domain.Metadata {
	switch {
	case len(sc.active) > 0:
		return sc.active[0].Metadata()
	case len(sc.projected) > 0:
		return sc.projected[0].Metadata()
	case len(sc.all) > 0:
		return sc.all[0].Metadata()
	}
	fallback.Imovel = sc.imovel
	return fallback
}

// own returns the entry of the active scenario labeled descricao.
func (sc *scope) own(descricao string) (domain.FinancialEntry, bool) {
	return find(sc.active, descricao)
}

func find(entries []domain.FinancialEntry, descricao string) (domain.FinancialEntry, bool) {
	for _, e := range entries {
		if e.Descricao == descricao {
			return e, true
		}
	}
	return domain.FinancialEntry{}, false
}

// replace swaps in the stored version of e after a write.
func (sc *scope) replace(e domain.FinancialEntry) {
	upsert := func(list []domain.FinancialEntry) []domain.FinancialEntry {
		for i := range list {
			if list[i].ID == e.ID {
				list[i] = e
				return list
			}
		}
		return append(list, e)
	}
	sc.all = upsert(sc.all)
	if e.Cenario == sc.cenario {
		sc.active = upsert(sc.active)
	}
	if e.Cenario == domain.Projetado {
		sc.projected = upsert(sc.projected)
	}
}

// propertyNames returns the sorted distinct property names.
func propertyNames(entries []domain.FinancialEntry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if !seen[e.Imovel] {
			seen[e.Imovel] = true
			names = append(names, e.Imovel)
		}
	}
	sort.Strings(names)
	return names
}
