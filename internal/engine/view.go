package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// FieldView is one field of the property form.
type FieldView struct {
	Label       string  `json:"label"`
	Valor       float64 `json:"valor"` // magnitude
	Cota        float64 `json:"cota"`  // magnitude per quota
	Present     bool    `json:"present"`
	Editable    bool    `json:"editable"`
	Manual      bool    `json:"manual"`
	Hidden      bool    `json:"hidden"`
	Overridden  bool    `json:"overridden"`
	Replicated  bool    `json:"replicated"`
	Highlighted bool    `json:"highlighted"`
	Monthly     bool    `json:"monthly"`
}

// GroupView is one category of the property form.
type GroupView struct {
	Title  string             `json:"title"`
	Type   domain.TipoDespesa `json:"type"`
	Fields []FieldView        `json:"fields"`
}

// PropertyView is everything a presentation layer needs to show the active
// property. Imovel is empty when no property exists.
type PropertyView struct {
	Imovel      string          `json:"imovel"`
	Cenario     domain.Cenario  `json:"cenario"`
	Metadata    domain.Metadata `json:"metadata"`
	Groups      []GroupView     `json:"groups"`
	Rates       Rates           `json:"rates"`
	Summary     Summary         `json:"summary"`
	PendingUndo string          `json:"pendingUndo,omitempty"`
}

var highlightedFields = []string{
	domain.FieldVenda, domain.FieldEntrada, domain.FieldReforma, domain.FieldDesocupacao,
	domain.FieldDivida, domain.FieldCondominio, domain.FieldIPTU, domain.FieldValorAquisicao,
}

// hiddenForAVista fields only apply to a financed purchase.
var hiddenForAVista = []string{
	domain.FieldSaldoDevedor, domain.FieldPrestacao, domain.FieldValorAquisicao,
}

func isManual(tipo domain.TipoCompra, field string) bool {
	return domain.IsManual(field) || (tipo == domain.AVista && field == domain.FieldEntrada)
}

func in(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// View builds the view of the active property and scenario. With no property
// it returns an empty view with a zero summary.
func (s *Session) View(ctx context.Context) (PropertyView, error) {
	sc, err := s.load(ctx)
	if errors.Is(err, ErrNoActiveProperty) {
		return PropertyView{Cenario: s.cenario, Rates: s.rates}, nil
	}
	if err != nil {
		return PropertyView{}, fmt.Errorf("View: %w", err)
	}

	tipo := sc.meta.TipoCompra
	cotistas := max(sc.meta.NumCotistas, 1)
	vals := sc.values()

	v := PropertyView{
		Imovel:   sc.imovel,
		Cenario:  sc.cenario,
		Metadata: sc.meta,
		Rates:    s.rates,
		Summary:  Summarize(vals, sc.meta, s.now()),
	}
	if name, ok := s.undo.pending(); ok {
		v.PendingUndo = name
	}

	for _, g := range domain.FieldGroups {
		gv := GroupView{Title: g.Title, Type: g.Type}
		for _, f := range g.Fields {
			_, replicated, present := sc.lookup(f)
			editable := !readOnly(tipo, f)
			gv.Fields = append(gv.Fields, FieldView{
				Label:       f,
				Valor:       vals[f],
				Cota:        vals[f] / float64(cotistas),
				Present:     present,
				Editable:    editable,
				Manual:      isManual(tipo, f),
				Hidden:      tipo == domain.AVista && in(hiddenForAVista, f),
				Overridden:  s.overrides.IsOverridden(f),
				Replicated:  replicated,
				Highlighted: editable && in(highlightedFields, f),
				Monthly:     domain.IsMonthly(f),
			})
		}
		v.Groups = append(v.Groups, gv)
	}
	return v, nil
}

// Field returns the view of one field, if present in v.
func (v PropertyView) Field(label string) (FieldView, bool) {
	for _, g := range v.Groups {
		for _, f := range g.Fields {
			if f.Label == label {
				return f, true
			}
		}
	}
	return FieldView{}, false
}

// SummaryOf returns the summary of any property and scenario without
// touching the session selection. Rates do not matter here: the summary reads
// stored values only.
func (s *Session) SummaryOf(ctx context.Context, imovel string, cenario domain.Cenario) (Summary, domain.Metadata, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return Summary{}, domain.Metadata{}, fmt.Errorf("SummaryOf: list entries: %w", err)
	}
	sc := newScope(entries, imovel, cenario, domain.DefaultMetadata(imovel, s.now()))
	if len(sc.all) == 0 {
		return Summary{}, domain.Metadata{}, fmt.Errorf("SummaryOf %q: %w", imovel, ErrUnknownProperty)
	}
	return Summarize(sc.values(), sc.meta, s.now()), sc.meta, nil
}
