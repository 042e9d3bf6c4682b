package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// readOnly reports whether field is fully formula-driven for the purchase
// type and rejects direct edits.
func readOnly(tipo domain.TipoCompra, field string) bool {
	switch tipo {
	case domain.AVista:
		return field == domain.FieldImpostoGanho
	case domain.Financiado:
		return field == domain.FieldEntrada || field == domain.FieldComissaoLeiloeiro
	}
	return false
}

// SetValue stores a user-entered magnitude for field in the active scenario,
// marks the field overridden and recomputes the derived fields.
func (s *Session) SetValue(ctx context.Context, field string, magnitude float64) error {
	if !domain.IsKnownField(field) {
		return fmt.Errorf("SetValue %q: %w", field, ErrUnknownField)
	}
	sc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("SetValue: %w", err)
	}
	if readOnly(sc.meta.TipoCompra, field) {
		return fmt.Errorf("SetValue %q: %w", field, ErrReadOnlyField)
	}

	s.overrides.Mark(field)
	if err := s.write(ctx, sc, field, math.Abs(magnitude)); err != nil {
		return fmt.Errorf("SetValue: %w", err)
	}
	if _, err := s.recompute(ctx, sc); err != nil {
		return fmt.Errorf("SetValue: recompute: %w", err)
	}
	return nil
}

// SetMonthlyValue stores a monthly amount of a recurring cost as its yearly
// total.
func (s *Session) SetMonthlyValue(ctx context.Context, field string, monthly float64) error {
	if !domain.IsMonthly(field) {
		return fmt.Errorf("SetMonthlyValue %q: not a monthly field", field)
	}
	return s.SetValue(ctx, field, monthly*12)
}

// SetRate changes one rate. The field it drives leaves manual mode and is
// rewritten at once.
func (s *Session) SetRate(ctx context.Context, kind RateKind, pct float64) error {
	target, ok := rateTarget[kind]
	if !ok {
		return fmt.Errorf("SetRate: unknown rate %q", kind)
	}
	if pct < 0 || math.IsNaN(pct) || math.IsInf(pct, 0) {
		pct = 0
	}
	sc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("SetRate: %w", err)
	}

	s.rates = s.rates.With(kind, pct)
	s.overrides.Clear(target)
	if _, err := s.recompute(ctx, sc); err != nil {
		return fmt.Errorf("SetRate: recompute: %w", err)
	}
	return nil
}

// MetadataUpdate lists the property attributes to change. Nil fields are left
// as they are.
type MetadataUpdate struct {
	Estado      *string            `json:"estado,omitempty"`
	Cidade      *string            `json:"cidade,omitempty"`
	TipoCompra  *domain.TipoCompra `json:"tipoCompra,omitempty"`
	Vendido     *domain.Vendido    `json:"vendido,omitempty"`
	NumCotistas *int               `json:"numCotistas,omitempty"`
	DataCompra  *time.Time         `json:"dataCompra,omitempty"`
	DataVenda   *time.Time         `json:"dataVenda,omitempty"`
}

// apply validates u and returns m with the update applied.
func (u MetadataUpdate) apply(m domain.Metadata) (domain.Metadata, error) {
	if u.Estado != nil {
		if !domain.IsValidEstado(*u.Estado) {
			return m, fmt.Errorf("%q: %w", *u.Estado, ErrInvalidEstado)
		}
		m.Estado = *u.Estado
	}
	if u.Cidade != nil {
		m.Cidade = *u.Cidade
	}
	if u.TipoCompra != nil {
		if *u.TipoCompra != domain.AVista && *u.TipoCompra != domain.Financiado {
			return m, fmt.Errorf("purchase type %q: %w", *u.TipoCompra, ErrInvalidOption)
		}
		m.TipoCompra = *u.TipoCompra
	}
	if u.Vendido != nil {
		if *u.Vendido != domain.VendidoSim && *u.Vendido != domain.VendidoNao {
			return m, fmt.Errorf("sold flag %q: %w", *u.Vendido, ErrInvalidOption)
		}
		m.Vendido = *u.Vendido
	}
	if u.NumCotistas != nil {
		if *u.NumCotistas < 1 {
			return m, fmt.Errorf("%d: %w", *u.NumCotistas, ErrInvalidCotistas)
		}
		m.NumCotistas = *u.NumCotistas
	}
	if u.DataCompra != nil {
		compra := domain.Day(*u.DataCompra)
		// The sale date follows the purchase date until the user sets it.
		if u.DataVenda == nil && (m.DataVenda == nil || m.DataVenda.Equal(m.DataCompra.AddDate(1, 0, 0))) {
			venda := compra.AddDate(1, 0, 0)
			m.DataVenda = &venda
		}
		m.DataCompra = compra
	}
	if u.DataVenda != nil {
		venda := domain.Day(*u.DataVenda)
		m.DataVenda = &venda
	}
	return m, nil
}

// SetMetadata changes property attributes on every entry of the active
// property, in both scenarios. Changing the purchase type drops all overrides.
func (s *Session) SetMetadata(ctx context.Context, u MetadataUpdate) error {
	sc, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("SetMetadata: %w", err)
	}
	m, err := u.apply(sc.meta)
	if err != nil {
		return fmt.Errorf("SetMetadata: %w", err)
	}
	m.Imovel = sc.imovel

	for _, e := range sc.all {
		updated := e.WithMetadata(m)
		if err := s.store.UpdateEntry(ctx, updated); err != nil {
			return fmt.Errorf("SetMetadata: update entry %s: %w", e.ID, err)
		}
		sc.replace(updated)
	}
	if m.TipoCompra != sc.meta.TipoCompra {
		s.overrides.Reset()
		s.log.Info().
			Str("imovel", sc.imovel).
			Str("tipoCompra", string(m.TipoCompra)).
			Msg("Purchase type changed, overrides cleared")
	}
	sc.meta = m

	if _, err := s.recompute(ctx, sc); err != nil {
		return fmt.Errorf("SetMetadata: recompute: %w", err)
	}
	return nil
}
