package engine

import (
	"context"
	"fmt"

	"github.com/dvloznov/imoveis-tracker/internal/logger"
)

// MaxPasses bounds Recompute. With the ordered rule table one pass normally
// reaches the fixed point.
const MaxPasses = 4

// RecomputeResult describes one Recompute call.
type RecomputeResult struct {
	Passes    int
	Writes    int
	Converged bool
}

// Recompute re-evaluates every derived field of the active property and
// scenario, writing the values that moved by more than Tolerance. It stops at
// the first pass that writes nothing.
func (s *Session) Recompute(ctx context.Context) (RecomputeResult, error) {
	sc, err := s.load(ctx)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("Recompute: %w", err)
	}
	res, err := s.recompute(ctx, sc)
	if err != nil {
		return res, fmt.Errorf("Recompute: %w", err)
	}
	return res, nil
}

func (s *Session) recompute(ctx context.Context, sc *scope) (RecomputeResult, error) {
	log := logger.ForProperty(s.log, sc.imovel, string(sc.cenario))
	var res RecomputeResult
	for res.Passes < MaxPasses {
		writes := Plan(sc.meta.TipoCompra, sc.values(), s.rates, s.overrides.IsOverridden)
		res.Passes++
		if len(writes) == 0 {
			res.Converged = true
			break
		}
		for _, w := range writes {
			if err := s.write(ctx, sc, w.Field, w.Value); err != nil {
				return res, fmt.Errorf("write derived field: %w", err)
			}
			log.Debug().
				Str("field", w.Field).
				Float64("value", w.Value).
				Msg("Derived field updated")
		}
		res.Writes += len(writes)
	}

	if !res.Converged {
		log.Warn().
			Int("passes", res.Passes).
			Int("writes", res.Writes).
			Msg("Recompute did not converge")
	}
	s.rec.RecomputeDone(res.Passes, res.Writes, res.Converged)
	return res, nil
}
