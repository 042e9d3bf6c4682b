// Package engine keeps the formula-derived fields of a property consistent
// with its manually entered fields and computes its profitability.
//
// A Session is the unit of work: it tracks the active property and scenario,
// the fields the user overrode, and the rates in effect. Every mutation is
// followed by an explicit, bounded Recompute. A Session is not safe for
// concurrent use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/store"
	"github.com/rs/zerolog"
)

var (
	ErrNoActiveProperty = errors.New("no active property")
	ErrUnknownProperty  = errors.New("unknown property")
	ErrEmptyName        = errors.New("property name is empty")
	ErrNameInUse        = errors.New("a property with this name already exists")
	ErrInvalidEstado    = errors.New("invalid estado")
	ErrInvalidCotistas  = errors.New("numCotistas must be at least 1")
	ErrInvalidOption    = errors.New("value is not one of the allowed options")
	ErrReadOnlyField    = errors.New("field is derived and read-only for this purchase type")
	ErrUnknownField     = errors.New("unknown field")
)

// Recorder receives engine events for metrics.
type Recorder interface {
	RecomputeDone(passes, writes int, converged bool)
	LifecycleOp(op string)
}

type nopRecorder struct{}

func (nopRecorder) RecomputeDone(int, int, bool) {}
func (nopRecorder) LifecycleOp(string)           {}

// Session is the engine state bound to one entry store.
type Session struct {
	store     store.EntryStore
	log       zerolog.Logger
	rec       Recorder
	now       func() time.Time
	listeners []store.RenameListener
	undo      *undoBuffer

	active    string
	cenario   domain.Cenario
	overrides *Overrides
	rates     Rates
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	log        zerolog.Logger
	rec        Recorder
	now        func() time.Time
	listeners  []store.RenameListener
	undoWindow time.Duration
	after      afterFunc
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *sessionConfig) { c.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(c *sessionConfig) { c.rec = rec }
}

// WithClock sets the clock used for "today" and for unsold durations.
func WithClock(now func() time.Time) Option {
	return func(c *sessionConfig) { c.now = now }
}

// WithRenameListeners registers collaborators to notify after a rename.
func WithRenameListeners(listeners ...store.RenameListener) Option {
	return func(c *sessionConfig) { c.listeners = append(c.listeners, listeners...) }
}

// WithUndoWindow sets how long a deletion stays recoverable.
func WithUndoWindow(d time.Duration) Option {
	return func(c *sessionConfig) { c.undoWindow = d }
}

// NewSession creates a session over st with no active property.
func NewSession(st store.EntryStore, opts ...Option) *Session {
	cfg := sessionConfig{
		log:        zerolog.Nop(),
		rec:        nopRecorder{},
		now:        time.Now,
		undoWindow: DefaultUndoWindow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		store:     st,
		log:       cfg.log,
		rec:       cfg.rec,
		now:       cfg.now,
		listeners: cfg.listeners,
		undo:      newUndoBuffer(cfg.undoWindow, cfg.after),
		cenario:   domain.Projetado,
		overrides: NewOverrides(),
		rates:     DefaultRates(),
	}
}

// Close cancels the pending undo timer. The pending deletion becomes permanent.
func (s *Session) Close() {
	s.undo.stop()
}

// Active returns the active property (empty if none) and scenario.
func (s *Session) Active() (string, domain.Cenario) {
	return s.active, s.cenario
}

// Rates returns the rates in effect.
func (s *Session) Rates() Rates { return s.rates }

// Overrides returns the overridden fields of the current session.
func (s *Session) Overrides() []string { return s.overrides.Fields() }

// resetSession drops overrides and restores default rates. It runs whenever
// the active property or scenario changes.
func (s *Session) resetSession() {
	s.overrides.Reset()
	s.rates = DefaultRates()
}

// Select makes imovel the active property.
func (s *Session) Select(ctx context.Context, imovel string) error {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("Select: list entries: %w", err)
	}
	if !store.Names(entries)[imovel] {
		return fmt.Errorf("Select %q: %w", imovel, ErrUnknownProperty)
	}
	if imovel != s.active {
		s.active = imovel
		s.resetSession()
	}
	return nil
}

// SetScenario switches the active scenario.
func (s *Session) SetScenario(c domain.Cenario) error {
	if c != domain.Projetado && c != domain.Executado {
		return fmt.Errorf("SetScenario: scenario %q: %w", c, ErrInvalidOption)
	}
	if c != s.cenario {
		s.cenario = c
		s.resetSession()
	}
	return nil
}

// ensureActive drops an active property that no longer exists and picks the
// first property in sorted order when none is active.
func (s *Session) ensureActive(entries []domain.FinancialEntry) {
	names := propertyNames(entries)
	if s.active != "" {
		for _, n := range names {
			if n == s.active {
				return
			}
		}
	}
	next := ""
	if len(names) > 0 {
		next = names[0]
	}
	if next != s.active {
		s.active = next
		s.resetSession()
	}
}

// load reads the active (property, scenario) scope.
func (s *Session) load(ctx context.Context) (*scope, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	s.ensureActive(entries)
	if s.active == "" {
		return nil, ErrNoActiveProperty
	}
	return newScope(entries, s.active, s.cenario, domain.DefaultMetadata(s.active, s.now())), nil
}

// write stores magnitude as the value of descricao in the active scenario,
// creating the entry on first write.
func (s *Session) write(ctx context.Context, sc *scope, descricao string, magnitude float64) error {
	cotistas := max(sc.meta.NumCotistas, 1)

	if e, ok := sc.own(descricao); ok {
		e.NumCotistas = cotistas
		e = e.WithMagnitude(magnitude)
		if err := s.store.UpdateEntry(ctx, e); err != nil {
			return fmt.Errorf("update %q: %w", descricao, err)
		}
		sc.replace(e)
		return nil
	}

	meta := sc.meta
	meta.NumCotistas = cotistas
	e := domain.FinancialEntry{
		Cenario:     sc.cenario,
		TipoDespesa: domain.TypeOf(descricao),
		Descricao:   descricao,
	}.WithMetadata(meta).WithMagnitude(magnitude)
	added, err := s.store.AddEntry(ctx, e)
	if err != nil {
		return fmt.Errorf("add %q: %w", descricao, err)
	}
	sc.replace(added)
	return nil
}
