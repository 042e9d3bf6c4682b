package engine

import (
	"sync"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
)

// DefaultUndoWindow is how long a deleted property stays recoverable.
const DefaultUndoWindow = 5 * time.Second

// stopper is the part of *time.Timer the undo buffer needs.
type stopper interface {
	Stop() bool
}

// afterFunc schedules f after d. It is time.AfterFunc outside tests.
type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }

// deletion is the content of the undo slot.
type deletion struct {
	imovel  string
	entries []domain.FinancialEntry
}

// undoBuffer holds the most recent deletion for a grace window. Holding a new
// deletion replaces the previous one and its timer.
type undoBuffer struct {
	mu     sync.Mutex
	window time.Duration
	after  afterFunc

	slot  *deletion
	timer stopper
	gen   uint64 // bumped on every hold so a stale timer cannot clear a newer slot
}

func newUndoBuffer(window time.Duration, after afterFunc) *undoBuffer {
	if after == nil {
		after = realAfterFunc
	}
	return &undoBuffer{window: window, after: after}
}

// hold stores a deletion and starts its expiry timer.
func (u *undoBuffer) hold(imovel string, entries []domain.FinancialEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.timer != nil {
		u.timer.Stop()
	}
	copies := make([]domain.FinancialEntry, len(entries))
	for i, e := range entries {
		copies[i] = e.Clone()
	}
	u.gen++
	gen := u.gen
	u.slot = &deletion{imovel: imovel, entries: copies}
	u.timer = u.after(u.window, func() { u.expire(gen) })
}

func (u *undoBuffer) expire(gen uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.gen != gen {
		return
	}
	u.slot = nil
	u.timer = nil
}

// take empties the slot and returns its content.
func (u *undoBuffer) take() (deletion, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.slot == nil {
		return deletion{}, false
	}
	d := *u.slot
	u.slot = nil
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.gen++
	return d, true
}

// pending returns the name of the recoverable property, if any.
func (u *undoBuffer) pending() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.slot == nil {
		return "", false
	}
	return u.slot.imovel, true
}

// stop cancels the timer and drops the slot.
func (u *undoBuffer) stop() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.timer != nil {
		u.timer.Stop()
	}
	u.slot = nil
	u.timer = nil
	u.gen++
}
