// Package budget bounds a single orchestration run by item count and wall
// clock. The orchestrator polls Exhausted between every unit of work and
// stops pulling new work the moment either dimension runs out; work already
// in flight is never aborted.
package budget

import "time"

// Budget tracks the remaining allowance of one run. It is not safe for
// concurrent use; a run processes items sequentially.
type Budget struct {
	maxItems  int
	spent     int
	deadline  time.Time
	now       func() time.Time
	exhausted bool
}

// New creates a budget capped at maxItems units of work and maxRuntime of
// wall clock, measured from now.
func New(maxItems int, maxRuntime time.Duration) *Budget {
	return newWithClock(maxItems, maxRuntime, time.Now)
}

func newWithClock(maxItems int, maxRuntime time.Duration, now func() time.Time) *Budget {
	return &Budget{
		maxItems: maxItems,
		deadline: now().Add(maxRuntime),
		now:      now,
	}
}

// Spend consumes one item of budget. A failed attempt still costs budget,
// which prevents retry loops from starving a run.
func (b *Budget) Spend() {
	b.spent++
}

// RemainingItems reports how many items may still be processed.
func (b *Budget) RemainingItems() int {
	r := b.maxItems - b.spent
	if r < 0 {
		return 0
	}
	return r
}

// RemainingTime reports the wall clock left before the deadline.
func (b *Budget) RemainingTime() time.Duration {
	r := b.deadline.Sub(b.now())
	if r < 0 {
		return 0
	}
	return r
}

// Exhausted reports whether either dimension has run out. Once true it stays
// true for the remainder of the run.
func (b *Budget) Exhausted() bool {
	if b.exhausted {
		return true
	}
	if b.RemainingItems() == 0 || b.RemainingTime() == 0 {
		b.exhausted = true
	}
	return b.exhausted
}
