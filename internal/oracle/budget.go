// Package oracle provides the escalation budget and the external judges
// that resolve pairs the reference leaves unknown.
package oracle

import "sync/atomic"

// Budget is the per-run escalation allowance. It is the only mutable state
// shared between validator workers; every run creates its own.
type Budget struct {
	limit     int64
	remaining atomic.Int64
}

// NewBudget creates a budget of n escalations. Negative n is treated as 0.
func NewBudget(n int) *Budget {
	b := &Budget{limit: int64(max(n, 0))}
	b.remaining.Store(b.limit)
	return b
}

// TryAcquire takes one unit of budget, reporting false once it is spent.
func (b *Budget) TryAcquire() bool {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Remaining returns the unspent budget
func (b *Budget) Remaining() int {
	return int(b.remaining.Load())
}

// Used returns how many escalations were taken
func (b *Budget) Used() int {
	return int(b.limit - b.remaining.Load())
}

// Limit returns the configured budget
func (b *Budget) Limit() int {
	return int(b.limit)
}
