package llmgateway

import (
	"fmt"
	"sync"
)

// TokenBudgetError is a typed budget violation, reported rather than
// panicked so callers can fold it into a ValidationReport/FixHint.
type TokenBudgetError struct {
	JobID    string
	Limit    int
	Consumed int
}

func (e *TokenBudgetError) Error() string {
	return fmt.Sprintf("BUDGET_EXCEEDED: job %s consumed %d of %d tokens", e.JobID, e.Consumed, e.Limit)
}

// TokenBudget tracks cumulative prompt+output token spend for a single
// job (one Self-Evolution Pipeline build, across all of its repair
// attempts), shared across every call the job makes through the Gateway.
type TokenBudget struct {
	mu       sync.Mutex
	jobID    string
	limit    int
	consumed int
}

// NewTokenBudget creates a budget for jobID with the given token ceiling.
// A non-positive limit means unbounded.
func NewTokenBudget(jobID string, limit int) *TokenBudget {
	return &TokenBudget{jobID: jobID, limit: limit}
}

// Reserve checks whether spending n more tokens would exceed the
// budget, without consuming them — used to reject a call before it is
// ever sent upstream.
func (b *TokenBudget) Reserve(n int) error {
	if b == nil || b.limit <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed+n > b.limit {
		return &TokenBudgetError{JobID: b.jobID, Limit: b.limit, Consumed: b.consumed + n}
	}
	return nil
}

// Consume records actual spend from a completed Response.
func (b *TokenBudget) Consume(n int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumed += n
}

// Remaining reports tokens left, or -1 if unbounded.
func (b *TokenBudget) Remaining() int {
	if b == nil || b.limit <= 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit - b.consumed
}
