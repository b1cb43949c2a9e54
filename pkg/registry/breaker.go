package registry

import (
	"sync"
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// DefaultCoolDown is how long a breaker stays open before allowing a
// single half-open probe: a fixed wait, not a growing backoff curve.
const DefaultCoolDown = 30 * time.Second

// breakerState is a per-module circuit breaker: closed routes freely,
// open rejects until the cool-down elapses, half-open allows exactly
// one probe call through before deciding the next state.
type breakerState struct {
	mu             sync.Mutex
	state          contracts.CircuitState
	openedAt       time.Time
	coolDown       time.Duration
	probeInFlight  bool
	consecutiveErr int
}

func newBreakerState(coolDown time.Duration) *breakerState {
	if coolDown <= 0 {
		coolDown = DefaultCoolDown
	}
	return &breakerState{state: contracts.CircuitClosed, coolDown: coolDown}
}

// allow reports whether a call may proceed, transitioning open->half-open
// once the cool-down has elapsed. Only one probe is let through at a time.
func (b *breakerState) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case contracts.CircuitClosed:
		return true
	case contracts.CircuitOpen:
		if time.Since(b.openedAt) < b.coolDown {
			return false
		}
		b.state = contracts.CircuitHalfOpen
		b.probeInFlight = true
		return true
	case contracts.CircuitHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	default:
		return false
	}
}

// recordSuccess closes the breaker and clears the failure streak.
func (b *breakerState) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = contracts.CircuitClosed
	b.consecutiveErr = 0
	b.probeInFlight = false
}

// recordFailure opens the breaker after failureThreshold consecutive
// failures, or immediately on a failed half-open probe.
func (b *breakerState) recordFailure(failureThreshold int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == contracts.CircuitHalfOpen {
		b.state = contracts.CircuitOpen
		b.openedAt = time.Now().UTC()
		b.probeInFlight = false
		return
	}

	b.consecutiveErr++
	if b.consecutiveErr >= failureThreshold {
		b.state = contracts.CircuitOpen
		b.openedAt = time.Now().UTC()
	}
}

func (b *breakerState) current() contracts.CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
