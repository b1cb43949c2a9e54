package orchestrator

import (
	"context"
	"fmt"
)

// CircuitChecker reports whether a capability is currently routable —
// the orchestrator asks the Capability Registry & Router (C7) rather
// than tracking breaker state itself, so a tool call never bypasses
// the registry's open-circuit rejection.
type CircuitChecker interface {
	Allow(moduleID string) bool
}

// ToolDispatcher executes a single tool call against a resolved
// capability module.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, moduleID string, args map[string]any) (any, error)
}

// GatedDispatcher wraps a ToolDispatcher with a circuit-breaker check,
// refusing to dispatch to a module the registry has opened the circuit
// on rather than spending a call finding out.
type GatedDispatcher struct {
	checker CircuitChecker
	next    ToolDispatcher
}

// NewGatedDispatcher composes a CircuitChecker and the underlying dispatcher.
func NewGatedDispatcher(checker CircuitChecker, next ToolDispatcher) *GatedDispatcher {
	return &GatedDispatcher{checker: checker, next: next}
}

// Dispatch refuses with an error if the circuit is open; otherwise
// delegates.
func (d *GatedDispatcher) Dispatch(ctx context.Context, moduleID string, args map[string]any) (any, error) {
	if d.checker != nil && !d.checker.Allow(moduleID) {
		return nil, fmt.Errorf("orchestrator: circuit open for module %q", moduleID)
	}
	if d.next == nil {
		return nil, fmt.Errorf("orchestrator: no dispatcher configured (fail-closed)")
	}
	return d.next.Dispatch(ctx, moduleID, args)
}
