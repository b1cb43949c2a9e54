// Package registry implements the Capability Registry & Router (C7):
// a thread-safe module registry, composite scoring over semantic match
// and resource headroom, and a per-module circuit breaker that gates
// routing the same way a liveness manager gates blocking state
// transitions.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// ErrModuleNotFound is the sentinel error for an unregistered
// module_id.
var ErrModuleNotFound = errors.New("registry: module not found")

// ErrDuplicateModule is the sentinel error for registering a
// (module_id, version) pair that is already registered.
var ErrDuplicateModule = errors.New("registry: module already registered at this version")

// DefaultSemanticWeight and DefaultResourceWeight are the composite
// score's default weights: alpha favors matching the query's intent,
// beta favors a module with spare capacity.
const (
	DefaultSemanticWeight = 0.6
	DefaultResourceWeight = 0.4

	// DefaultFailureThreshold is the number of consecutive dispatch
	// failures that opens a module's circuit.
	DefaultFailureThreshold = 5
)

// entry is one registered module's live state: its manifest, a
// resource headroom estimate, and its circuit breaker.
type entry struct {
	manifest contracts.ModuleManifest
	headroom float64
	breaker  *breakerState
}

// Registry is the thread-safe, in-process source of truth for
// installed capability modules: a scored router with circuit-breaker-
// aware candidate filtering in place of canary-percentage rollout.
type Registry struct {
	mu               sync.RWMutex
	modules          map[string]*entry
	semanticWeight   float64
	resourceWeight   float64
	failureThreshold int
	coolDown         time.Duration
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithWeights overrides the composite score's alpha/beta weights.
func WithWeights(semantic, resource float64) Option {
	return func(r *Registry) {
		r.semanticWeight = semantic
		r.resourceWeight = resource
	}
}

// WithFailureThreshold overrides how many consecutive failures open a
// module's circuit.
func WithFailureThreshold(n int) Option {
	return func(r *Registry) { r.failureThreshold = n }
}

// WithCoolDown overrides the open-circuit cool-down before a half-open probe.
func WithCoolDown(d time.Duration) Option {
	return func(r *Registry) { r.coolDown = d }
}

// New builds an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		modules:          make(map[string]*entry),
		semanticWeight:   DefaultSemanticWeight,
		resourceWeight:   DefaultResourceWeight,
		failureThreshold: DefaultFailureThreshold,
		coolDown:         DefaultCoolDown,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts a module's manifest and starts its circuit breaker
// closed. It is atomic and rejects a duplicate (module_id, version)
// pair outright rather than silently overwriting the existing entry
// and resetting its breaker state; registering a genuinely new
// version of an already-registered module_id still replaces the prior
// entry — a fresh version deserves a fresh trial, not the scar tissue
// of the version it supersedes.
func (r *Registry) Register(manifest contracts.ModuleManifest, headroom float64) error {
	if manifest.ModuleID == "" {
		return errors.New("registry: manifest missing module_id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.modules[manifest.ModuleID]; ok && existing.manifest.VersionString == manifest.VersionString {
		return fmt.Errorf("%w: %s@%s", ErrDuplicateModule, manifest.ModuleID, manifest.VersionString)
	}
	r.modules[manifest.ModuleID] = &entry{
		manifest: manifest,
		headroom: clampHeadroom(headroom),
		breaker:  newBreakerState(r.coolDown),
	}
	return nil
}

// Unregister removes a module entirely.
func (r *Registry) Unregister(moduleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[moduleID]; !ok {
		return ErrModuleNotFound
	}
	delete(r.modules, moduleID)
	return nil
}

// UpdateHeadroom adjusts a module's resource headroom estimate, e.g.
// after a scheduler reports current load.
func (r *Registry) UpdateHeadroom(moduleID string, headroom float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.modules[moduleID]
	if !ok {
		return ErrModuleNotFound
	}
	e.headroom = clampHeadroom(headroom)
	return nil
}

// Snapshot returns every registered manifest, sorted by module_id for
// deterministic iteration.
func (r *Registry) Snapshot() []contracts.ModuleManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]contracts.ModuleManifest, 0, len(r.modules))
	for _, e := range r.modules {
		out = append(out, e.manifest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out
}

// Allow implements orchestrator.CircuitChecker: a module is routable
// only while its breaker is not refusing calls.
func (r *Registry) Allow(moduleID string) bool {
	r.mu.RLock()
	e, ok := r.modules[moduleID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return e.breaker.allow()
}

// RecordSuccess closes a module's breaker after a successful dispatch.
func (r *Registry) RecordSuccess(moduleID string) {
	r.mu.RLock()
	e, ok := r.modules[moduleID]
	r.mu.RUnlock()
	if ok {
		e.breaker.recordSuccess()
	}
}

// RecordFailure counts a failed dispatch toward opening a module's breaker.
func (r *Registry) RecordFailure(moduleID string) {
	r.mu.RLock()
	e, ok := r.modules[moduleID]
	r.mu.RUnlock()
	if ok {
		e.breaker.recordFailure(r.failureThreshold)
	}
}

// Recommend scores every registered module against query and returns a
// ranked RoutingDecision. A module whose circuit is open drops to zero
// composite score but is still listed, so callers can see what was
// excluded and why rather than having it silently disappear.
func (r *Registry) Recommend(query string) *contracts.RoutingDecision {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]contracts.RoutingCandidate, 0, len(r.modules))
	for _, e := range r.modules {
		state := e.breaker.current()
		semantic := semanticMatch(query, e.manifest.Capabilities)
		composite := r.semanticWeight*semantic + r.resourceWeight*e.headroom
		if state == contracts.CircuitOpen {
			composite = 0
		}
		candidates = append(candidates, contracts.RoutingCandidate{
			ModuleID:       e.manifest.ModuleID,
			SemanticScore:  semantic,
			ResourceScore:  e.headroom,
			CompositeScore: composite,
			CircuitState:   state,
		})
	}

	// Highest composite first; ties break on module_id ascending so
	// routing is deterministic for a fixed snapshot and query.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CompositeScore != candidates[j].CompositeScore {
			return candidates[i].CompositeScore > candidates[j].CompositeScore
		}
		return candidates[i].ModuleID < candidates[j].ModuleID
	})

	return &contracts.RoutingDecision{Query: query, Candidates: candidates}
}

// semanticMatch is a token-overlap score in [0,1]: the fraction of the
// query's lowercased whitespace tokens that also appear among the
// module's declared capability tags. No embedding or vector-search
// library is wired in (see DESIGN.md), so matching is lexical rather
// than learned.
func semanticMatch(query string, capabilities []string) float64 {
	queryTokens := strings.Fields(strings.ToLower(query))
	if len(queryTokens) == 0 {
		return 0
	}
	tagSet := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		for _, tok := range strings.Fields(strings.ToLower(c)) {
			tagSet[tok] = struct{}{}
		}
	}
	if len(tagSet) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range queryTokens {
		if _, ok := tagSet[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

func clampHeadroom(h float64) float64 {
	if h < 0 {
		return 0
	}
	if h > 1 {
		return 1
	}
	return h
}
