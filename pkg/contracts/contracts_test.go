package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConversationStateHopsNeverNegative(t *testing.T) {
	c := &ConversationState{RemainingHops: 1}
	next := c.WithTransition("tool", nil, nil, time.Now())
	require.Equal(t, 0, next.RemainingHops)
	require.True(t, next.Terminal())

	next2 := next.WithTransition("tool", nil, nil, time.Now())
	require.Equal(t, 0, next2.RemainingHops)
}

func TestConversationStateAppendOnly(t *testing.T) {
	c := &ConversationState{
		RemainingHops: 3,
		Messages:      []ConversationMessage{{Role: RoleUser, Content: "hi"}},
	}
	next := c.WithTransition("llm", []ConversationMessage{{Role: RoleAgent, Content: "hello"}}, nil, time.Now())

	require.Len(t, c.Messages, 1, "original state must not mutate")
	require.Len(t, next.Messages, 2)
}

func TestExecutionPolicyMergeIsMonotone(t *testing.T) {
	base := ExecutionPolicy{
		Network: NetworkPolicy{Blocked: true},
		Imports: ImportPolicy{
			AllowedCategories: []string{"stdlib"},
			Forbidden:         []string{"os/exec"},
		},
		Resources: ResourcePolicy{Timeout: 10 * time.Second, MemoryBytes: 128 << 20},
	}
	other := ExecutionPolicy{
		Network: NetworkPolicy{Blocked: false, Allowlist: []string{"api.example.com"}},
		Imports: ImportPolicy{
			AllowedCategories: []string{"http_clients"},
			Forbidden:         []string{"eval"},
		},
		Resources: ResourcePolicy{Timeout: 30 * time.Second, MemoryBytes: 64 << 20},
	}

	merged := base.Merge(other)

	require.False(t, merged.Network.Blocked, "more permissive scalar wins")
	require.Contains(t, merged.Imports.Forbidden, "os/exec", "forbidden entries are never dropped")
	require.Contains(t, merged.Imports.Forbidden, "eval")
	require.Contains(t, merged.Imports.AllowedCategories, "stdlib")
	require.Contains(t, merged.Imports.AllowedCategories, "http_clients")
	require.Equal(t, 30*time.Second, merged.Resources.Timeout)
	require.EqualValues(t, 128<<20, merged.Resources.MemoryBytes, "picks larger of the two, not other's smaller value")
}

func TestFixHintTerminalCategories(t *testing.T) {
	require.True(t, FixPolicyViolation.IsTerminal())
	require.True(t, FixSecurityBlock.IsTerminal())
	require.False(t, FixTestFailure.IsTerminal())
}

func TestValidationReportDominantFixCategory(t *testing.T) {
	r := &ValidationReport{FixHints: []FixHint{
		{Category: FixTestFailure},
		{Category: FixTestFailure},
		{Category: FixSchemaError},
	}}
	cat, ok := r.DominantFixCategory()
	require.True(t, ok)
	require.Equal(t, FixTestFailure, cat)
}

func TestRoutingDecisionBest(t *testing.T) {
	d := &RoutingDecision{Candidates: []RoutingCandidate{
		{ModuleID: "weather/x", CompositeScore: 0.9},
	}}
	best, ok := d.Best()
	require.True(t, ok)
	require.Equal(t, "weather/x", best.ModuleID)

	empty := &RoutingDecision{}
	_, ok = empty.Best()
	require.False(t, ok)
}
