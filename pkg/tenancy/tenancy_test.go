package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryLimiterAllowsWithinBurst(t *testing.T) {
	l := NewInMemoryLimiter()
	policy := Policy{RPM: 60, Burst: 3}

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(context.Background(), "org-1", policy, 1)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := l.Allow(context.Background(), "org-1", policy, 1)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestInMemoryLimiterTracksOrgsIndependently(t *testing.T) {
	l := NewInMemoryLimiter()
	policy := Policy{RPM: 60, Burst: 1}

	allowed, err := l.Allow(context.Background(), "org-a", policy, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = l.Allow(context.Background(), "org-b", policy, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestEvaluateFailsClosedWithoutLimiter(t *testing.T) {
	err := Evaluate(context.Background(), nil, "org-1", Policy{RPM: 60, Burst: 1})
	require.Error(t, err)
}

func TestEvaluateReturnsErrorWhenRateLimited(t *testing.T) {
	l := NewInMemoryLimiter()
	policy := Policy{RPM: 60, Burst: 1}
	require.NoError(t, Evaluate(context.Background(), l, "org-1", policy))
	require.Error(t, Evaluate(context.Background(), l, "org-1", policy))
}

func TestScopeGuardAllowsOwnedModule(t *testing.T) {
	g := NewScopeGuard()
	g.RegisterModule("org-1", "weather/basic")

	receipt := g.CheckAccess("org-1", []string{"weather/basic"})
	require.True(t, receipt.Scoped)
	require.Equal(t, 1, receipt.ChecksPassed)
	require.Empty(t, receipt.Violations)
}

func TestScopeGuardDeniesCrossOrgModule(t *testing.T) {
	g := NewScopeGuard()
	g.RegisterModule("org-1", "weather/basic")
	g.RegisterModule("org-2", "weather/private")

	receipt := g.CheckAccess("org-1", []string{"weather/private"})
	require.False(t, receipt.Scoped)
	require.Equal(t, 1, receipt.ChecksFailed)
	require.Len(t, receipt.Violations, 1)
}

func TestScopeGuardAllowsUnownedModule(t *testing.T) {
	g := NewScopeGuard()
	receipt := g.CheckAccess("org-1", []string{"shared/public"})
	require.True(t, receipt.Scoped)
	require.Equal(t, 1, receipt.ChecksPassed)
}

func TestScopeGuardDeterministicClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewScopeGuard().WithClock(func() time.Time { return fixed })
	receipt := g.CheckAccess("org-1", nil)
	require.Equal(t, fixed, receipt.Timestamp)
}
