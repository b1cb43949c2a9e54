package llmgateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name    string
	fail    int // number of calls to fail before succeeding
	calls   int
	resp    *Response
	failErr error
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, options *SamplingOptions) (*Response, error) {
	s.calls++
	if s.calls <= s.fail {
		return nil, s.failErr
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return &Response{Content: "ok", PromptTokens: 10, OutputTokens: 5}, nil
}

func fastPolicy() BackoffPolicy {
	return BackoffPolicy{BaseMs: 1, MaxMs: 2, MaxJitterMs: 1, MaxAttempts: 2}
}

func TestGatewayFallsOverToNextProviderOnExhaustion(t *testing.T) {
	primary := &stubClient{name: "primary", fail: 99, failErr: errors.New("upstream 500")}
	secondary := &stubClient{name: "secondary"}
	g := New(Lane{Name: "chat", Chain: []Client{primary, secondary}, Policy: fastPolicy()})

	resp, attempts, err := g.Call(context.Background(), "chat", "req-1", []Message{{Role: "user", Content: "hi"}}, nil, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "secondary", resp.Provider)
	require.Greater(t, len(attempts), 0)
}

func TestGatewayReturnsAllModelsFailed(t *testing.T) {
	primary := &stubClient{name: "primary", fail: 99, failErr: errors.New("down")}
	g := New(Lane{Name: "chat", Chain: []Client{primary}, Policy: fastPolicy()})

	_, _, err := g.Call(context.Background(), "chat", "req-2", []Message{{Role: "user", Content: "hi"}}, nil, nil, nil, nil)
	require.Error(t, err)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, ErrAllModelsFailed, gwErr.Code)
}

func TestGatewayUnknownLane(t *testing.T) {
	g := New()
	_, _, err := g.Call(context.Background(), "nonexistent", "req-3", []Message{{Role: "user", Content: "hi"}}, nil, nil, nil, nil)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, ErrUnknownLane, gwErr.Code)
}

func TestGatewayRejectsOverBudget(t *testing.T) {
	client := &stubClient{name: "only"}
	g := New(Lane{Name: "chat", Chain: []Client{client}, Policy: fastPolicy()})
	budget := NewTokenBudget("job-1", 1)

	longMsg := Message{Role: "user", Content: "this message is long enough to exceed a tiny token budget by a wide margin"}
	_, _, err := g.Call(context.Background(), "chat", "req-4", []Message{longMsg}, nil, nil, budget, nil)
	require.Error(t, err)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, ErrBudgetExceeded, gwErr.Code)
}

func TestGatewayFallsThroughOnSchemaInvalidWithoutRetryingSamePreference(t *testing.T) {
	primary := &stubClient{name: "primary", resp: &Response{Content: "bad", PromptTokens: 1, OutputTokens: 1}}
	secondary := &stubClient{name: "secondary", resp: &Response{Content: "good", PromptTokens: 1, OutputTokens: 1}}
	g := New(Lane{Name: "chat", Chain: []Client{primary, secondary}, Policy: fastPolicy()})

	validate := func(resp *Response) error {
		if resp.Content != "good" {
			return errors.New("does not satisfy output contract")
		}
		return nil
	}

	resp, attempts, err := g.Call(context.Background(), "chat", "req-5", []Message{{Role: "user", Content: "hi"}}, nil, nil, nil, validate)
	require.NoError(t, err)
	require.Equal(t, "secondary", resp.Provider)
	require.Equal(t, 1, primary.calls)
	require.Contains(t, attempts[0].Err, "does not satisfy output contract")
}

func TestGatewaySchemaInvalidOnAllPreferencesFails(t *testing.T) {
	primary := &stubClient{name: "primary", resp: &Response{Content: "bad"}}
	g := New(Lane{Name: "chat", Chain: []Client{primary}, Policy: fastPolicy()})

	validate := func(resp *Response) error { return errors.New("nope") }
	_, _, err := g.Call(context.Background(), "chat", "req-6", []Message{{Role: "user", Content: "hi"}}, nil, nil, nil, validate)
	require.Error(t, err)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, ErrAllModelsFailed, gwErr.Code)
	var cause *GatewayError
	require.ErrorAs(t, gwErr.Cause, &cause)
	require.Equal(t, ErrSchemaInvalid, cause.Code)
}

func TestComputeBackoffDeterministic(t *testing.T) {
	params := BackoffParams{PurposeLane: "chat", Provider: "primary", RequestID: "req-1", AttemptIndex: 1}
	policy := DefaultBackoffPolicy()
	d1 := ComputeBackoff(params, policy)
	d2 := ComputeBackoff(params, policy)
	require.Equal(t, d1, d2)
}

func TestComputeBackoffGrowsExponentially(t *testing.T) {
	policy := BackoffPolicy{BaseMs: 100, MaxMs: 100000, MaxJitterMs: 0, MaxAttempts: 5}
	d0 := ComputeBackoff(BackoffParams{AttemptIndex: 0}, policy)
	d1 := ComputeBackoff(BackoffParams{AttemptIndex: 1}, policy)
	d2 := ComputeBackoff(BackoffParams{AttemptIndex: 2}, policy)
	require.True(t, d1 > d0)
	require.True(t, d2 > d1)
}

func TestComputeBackoffCapsAtMax(t *testing.T) {
	policy := BackoffPolicy{BaseMs: 1000, MaxMs: 1500, MaxJitterMs: 0, MaxAttempts: 20}
	d := ComputeBackoff(BackoffParams{AttemptIndex: 10}, policy)
	require.LessOrEqual(t, d, 1500*time.Millisecond)
}

func TestTokenBudgetReserveAndConsume(t *testing.T) {
	b := NewTokenBudget("job-1", 100)
	require.NoError(t, b.Reserve(50))
	b.Consume(50)
	require.Equal(t, 50, b.Remaining())
	require.Error(t, b.Reserve(60))
}

func TestTokenBudgetUnboundedWhenZero(t *testing.T) {
	b := NewTokenBudget("job-1", 0)
	require.NoError(t, b.Reserve(1_000_000))
	require.Equal(t, -1, b.Remaining())
}
