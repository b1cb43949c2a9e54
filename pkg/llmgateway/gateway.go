package llmgateway

import (
	"context"
	"time"
)

// ProviderAttempt records one upstream call for observability, whether
// it succeeded or not.
type ProviderAttempt struct {
	Provider     string        `json:"provider"`
	AttemptIndex int           `json:"attempt_index"`
	Latency      time.Duration `json:"latency"`
	Err          string        `json:"error,omitempty"`
}

// Lane is a purpose-scoped ordered fallback chain of providers —
// "scaffold", "implement", "repair", and "chat" each get their own
// chain so a cheap/fast model can serve low-stakes lanes while a
// stronger model backs the ones that matter.
type Lane struct {
	Name     string
	Chain    []Client
	Policy   BackoffPolicy
}

// Gateway routes purpose-scoped calls across provider fallback chains
// with deterministic retry/backoff, token budget enforcement, and
// structured-output validation.
type Gateway struct {
	lanes map[string]Lane
}

// New builds a Gateway from a set of purpose lanes.
func New(lanes ...Lane) *Gateway {
	g := &Gateway{lanes: make(map[string]Lane, len(lanes))}
	for _, l := range lanes {
		if l.Policy == (BackoffPolicy{}) {
			l.Policy = DefaultBackoffPolicy()
		}
		g.lanes[l.Name] = l
	}
	return g
}

// Call runs messages through the named lane: it walks the lane's
// provider chain in order, retrying each provider up to its backoff
// policy's MaxAttempts before failing over to the next, and returns
// ALL_MODELS_FAILED only once every provider in the chain is exhausted.
//
// When validate is non-nil, it is run against every successful
// response before that response is accepted: if validate rejects it,
// the preference is treated as failed outright — no retry of the same
// provider — and Call falls through to the next preference in the
// chain, exactly as it does for a transport-level provider error.
func (g *Gateway) Call(ctx context.Context, lane, requestID string, messages []Message, tools []ToolDefinition, options *SamplingOptions, budget *TokenBudget, validate func(*Response) error) (*Response, []ProviderAttempt, error) {
	l, ok := g.lanes[lane]
	if !ok {
		return nil, nil, &GatewayError{Code: ErrUnknownLane, Lane: lane}
	}

	estimated := estimateRequestTokens(messages)
	if err := budget.Reserve(estimated); err != nil {
		return nil, nil, &GatewayError{Code: ErrBudgetExceeded, Lane: lane, Cause: err}
	}

	var attempts []ProviderAttempt
	var lastErr error

providers:
	for _, client := range l.Chain {
		for attemptIdx := 0; attemptIdx < l.Policy.MaxAttempts; attemptIdx++ {
			if attemptIdx > 0 {
				delay := ComputeBackoff(BackoffParams{
					PurposeLane:  lane,
					Provider:     client.Name(),
					RequestID:    requestID,
					AttemptIndex: attemptIdx,
				}, l.Policy)
				if err := sleepOrCancel(ctx, delay); err != nil {
					return nil, attempts, err
				}
			}

			start := time.Now()
			resp, err := client.Chat(ctx, messages, tools, options)
			latency := time.Since(start)

			if err == nil {
				resp.Provider = client.Name()
				budget.Consume(resp.PromptTokens + resp.OutputTokens)

				if validate != nil {
					if verr := validate(resp); verr != nil {
						if ge, ok := verr.(*GatewayError); ok {
							lastErr = ge
						} else {
							lastErr = &GatewayError{Code: ErrSchemaInvalid, Lane: lane, Cause: verr}
						}
						attempts = append(attempts, ProviderAttempt{Provider: client.Name(), AttemptIndex: attemptIdx, Latency: latency, Err: lastErr.Error()})
						continue providers
					}
				}

				attempts = append(attempts, ProviderAttempt{Provider: client.Name(), AttemptIndex: attemptIdx, Latency: latency})
				return resp, attempts, nil
			}

			lastErr = err
			attempts = append(attempts, ProviderAttempt{Provider: client.Name(), AttemptIndex: attemptIdx, Latency: latency, Err: err.Error()})

			if ctx.Err() != nil {
				return nil, attempts, ctx.Err()
			}
		}
	}

	return nil, attempts, &GatewayError{Code: ErrAllModelsFailed, Lane: lane, Cause: lastErr}
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// estimateRequestTokens is a coarse pre-flight budget check: four
// characters per token, matching the common English-text heuristic
// used upstream of an actual tokenizer call.
func estimateRequestTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}
