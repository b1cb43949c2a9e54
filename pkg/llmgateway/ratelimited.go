package llmgateway

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Client with outbound request shaping, protecting
// a provider's own rate limits from being hit by a burst of concurrent
// evolution jobs.
type RateLimited struct {
	Client
	limiter *rate.Limiter
}

// NewRateLimited wraps client with a token-bucket limiter allowing
// ratePerSecond sustained requests and burst additional requests.
func NewRateLimited(client Client, ratePerSecond float64, burst int) *RateLimited {
	return &RateLimited{Client: client, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Chat blocks until the limiter admits the call or ctx is cancelled.
func (r *RateLimited) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, options *SamplingOptions) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Client.Chat(ctx, messages, tools, options)
}
