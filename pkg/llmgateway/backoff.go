package llmgateway

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// BackoffParams identifies one retry attempt for deterministic jitter
// derivation — the same request retried twice produces the same delay
// schedule, which keeps attempt replay reproducible in tests and audits.
type BackoffParams struct {
	PurposeLane  string
	Provider     string
	RequestID    string
	AttemptIndex int
}

// BackoffPolicy bounds the exponential schedule.
type BackoffPolicy struct {
	BaseMs      int64
	MaxMs       int64
	MaxJitterMs int64
	MaxAttempts int
}

// DefaultBackoffPolicy is used when a purpose lane does not override it.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{BaseMs: 250, MaxMs: 8000, MaxJitterMs: 200, MaxAttempts: 4}
}

// ComputeBackoff returns the delay before a given attempt: exponential
// growth from BaseMs, capped at MaxMs, plus deterministic jitter.
func ComputeBackoff(params BackoffParams, policy BackoffPolicy) time.Duration {
	factor := int64(1)
	if params.AttemptIndex > 0 {
		if params.AttemptIndex > 30 {
			factor = 1 << 30
		} else {
			factor = 1 << params.AttemptIndex
		}
	}

	baseDelay := policy.BaseMs * factor
	if baseDelay > policy.MaxMs {
		baseDelay = policy.MaxMs
	}

	jitter := computeDeterministicJitter(params, policy)
	return time.Duration(baseDelay+jitter) * time.Millisecond
}

// computeDeterministicJitter derives a pseudo-random but repeatable
// jitter value from a SHA-256 PRF over the attempt identity. Using
// crypto/rand here would make identical attempts diverge on replay.
func computeDeterministicJitter(params BackoffParams, policy BackoffPolicy) int64 {
	if policy.MaxJitterMs == 0 {
		return 0
	}
	seed := fmt.Sprintf("%s:%s:%s:%d", params.PurposeLane, params.Provider, params.RequestID, params.AttemptIndex)
	hash := sha256.Sum256([]byte(seed))
	basis := binary.BigEndian.Uint64(hash[:8])
	return int64(basis % uint64(policy.MaxJitterMs))
}
