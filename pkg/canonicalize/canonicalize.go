// Package canonicalize strips non-deterministic values out of arbitrary
// JSON-shaped data and produces stable bytes suitable for hashing.
//
// It intentionally mirrors encoding/json.Marshal's behavior for maps
// (Go's encoding/json already sorts map[string]any keys), adding only
// the normalization steps stdlib does not do on its own: rejecting
// NaN/Inf floats, normalizing strings to Unicode NFC, and recursively
// stripping nil-valued optional fields so two
// structurally-equal-but-differently-populated objects hash the same.
package canonicalize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Canonicalize normalizes v into a form that marshals deterministically.
func Canonicalize(v any) (any, error) {
	return canonicalizeValue(v)
}

// Bytes canonicalizes v and returns its canonical JSON encoding.
func Bytes(v any) ([]byte, error) {
	c, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

func canonicalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		// Normalize to NFC so the same text arriving pre-composed from
		// one LLM provider and decomposed from another still hashes
		// the same.
		return norm.NFC.String(val), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("canonicalize: non-finite float %v is not representable", val)
		}
		return val, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if val[k] == nil {
				continue
			}
			cv, err := canonicalizeValue(val[k])
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			cv, err := canonicalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	default:
		// Re-marshal/unmarshal structs through map[string]any so struct
		// field ordering never leaks into the canonical form.
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("canonicalize: marshal: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return nil, fmt.Errorf("canonicalize: unmarshal: %w", err)
		}
		if _, ok := generic.(map[string]any); ok {
			return canonicalizeValue(generic)
		}
		if _, ok := generic.([]any); ok {
			return canonicalizeValue(generic)
		}
		return generic, nil
	}
}
