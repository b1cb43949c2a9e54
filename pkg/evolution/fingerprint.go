package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// Fingerprint derives a stable identity for a failed attempt from the
// sorted set of its static-check failure names, its runtime failure
// count bucket, and its fix-hint categories. Two attempts that fail
// for the same underlying reason — even across different repair
// rewrites of the source — produce the same fingerprint, which is
// what lets ThrashDetector recognize the pipeline is going in circles.
func Fingerprint(report *contracts.ValidationReport) string {
	var errorTypes []string
	for _, r := range report.StaticResults {
		if !r.Passed {
			errorTypes = append(errorTypes, r.Name)
		}
	}
	sort.Strings(errorTypes)

	var categories []string
	for _, h := range report.FixHints {
		categories = append(categories, string(h.Category))
	}
	sort.Strings(categories)

	h := sha256.New()
	h.Write([]byte("evocore:fingerprint:v1\x00"))
	h.Write([]byte(strings.Join(errorTypes, ",")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(categories, ",")))
	h.Write([]byte{0})
	h.Write([]byte(runtimeFailureBucket(report.RuntimeResults.Failed + report.RuntimeResults.Errored)))
	return hex.EncodeToString(h.Sum(nil))
}

// runtimeFailureBucket coarsens the exact failing-test count into a
// small number of buckets so two attempts that fail a different subset
// of the same broken test suite (1 failure vs 2 failures, say) still
// fingerprint identically — the repair loop cares about "is this the
// same class of breakage", not an exact count.
func runtimeFailureBucket(n int) string {
	switch {
	case n == 0:
		return "0"
	case n <= 2:
		return "1-2"
	case n <= 5:
		return "3-5"
	default:
		return "6+"
	}
}

// ThrashDetector flags a repair loop that keeps producing the same
// failure fingerprint without making progress.
type ThrashDetector struct {
	threshold int
	seen      map[string]int
	lastSeen  string
}

// NewThrashDetector stops the loop once the same fingerprint has been
// observed threshold times in a row. The default, 2, matches "the
// current fingerprint equals the immediately prior fingerprint" —
// the loop stops the moment a failure repeats once, not after a third
// occurrence.
func NewThrashDetector(threshold int) *ThrashDetector {
	if threshold <= 0 {
		threshold = 2
	}
	return &ThrashDetector{threshold: threshold, seen: make(map[string]int)}
}

// Observe records a fingerprint and reports whether the loop is
// thrashing.
func (d *ThrashDetector) Observe(fingerprint string) bool {
	if fingerprint != d.lastSeen {
		d.lastSeen = fingerprint
		d.seen[fingerprint] = 1
		return false
	}
	d.seen[fingerprint]++
	return d.seen[fingerprint] >= d.threshold
}
