// Package evolution implements the Self-Evolution Pipeline (C5):
// scaffold/implement/test/repair stage composition, idempotent job
// identity, blueprint confidence scoring, a bounded repair loop with
// failure-fingerprint thrash detection, and the install guard that
// gates a validated bundle into the Capability Registry.
package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/forgeflow/evocore/pkg/canonicalize"
	"github.com/forgeflow/evocore/pkg/contracts"
)

// Stage is one phase of a build attempt.
type Stage string

const (
	StageScaffold  Stage = "scaffold"
	StageImplement Stage = "implement"
	StageTest      Stage = "test"
	StageRepair    Stage = "repair"
)

// BuildSession tracks one module's progress through the pipeline,
// keyed by an idempotent JobID so a retried request for the same
// blueprint never starts a second, divergent session.
type BuildSession struct {
	JobID       string                    `json:"job_id"`
	OrgID       string                    `json:"org_id"`
	ModuleID    string                    `json:"module_id"`
	Stage       Stage                     `json:"stage"`
	Attempts    []contracts.AttemptRecord `json:"attempts"`
	Termination contracts.BuildTerminationReason `json:"termination,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// NewJobID derives a stable job identity from the org, module, and the
// blueprint's own content — the same blueprint resubmitted for the
// same module and org always maps to the same job, so a duplicate
// request resumes the existing session instead of starting a new one.
// A blueprint that parses as JSON is canonicalized before hashing, so
// key order and whitespace do not change the job identity.
func NewJobID(orgID, moduleID, blueprintJSON string) string {
	blueprint := []byte(blueprintJSON)
	var parsed any
	if err := json.Unmarshal(blueprint, &parsed); err == nil {
		if canon, err := canonicalize.Bytes(parsed); err == nil {
			blueprint = canon
		}
	}

	h := sha256.New()
	h.Write([]byte("evocore:job:v1\x00"))
	h.Write([]byte(orgID))
	h.Write([]byte{0})
	h.Write([]byte(moduleID))
	h.Write([]byte{0})
	h.Write(blueprint)
	return "job_" + hex.EncodeToString(h.Sum(nil))[:32]
}

// NewSession starts a fresh BuildSession at the scaffold stage.
func NewSession(orgID, moduleID, blueprintJSON string, now time.Time) *BuildSession {
	return &BuildSession{
		JobID:     NewJobID(orgID, moduleID, blueprintJSON),
		OrgID:     orgID,
		ModuleID:  moduleID,
		Stage:     StageScaffold,
		CreatedAt: now,
	}
}

// RecordAttempt appends an immutable attempt record and advances the
// session's stage based on the outcome.
func (s *BuildSession) RecordAttempt(report *contracts.ValidationReport, bundleSHA256, fingerprint, scorerVersion string, now time.Time) {
	s.Attempts = append(s.Attempts, contracts.AttemptRecord{
		AttemptIndex:       len(s.Attempts),
		BundleSHA256:       bundleSHA256,
		ValidationReport:   report,
		FailureFingerprint: fingerprint,
		Timestamp:          now,
		ScorerVersion:      scorerVersion,
	})

	switch {
	case report.Status == contracts.StatusValidated:
		s.Stage = StageTest
		s.Termination = contracts.TerminationValidated
	case report.HasTerminalViolation():
		s.Stage = StageRepair
		s.Termination = contracts.TerminationPolicyViolation
	default:
		s.Stage = StageRepair
	}
}

// LastAttempt returns the most recent attempt, or nil if none exist.
func (s *BuildSession) LastAttempt() *contracts.AttemptRecord {
	if len(s.Attempts) == 0 {
		return nil
	}
	return &s.Attempts[len(s.Attempts)-1]
}
