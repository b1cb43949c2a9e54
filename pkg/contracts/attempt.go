package contracts

import "time"

// AttemptRecord is an immutable per-repair-iteration record, append-only
// within a BuildAuditLog keyed by job_id.
type AttemptRecord struct {
	AttemptIndex       int               `json:"attempt_index"`
	BundleSHA256       string            `json:"bundle_sha256"`
	ValidationReport   *ValidationReport `json:"validation_report"`
	FailureFingerprint string            `json:"failure_fingerprint,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
	ScorerVersion      string            `json:"scorer_version"`
}

// InstallRejectReason enumerates why the installer refused an
// AttestedInstall (§4.5).
type InstallRejectReason string

const (
	RejectNotValidated      InstallRejectReason = "NOT_VALIDATED"
	RejectHashMismatch      InstallRejectReason = "HASH_MISMATCH"
	RejectMissingAttestation InstallRejectReason = "MISSING_ATTESTATION"
)

// AttestedInstall is the only input the installer accepts.
type AttestedInstall struct {
	ModuleID     string           `json:"module_id"`
	BundleSHA256 string           `json:"bundle_sha256"`
	Status       ValidationStatus `json:"status"`
	ValidatedAt  time.Time        `json:"validated_at"`
}

// BuildTerminationReason records why a repair loop stopped.
type BuildTerminationReason string

const (
	TerminationValidated      BuildTerminationReason = "VALIDATED"
	TerminationThrashing      BuildTerminationReason = "THRASHING"
	TerminationPolicyViolation BuildTerminationReason = "POLICY_VIOLATION"
	TerminationExhausted      BuildTerminationReason = "ATTEMPTS_EXHAUSTED"
)
