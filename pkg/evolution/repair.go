package evolution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgeflow/evocore/pkg/artifacts"
	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/forgeflow/evocore/pkg/llmgateway"
	"github.com/forgeflow/evocore/pkg/validator"
)

// ErrThrashing is returned when the repair loop keeps reproducing the
// same failure fingerprint without making progress.
var ErrThrashing = errors.New("evolution: repair loop is thrashing")

// ErrAttemptsExhausted is returned when maxAttempts is reached without
// a validated bundle.
var ErrAttemptsExhausted = errors.New("evolution: repair attempts exhausted")

// ErrPolicyViolation is returned when a terminal fix-hint category
// (policy_violation / security_block) appears — the loop stops
// immediately rather than spending further attempts on an
// unfixable-by-repair rejection.
var ErrPolicyViolation = errors.New("evolution: terminal policy violation")

// RepairDeps bundles the pipeline's external collaborators.
type RepairDeps struct {
	Gateway             *llmgateway.Gateway
	Lane                string
	Validator           *validator.Validator
	Compiler            Compiler
	Budget              *llmgateway.TokenBudget
	AllowedRootPrefixes []string
	ThrashThreshold     int
}

// RunRepairLoop drives scaffold/implement through bounded repair: each
// attempt asks the Gateway for a GeneratorResponseContract, validates
// it end to end, and on failure folds the ValidationReport's fix hints
// back into the conversation for the next attempt. It stops on the
// first VALIDATED report, a terminal violation, detected thrashing, or
// exhausted attempts — whichever comes first.
func RunRepairLoop(ctx context.Context, deps RepairDeps, session *BuildSession, initialMessages []llmgateway.Message, policy contracts.ExecutionPolicy, manifestRaw map[string]any, maxAttempts int) (*contracts.ValidationReport, error) {
	detector := NewThrashDetector(deps.ThrashThreshold)
	messages := append([]llmgateway.Message{}, initialMessages...)

	var lastReport *contracts.ValidationReport

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var contract *contracts.GeneratorResponseContract
		_, _, err := deps.Gateway.Call(ctx, deps.Lane, session.JobID, messages, nil, nil, deps.Budget, func(resp *llmgateway.Response) error {
			c, verr := llmgateway.DecodeGeneratorContract(resp, deps.Lane, deps.AllowedRootPrefixes)
			if verr != nil {
				return verr
			}
			contract = c
			return nil
		})
		if err != nil {
			if schemaInvalid(err) {
				messages = append(messages, llmgateway.Message{
					Role:    "user",
					Content: fmt.Sprintf("Your previous response did not satisfy the output contract: %v. Re-emit a corrected changed_files set.", err),
				})
				continue
			}
			return lastReport, fmt.Errorf("evolution: gateway call failed on attempt %d: %w", attempt, err)
		}

		files := artifacts.ToBundleFiles(contract)
		bundle, err := artifacts.BuildBundle(files)
		if err != nil {
			return lastReport, fmt.Errorf("evolution: bundle build failed on attempt %d: %w", attempt, err)
		}

		mod, err := deps.Compiler.Compile(ctx, session.ModuleID, files)
		if err != nil {
			return lastReport, fmt.Errorf("evolution: compile failed on attempt %d: %w", attempt, err)
		}

		report := deps.Validator.Validate(ctx, *mod, policy, manifestRaw, nil)
		fp := Fingerprint(report)
		session.RecordAttempt(report, bundle.BundleSHA256, fp, "v1", time.Now().UTC())
		lastReport = report

		if report.Status == contracts.StatusValidated {
			return report, nil
		}

		if report.HasTerminalViolation() {
			session.Termination = contracts.TerminationPolicyViolation
			return report, ErrPolicyViolation
		}

		if detector.Observe(fp) {
			session.Termination = contracts.TerminationThrashing
			return report, ErrThrashing
		}

		messages = append(messages, llmgateway.Message{
			Role:    "user",
			Content: repairFeedback(report),
		})
	}

	session.Termination = contracts.TerminationExhausted
	return lastReport, ErrAttemptsExhausted
}

// schemaInvalid reports whether err's GatewayError chain bottoms out
// in a SCHEMA_INVALID cause — i.e. the last preference the lane tried
// produced an output the output_contract rejected, rather than a
// transport-level provider failure (ALL_MODELS_FAILED carries only
// that last preference's error) — so the repair loop knows to retry
// with corrective feedback instead of aborting the job.
func schemaInvalid(err error) bool {
	for err != nil {
		ge, ok := err.(*llmgateway.GatewayError)
		if !ok {
			return false
		}
		if ge.Code == llmgateway.ErrSchemaInvalid {
			return true
		}
		err = ge.Cause
	}
	return false
}

// repairFeedback composes the next attempt's correction prompt from a
// failed ValidationReport's fix hints.
func repairFeedback(report *contracts.ValidationReport) string {
	if len(report.FixHints) == 0 {
		return "The previous attempt failed validation with no specific fix hints. Review the runtime test output and retry."
	}
	msg := "The previous attempt failed validation. Address the following:\n"
	for _, h := range report.FixHints {
		msg += fmt.Sprintf("- [%s] %s: %s\n", h.Category, h.Location, h.Suggestion)
	}
	return msg
}
