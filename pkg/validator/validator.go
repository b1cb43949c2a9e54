// Package validator implements the Module Validator (C3): it merges
// the Sandbox's static and runtime enforcement layers with a manifest
// schema check into one ValidationReport, and derives actionable
// FixHints for the repair stage of the Self-Evolution Pipeline.
package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/forgeflow/evocore/pkg/sandbox"
)

// Validator composes a sandbox Runner with manifest schema checking.
type Validator struct {
	runner *sandbox.Runner
}

// New builds a Validator around an already-constructed sandbox Runner.
func New(runner *sandbox.Runner) *Validator {
	return &Validator{runner: runner}
}

// Validate runs the full C3 pass over a candidate module: manifest
// schema check, static import scan, then the module's test file inside
// the sandbox. A terminal fix-hint category short-circuits the runtime
// phase — there is no point burning sandbox time on a module already
// rejected on policy grounds.
func (v *Validator) Validate(ctx context.Context, mod sandbox.Module, policy contracts.ExecutionPolicy, manifestRaw map[string]any, testInput []byte) *contracts.ValidationReport {
	report := &contracts.ValidationReport{ValidatedAt: time.Now().UTC()}

	if manifestRaw != nil {
		if err := ValidateManifest(manifestRaw); err != nil {
			report.StaticResults = append(report.StaticResults, contracts.StaticCheckResult{
				Name: "manifest_schema", Passed: false, Detail: err.Error(),
			})
			report.FixHints = append(report.FixHints, contracts.FixHint{
				Category:   contracts.FixSchemaError,
				Location:   "manifest",
				Suggestion: fmt.Sprintf("manifest does not satisfy the registry schema: %s", err.Error()),
				Severity:   "error",
			})
		} else {
			report.StaticResults = append(report.StaticResults, contracts.StaticCheckResult{Name: "manifest_schema", Passed: true})
		}
	}

	staticViolations := sandbox.StaticCheck(mod.Filename, mod.Source, policy.Imports)
	if len(staticViolations) == 0 {
		report.StaticResults = append(report.StaticResults, contracts.StaticCheckResult{Name: "import_scan", Passed: true})
	}
	for _, viol := range staticViolations {
		report.StaticResults = append(report.StaticResults, contracts.StaticCheckResult{
			Name: "import_scan", Passed: false,
			Detail: fmt.Sprintf("%s:%d: %s (%s)", mod.Filename, viol.Line, viol.Module, viol.Rule),
		})
		report.FixHints = append(report.FixHints, contracts.FixHint{
			Category:   contracts.FixPolicyViolation,
			Location:   fmt.Sprintf("%s:%d", mod.Filename, viol.Line),
			Suggestion: fmt.Sprintf("remove or replace the import %q; it is not permitted under the %q profile", viol.Module, policy.ProfileName),
			Severity:   "error",
		})
	}

	if report.HasTerminalViolation() {
		report.Status = contracts.StatusFailed
		return report
	}

	if len(staticViolations) > 0 {
		report.Status = contracts.StatusFailed
		return report
	}

	if len(mod.WASMBytes) == 0 {
		// No compiled test binary to run yet (e.g. a scaffold-stage
		// module before the test stage produces one) — static-only
		// passes validate on the static results alone.
		report.Status = contracts.StatusValidated
		return report
	}

	execResult := v.runner.Execute(ctx, mod, policy, testInput)
	report.RuntimeResults = parseTestOutput(execResult.Stdout, execResult.WallTime)
	report.Artifacts = execResult.Artifacts

	if execResult.Failure != sandbox.FailureNone {
		report.Status = contracts.StatusError
		report.FixHints = append(report.FixHints, contracts.FixHint{
			Category:   runtimeFailureCategory(execResult.Failure),
			Location:   mod.Filename,
			Suggestion: fmt.Sprintf("sandbox run failed: %s: %s", execResult.Failure, firstLine(execResult.Stderr)),
			Severity:   "error",
		})
		return report
	}

	if report.RuntimeResults.Failed > 0 || report.RuntimeResults.Errored > 0 {
		report.Status = contracts.StatusFailed
		report.FixHints = append(report.FixHints, contracts.FixHint{
			Category:   contracts.FixTestFailure,
			Location:   mod.Filename,
			Suggestion: fmt.Sprintf("%d of %d tests did not pass", report.RuntimeResults.Failed+report.RuntimeResults.Errored, report.RuntimeResults.TestsExecuted),
			Severity:   "error",
		})
		return report
	}

	report.Status = contracts.StatusValidated
	return report
}

// runtimeFailureCategory maps a sandbox runtime failure to a fix-hint
// category. A runtime-layer import or network violation is the same
// policy breach a static import scan would have caught had the import
// been visible statically (e.g. behind reflection or a dynamic
// dlopen-equivalent) — it must be terminal, not an ordinary test
// failure, the same way the static path is.
func runtimeFailureCategory(failure sandbox.FailureMode) contracts.FixHintCategory {
	switch failure {
	case sandbox.FailureImportViolation, sandbox.FailureNetworkViolation:
		return contracts.FixPolicyViolation
	default:
		return contracts.FixTestFailure
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
