package validator

import (
	"context"
	"testing"

	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/forgeflow/evocore/pkg/sandbox"
	"github.com/stretchr/testify/require"
)

func moduleWithSource(src string) sandbox.Module {
	return sandbox.Module{Filename: "gen.go", Source: src}
}

func defaultPolicy() contracts.ExecutionPolicy {
	return sandbox.DefaultProfile()
}

func TestValidateManifestAccepts(t *testing.T) {
	raw := map[string]any{
		"module_id":    "billing/stripe-adapter",
		"version":      "1.2.0",
		"capabilities": []any{"charge.create"},
		"status":       "active",
	}
	require.NoError(t, ValidateManifest(raw))
}

func TestValidateManifestRejectsMissingField(t *testing.T) {
	raw := map[string]any{
		"module_id": "billing/stripe-adapter",
		"version":   "1.2.0",
	}
	err := ValidateManifest(raw)
	require.Error(t, err)
}

func TestValidateManifestRejectsUnknownStatus(t *testing.T) {
	raw := map[string]any{
		"module_id":    "billing/stripe-adapter",
		"version":      "1.2.0",
		"capabilities": []any{"charge.create"},
		"status":       "unknown_state",
	}
	require.Error(t, ValidateManifest(raw))
}

func TestParseTestOutput(t *testing.T) {
	stdout := "PASS case_one\nFAIL case_two: assertion mismatch\nsome diagnostic chatter\nERROR case_three: panic recovered\n"
	results := parseTestOutput(stdout, 0)
	require.Equal(t, 3, results.TestsExecuted)
	require.Equal(t, 1, results.Passed)
	require.Equal(t, 1, results.Failed)
	require.Equal(t, 1, results.Errored)
}

func TestValidateFailsClosedOnForbiddenImport(t *testing.T) {
	v := New(nil) // runner unused: static phase rejects before reaching it
	mod := moduleWithSource(`package gen

import "os/exec"

func Run() { _ = exec.Command }
`)
	report := v.Validate(context.Background(), mod, defaultPolicy(), nil, nil)
	require.Equal(t, contracts.StatusFailed, report.Status)
	require.True(t, report.HasTerminalViolation())
	cat, ok := report.DominantFixCategory()
	require.True(t, ok)
	require.Equal(t, contracts.FixPolicyViolation, cat)
}

func TestValidateMarksRuntimeImportViolationTerminal(t *testing.T) {
	report := &contracts.ValidationReport{
		FixHints: []contracts.FixHint{{
			Category: runtimeFailureCategory(sandbox.FailureImportViolation),
		}},
	}
	require.True(t, report.HasTerminalViolation())

	report = &contracts.ValidationReport{
		FixHints: []contracts.FixHint{{
			Category: runtimeFailureCategory(sandbox.FailureNetworkViolation),
		}},
	}
	require.True(t, report.HasTerminalViolation())

	report = &contracts.ValidationReport{
		FixHints: []contracts.FixHint{{
			Category: runtimeFailureCategory(sandbox.FailureCrash),
		}},
	}
	require.False(t, report.HasTerminalViolation())
}
