package sandbox

import (
	"context"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// Module is a single generated source file plus its precompiled WASM
// test binary (produced by the Self-Evolution Pipeline's test stage
// tooling ahead of sandboxing).
type Module struct {
	Filename  string
	Source    string
	WASMBytes []byte
}

// Runner composes the static AST layer and the runtime wazero layer
// into one ExecutionResult, per the dual-layer enforcement contract in
// §4.2: the static layer runs first and can reject before any code
// executes; only if it passes does the runtime layer run the module.
type Runner struct {
	rt *Runtime
}

// NewRunner wraps an already-constructed Runtime.
func NewRunner(rt *Runtime) *Runner {
	return &Runner{rt: rt}
}

// Execute runs mod under policy, merging static and runtime
// enforcement layers. A static rejection never reaches the runtime
// layer — "Executes before any code runs" (§4.2).
func (r *Runner) Execute(ctx context.Context, mod Module, policy contracts.ExecutionPolicy, input []byte) *ExecutionResult {
	staticViolations := StaticCheck(mod.Filename, mod.Source, policy.Imports)
	if len(staticViolations) > 0 {
		return &ExecutionResult{
			ImportViolations: staticViolations,
			Failure:          FailureImportViolation,
			ExitCode:         1,
		}
	}

	return r.rt.Run(ctx, mod.WASMBytes, input, policy.Resources)
}
