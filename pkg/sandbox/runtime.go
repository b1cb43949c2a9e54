package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// OutputMaxBytes bounds captured stdout+stderr from a single run.
const OutputMaxBytes = 1 << 20 // 1MB

// Runtime executes a precompiled WASM module under the deny-by-default
// WASI sandbox: no filesystem mounts, no network, no ambient clock or
// random source, stdout/stderr wired for capture only.
type Runtime struct {
	runtime wazero.Runtime
}

// NewRuntime creates a wazero-backed Runtime with the given memory
// ceiling (in bytes).
func NewRuntime(ctx context.Context, memoryLimitBytes int64) (*Runtime, error) {
	cfg := wazero.NewRuntimeConfig()
	if memoryLimitBytes > 0 {
		pages := uint32(memoryLimitBytes / (64 * 1024))
		if pages == 0 {
			pages = 1
		}
		cfg = cfg.WithMemoryLimitPages(pages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("sandbox: instantiate WASI: %w", err)
	}
	return &Runtime{runtime: r}, nil
}

// Close releases the underlying wazero runtime.
func (rt *Runtime) Close(ctx context.Context) error {
	return rt.runtime.Close(ctx)
}

// Run executes wasmBytes with input on stdin, bounded by the policy's
// resource limits. It never panics or returns a raised error for an
// in-sandbox failure — every outcome is reported on ExecutionResult.
func (rt *Runtime) Run(ctx context.Context, wasmBytes []byte, input []byte, policy contracts.ResourcePolicy) *ExecutionResult {
	result := &ExecutionResult{}

	execCtx := ctx
	var cancel context.CancelFunc
	if policy.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithName("module-validation")
	// Deliberately no WithFSConfig/WithSysNanotime/WithRandSource: no
	// filesystem, no high-res timers, no entropy source.

	start := time.Now()
	compiled, err := rt.runtime.CompileModule(execCtx, wasmBytes)
	if err != nil {
		result.Failure = FailureCrash
		result.Stderr = err.Error()
		result.WallTime = time.Since(start)
		return result
	}
	defer func() { _ = compiled.Close(execCtx) }()

	if violations := rt.CheckRuntimeImports(importedModuleNames(compiled)); len(violations) > 0 {
		result.ImportViolations = violations
		result.Failure = FailureImportViolation
		return result
	}

	mod, err := rt.runtime.InstantiateModule(execCtx, compiled, modCfg)
	result.WallTime = time.Since(start)
	if err != nil {
		switch {
		case execCtx.Err() != nil:
			result.Failure = FailureTimeout
		case isMemoryError(err):
			result.Failure = FailureMemoryLimit
		default:
			result.Failure = FailureCrash
		}
		result.Stderr = err.Error()
		result.ExitCode = 1
		return result
	}
	defer func() { _ = mod.Close(execCtx) }()

	result.Stdout = truncate(stdout.String(), OutputMaxBytes)
	result.Stderr = truncate(stderr.String(), OutputMaxBytes)
	result.Resources = ResourceUsage{WallTime: result.WallTime}
	return result
}

// importedModuleNames lists the distinct host module names a compiled
// WASM binary declares imports against.
func importedModuleNames(compiled wazero.CompiledModule) []string {
	seen := make(map[string]bool)
	var names []string
	for _, fn := range compiled.ImportedFunctions() {
		modName, _, _ := fn.Import()
		if !seen[modName] {
			seen[modName] = true
			names = append(names, modName)
		}
	}
	return names
}

func isMemoryError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "memory") &&
		(strings.Contains(msg, "limit") || strings.Contains(msg, "grow") || strings.Contains(msg, "exceeded"))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
