package sandbox

// CheckRuntimeImports installs the dual-layer guarantee's second half:
// even if a forbidden import slipped past the static AST scan (e.g. via
// a build tag or string-built import path), any host module the
// compiled WASM binary requires that isn't exactly "wasi_snapshot_preview1"
// is an undeclared capability request and is rejected before
// instantiation — there is no bypass via reflection or deferred import,
// because wazero fails closed on unresolved imports.
func (rt *Runtime) CheckRuntimeImports(wasmImportModules []string) []ImportViolation {
	var violations []ImportViolation
	for _, mod := range wasmImportModules {
		if mod != "wasi_snapshot_preview1" {
			violations = append(violations, ImportViolation{
				Module: mod,
				Layer:  LayerRuntime,
				Rule:   "undeclared_host_capability",
			})
		}
	}
	return violations
}
