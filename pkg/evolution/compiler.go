package evolution

import (
	"context"

	"github.com/forgeflow/evocore/pkg/artifacts"
	"github.com/forgeflow/evocore/pkg/sandbox"
)

// Compiler turns a generated file set into a sandbox-runnable module.
// It is a separate collaborator rather than something evolution does
// itself: compiling generated source to a WASM test binary is a
// toolchain concern (e.g. invoking `tinygo build -target=wasi`) that
// sits outside the pipeline's own responsibilities.
type Compiler interface {
	Compile(ctx context.Context, moduleID string, files []artifacts.File) (*sandbox.Module, error)
}
