package artifacts

import (
	"fmt"
	"strings"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// GeneratorOutputError reports which contract rule a
// GeneratorResponseContract violated.
type GeneratorOutputError struct {
	Kind contracts.GeneratorContractError
	Path string
}

func (e *GeneratorOutputError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("generator output rejected: %s (%s)", e.Kind, e.Path)
	}
	return fmt.Sprintf("generator output rejected: %s", e.Kind)
}

var fenceDelimiters = []string{"```", "~~~"}

// ValidateGeneratorOutput enforces §4.1's allowlist/fence/size rules
// against a GeneratorResponseContract before its files are turned into
// an ArtifactBundle. allowedRootPrefixes lists the module root
// prefixes a path is allowed to fall under.
func ValidateGeneratorOutput(out *contracts.GeneratorResponseContract, allowedRootPrefixes []string) error {
	if out == nil {
		return &GeneratorOutputError{Kind: contracts.ErrInvalidJSON}
	}
	if out.ModuleID == "" || out.Stage == "" {
		return &GeneratorOutputError{Kind: contracts.ErrMissingField}
	}
	if len(out.ChangedFiles) == 0 {
		return &GeneratorOutputError{Kind: contracts.ErrMissingField}
	}
	if len(out.ChangedFiles) > contracts.MaxGeneratorFiles {
		return &GeneratorOutputError{Kind: contracts.ErrSizeExceeded}
	}

	var total int
	for _, f := range out.ChangedFiles {
		if f.Path == "" {
			return &GeneratorOutputError{Kind: contracts.ErrMissingField}
		}
		if !pathAllowed(f.Path, allowedRootPrefixes) {
			return &GeneratorOutputError{Kind: contracts.ErrDisallowedPath, Path: f.Path}
		}
		for _, fence := range fenceDelimiters {
			if strings.Contains(f.Content, fence) {
				return &GeneratorOutputError{Kind: contracts.ErrFenceDetected, Path: f.Path}
			}
		}
		total += len(f.Content)
	}
	if total > contracts.MaxGeneratorTotalSize {
		return &GeneratorOutputError{Kind: contracts.ErrSizeExceeded}
	}
	return nil
}

func pathAllowed(path string, prefixes []string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ToBundleFiles converts a validated GeneratorResponseContract's
// changed files into BuildBundle input.
func ToBundleFiles(out *contracts.GeneratorResponseContract) []File {
	files := make([]File, len(out.ChangedFiles))
	for i, f := range out.ChangedFiles {
		files[i] = File{Path: f.Path, Bytes: []byte(f.Content)}
	}
	return files
}
