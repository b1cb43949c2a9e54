package sandbox

import (
	"fmt"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// categoryPrefixes maps an import category name to the stdlib
// package prefixes it grants. A generated module's import is allowed
// only if it falls in one of the policy's allowed categories.
var categoryPrefixes = map[string][]string{
	"stdlib":          {"fmt", "strings", "strconv", "errors", "time", "sort", "math", "encoding/json", "context", "bytes"},
	"http_clients":    {"net/http"},
	"testing":         {"testing"},
	"data_processing": {"encoding/csv", "encoding/xml", "bufio"},
}

// StaticCheck parses source as Go and walks every import declaration,
// rejecting any import that matches the forbidden list or falls
// outside the policy's allowed categories. It runs before any code is
// executed and reports line numbers.
func StaticCheck(filename, source string, policy contracts.ImportPolicy) []ImportViolation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, source, parser.ImportsOnly)
	if err != nil {
		// A file whose import section does not parse yields no
		// violations: the parse error is reported neither here nor by
		// the validator's import scan, so such a file passes that scan.
		return nil
	}

	var violations []ImportViolation
	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		pos := fset.Position(imp.Pos())

		if isForbidden(path, policy.Forbidden) {
			violations = append(violations, ImportViolation{
				Module: path,
				Layer:  LayerStatic,
				Line:   pos.Line,
				Rule:   "forbidden_import",
			})
			continue
		}
		if !inAllowedCategory(path, policy.AllowedCategories) {
			violations = append(violations, ImportViolation{
				Module: path,
				Layer:  LayerStatic,
				Line:   pos.Line,
				Rule:   "category_not_allowed",
			})
		}
	}
	return violations
}

func isForbidden(path string, forbidden []string) bool {
	for _, f := range forbidden {
		if path == f || strings.HasPrefix(path, f+"/") {
			return true
		}
	}
	return false
}

func inAllowedCategory(path string, categories []string) bool {
	for _, cat := range categories {
		for _, prefix := range categoryPrefixes[cat] {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// AllowedCategoryNames returns the category names this package knows
// prefixes for, useful for validating a policy profile at construction
// time.
func AllowedCategoryNames() []string {
	names := make([]string, 0, len(categoryPrefixes))
	for k := range categoryPrefixes {
		names = append(names, k)
	}
	return names
}

// ErrUnknownCategory reports an import category name that has no
// entry in categoryPrefixes.
type ErrUnknownCategory struct{ Category string }

func (e *ErrUnknownCategory) Error() string {
	return fmt.Sprintf("sandbox: unknown import category %q", e.Category)
}
