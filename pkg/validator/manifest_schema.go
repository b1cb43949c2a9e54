package validator

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// manifestSchemaJSON is the canonical shape of a ModuleManifest as seen
// by the registry (C7) before a module is ever executed.
const manifestSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["module_id", "version", "capabilities", "status"],
  "additionalProperties": false,
  "properties": {
    "module_id": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "capabilities": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "required_credentials": {"type": "array", "items": {"type": "string"}},
    "resource_hints": {"type": "object"},
    "status": {"enum": ["active", "disabled", "failed", "pending"]},
    "org_id": {"type": "string"}
  }
}`

const manifestSchemaURL = "https://evocore.local/schemas/module_manifest.schema.json"

var (
	compileOnce     sync.Once
	compiledSchema  *jsonschema.Schema
	compileErr      error
)

// compiledManifestSchema lazily compiles the manifest schema exactly
// once; jsonschema.Schema is safe for concurrent Validate calls.
func compiledManifestSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(manifestSchemaURL, strings.NewReader(manifestSchemaJSON)); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile(manifestSchemaURL)
	})
	return compiledSchema, compileErr
}

// ValidateManifest checks a raw manifest document (as decoded from
// JSON into map[string]any) against the registry's manifest schema.
func ValidateManifest(raw map[string]any) error {
	schema, err := compiledManifestSchema()
	if err != nil {
		return err
	}
	return schema.Validate(raw)
}
