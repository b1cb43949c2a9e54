package llmgateway

import (
	"encoding/json"
	"fmt"

	"github.com/forgeflow/evocore/pkg/artifacts"
	"github.com/forgeflow/evocore/pkg/contracts"
)

// DecodeGeneratorContract parses a build/repair-stage Response's
// content as a GeneratorResponseContract and enforces §4.1's
// allowlist/fence/size rules, surfacing any violation as a tagged
// SCHEMA_INVALID GatewayError so the evolution pipeline can fold it
// into a repair-loop fix hint instead of a raw unmarshal error.
func DecodeGeneratorContract(resp *Response, lane string, allowedRootPrefixes []string) (*contracts.GeneratorResponseContract, error) {
	var out contracts.GeneratorResponseContract
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return nil, &GatewayError{Code: ErrSchemaInvalid, Lane: lane, Cause: fmt.Errorf("%s: %w", contracts.ErrInvalidJSON, err)}
	}
	if err := artifacts.ValidateGeneratorOutput(&out, allowedRootPrefixes); err != nil {
		return nil, &GatewayError{Code: ErrSchemaInvalid, Lane: lane, Cause: err}
	}
	return &out, nil
}
