// Package sandbox implements the deny-by-default Sandbox Policy &
// Runner (C2): declared policy profiles, dual-layer (static AST +
// runtime hook) import enforcement, and deterministic artifact
// capture via a wazero-hosted WASI runtime.
package sandbox

import (
	"time"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// Forbidden imports are terminal regardless of profile (§4.2).
var ForbiddenImports = []string{
	"os/exec",
	"plugin",
	"syscall",
	"unsafe",
	"os", // raw os access; use the declared capability categories instead
}

// DefaultProfile returns the "default" policy profile.
func DefaultProfile() contracts.ExecutionPolicy {
	return contracts.ExecutionPolicy{
		ProfileName: "default",
		Network:     contracts.NetworkPolicy{Blocked: true},
		Imports: contracts.ImportPolicy{
			AllowedCategories: []string{"stdlib"},
			Forbidden:         append([]string{}, ForbiddenImports...),
		},
		Resources: contracts.ResourcePolicy{
			Timeout:     30 * time.Second,
			MemoryBytes: 256 << 20,
			MaxProcs:    4,
		},
	}
}

// ModuleValidationProfile returns the "module_validation" profile:
// adds http_clients/testing/data_processing import categories; network
// stays blocked.
func ModuleValidationProfile() contracts.ExecutionPolicy {
	p := DefaultProfile()
	p.ProfileName = "module_validation"
	p.Imports.AllowedCategories = append(p.Imports.AllowedCategories,
		"http_clients", "testing", "data_processing")
	return p
}

// IntegrationTestProfile returns the "integration_test" profile: network
// is allowlisted by domain; private/loopback addresses are always
// denied regardless of allowlist contents.
func IntegrationTestProfile(allowlist []string) contracts.ExecutionPolicy {
	p := DefaultProfile()
	p.ProfileName = "integration_test"
	p.Network = contracts.NetworkPolicy{
		Blocked:   false,
		Allowlist: allowlist,
	}
	p.Resources.Timeout = 5 * time.Second
	return p
}

// ResolveProfile looks up a named built-in profile.
func ResolveProfile(name string) (contracts.ExecutionPolicy, bool) {
	switch name {
	case "default":
		return DefaultProfile(), true
	case "module_validation":
		return ModuleValidationProfile(), true
	case "integration_test":
		return IntegrationTestProfile(nil), true
	default:
		return contracts.ExecutionPolicy{}, false
	}
}
