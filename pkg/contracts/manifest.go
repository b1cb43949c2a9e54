package contracts

import (
	"github.com/Masterminds/semver/v3"
)

// ModuleStatus is the lifecycle state of a registered ModuleManifest.
type ModuleStatus string

const (
	ModuleActive   ModuleStatus = "active"
	ModuleDisabled ModuleStatus = "disabled"
	ModuleFailed   ModuleStatus = "failed"
	ModulePending  ModuleStatus = "pending"
)

// ModuleManifest is the registered capability descriptor consumed by
// the Capability Registry & Router (C7).
type ModuleManifest struct {
	ModuleID            string           `json:"module_id"` // category/platform
	Version              *semver.Version  `json:"-"`
	VersionString         string           `json:"version"`
	Capabilities          []string         `json:"capabilities"`
	RequiredCredentials   []string         `json:"required_credentials,omitempty"`
	ResourceHints         map[string]any   `json:"resource_hints,omitempty"`
	Status                ModuleStatus     `json:"status"`
	OrgID                 string           `json:"org_id"`
}

// ParseVersion populates Version from VersionString, returning an
// error for non-semver manifests.
func (m *ModuleManifest) ParseVersion() error {
	v, err := semver.NewVersion(m.VersionString)
	if err != nil {
		return err
	}
	m.Version = v
	return nil
}
