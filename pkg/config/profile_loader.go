package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forgeflow/evocore/pkg/contracts"
)

// ProfileDocument is the on-disk YAML shape for a named sandbox
// execution policy, loaded in addition to the sandbox package's
// built-in profiles so an operator can declare org-specific profiles
// without a code change.
type ProfileDocument struct {
	Name    string   `yaml:"name"`
	Network struct {
		Blocked   bool     `yaml:"blocked"`
		Allowlist []string `yaml:"allowlist,omitempty"`
	} `yaml:"network"`
	Imports struct {
		AllowedCategories []string `yaml:"allowed_categories"`
		Forbidden         []string `yaml:"forbidden,omitempty"`
	} `yaml:"imports"`
	Resources struct {
		TimeoutSeconds int   `yaml:"timeout_seconds"`
		MemoryBytes    int64 `yaml:"memory_bytes"`
		MaxProcs       int   `yaml:"max_procs"`
	} `yaml:"resources"`
}

// ToExecutionPolicy converts the YAML document into the sandbox's
// runtime policy type.
func (d ProfileDocument) ToExecutionPolicy() contracts.ExecutionPolicy {
	return contracts.ExecutionPolicy{
		ProfileName: d.Name,
		Network: contracts.NetworkPolicy{
			Blocked:   d.Network.Blocked,
			Allowlist: d.Network.Allowlist,
		},
		Imports: contracts.ImportPolicy{
			AllowedCategories: d.Imports.AllowedCategories,
			Forbidden:         d.Imports.Forbidden,
		},
		Resources: contracts.ResourcePolicy{
			Timeout:     time.Duration(d.Resources.TimeoutSeconds) * time.Second,
			MemoryBytes: d.Resources.MemoryBytes,
			MaxProcs:    d.Resources.MaxProcs,
		},
	}
}

// LoadProfile loads a single named profile from profilesDir, looking
// for "profile_<name>.yaml" the same way a regional profile loader
// looks for "profile_<code>.yaml".
func LoadProfile(profilesDir, name string) (contracts.ExecutionPolicy, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return contracts.ExecutionPolicy{}, fmt.Errorf("config: load profile %q: %w", name, err)
	}

	var doc ProfileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return contracts.ExecutionPolicy{}, fmt.Errorf("config: parse profile %q: %w", name, err)
	}
	if doc.Name == "" {
		doc.Name = name
	}

	return doc.ToExecutionPolicy(), nil
}

// LoadAllProfiles loads every "profile_*.yaml" file from profilesDir.
func LoadAllProfiles(profilesDir string) (map[string]contracts.ExecutionPolicy, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("config: globbing profiles: %w", err)
	}

	profiles := make(map[string]contracts.ExecutionPolicy, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}

		var doc ProfileDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		if doc.Name == "" {
			base := filepath.Base(path)
			doc.Name = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}

		profiles[doc.Name] = doc.ToExecutionPolicy()
	}

	return profiles, nil
}
