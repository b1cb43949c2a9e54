package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	for _, key := range []string{
		"EVOCORE_LISTEN_ADDR", "EVOCORE_LOG_LEVEL", "EVOCORE_CHECKPOINT_DSN",
		"EVOCORE_AUDIT_LOG_PATH", "EVOCORE_REDIS_ADDR", "EVOCORE_OTLP_ENDPOINT",
		"EVOCORE_DEFAULT_PROFILE", "EVOCORE_TRACING_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "INFO", cfg.LogLevel)
	require.Equal(t, "default", cfg.DefaultProfile)
	require.False(t, cfg.TracingEnabled)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("EVOCORE_LISTEN_ADDR", ":9090")
	t.Setenv("EVOCORE_TRACING_ENABLED", "true")

	cfg := Load()
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.True(t, cfg.TracingEnabled)
}

func TestLoadProfileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
name: custom
network:
  blocked: false
  allowlist:
    - api.example.com
imports:
  allowed_categories:
    - stdlib
    - http_clients
resources:
  timeout_seconds: 10
  memory_bytes: 134217728
  max_procs: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile_custom.yaml"), []byte(yamlContent), 0o644))

	policy, err := LoadProfile(dir, "custom")
	require.NoError(t, err)
	require.Equal(t, "custom", policy.ProfileName)
	require.False(t, policy.Network.Blocked)
	require.Equal(t, []string{"api.example.com"}, policy.Network.Allowlist)
	require.Equal(t, 2, policy.Resources.MaxProcs)
}

func TestLoadAllProfilesDerivesNameFromFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile_strict.yaml"), []byte(`
imports:
  allowed_categories: [stdlib]
resources:
  timeout_seconds: 5
`), 0o644))

	profiles, err := LoadAllProfiles(dir)
	require.NoError(t, err)
	require.Contains(t, profiles, "strict")
	require.Equal(t, "strict", profiles["strict"].ProfileName)
}

func TestLoadProfileMissingFileErrors(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nonexistent")
	require.Error(t, err)
}
