// Package config loads process configuration from the environment and
// on-disk YAML sandbox-policy profiles.
package config

import (
	"os"
	"strconv"
)

// Config holds the orchestrator process's environment-derived settings.
type Config struct {
	ListenAddr     string
	LogLevel       string
	CheckpointDSN  string
	AuditLogPath   string
	RedisAddr      string
	OTLPEndpoint   string
	DefaultProfile string
	TracingEnabled bool
}

// Load reads configuration from the environment, falling back to a
// sane local default rather than failing startup on an unset variable.
func Load() *Config {
	listenAddr := os.Getenv("EVOCORE_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	logLevel := os.Getenv("EVOCORE_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	checkpointDSN := os.Getenv("EVOCORE_CHECKPOINT_DSN")
	if checkpointDSN == "" {
		checkpointDSN = "file:evocore_checkpoints.db?_pragma=journal_mode(WAL)"
	}

	auditLogPath := os.Getenv("EVOCORE_AUDIT_LOG_PATH")
	if auditLogPath == "" {
		auditLogPath = "evocore_audit.jsonl"
	}

	redisAddr := os.Getenv("EVOCORE_REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	otlpEndpoint := os.Getenv("EVOCORE_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	defaultProfile := os.Getenv("EVOCORE_DEFAULT_PROFILE")
	if defaultProfile == "" {
		defaultProfile = "default"
	}

	tracingEnabled, _ := strconv.ParseBool(os.Getenv("EVOCORE_TRACING_ENABLED"))

	return &Config{
		ListenAddr:     listenAddr,
		LogLevel:       logLevel,
		CheckpointDSN:  checkpointDSN,
		AuditLogPath:   auditLogPath,
		RedisAddr:      redisAddr,
		OTLPEndpoint:   otlpEndpoint,
		DefaultProfile: defaultProfile,
		TracingEnabled: tracingEnabled,
	}
}
