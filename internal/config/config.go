/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/panelforge/internal/schedule"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment     string
	HTTPBind        string
	HTTPPort        int
	BaseURL         string // Public base URL (e.g., http://192.168.195.6:8080)
	DBBackend       DatabaseBackend
	DBDSN           string
	MetricsBind     string
	MaxUploadSizeMB int    // Optional multipart upload limit override for CSV imports (MB)
	AdminToken      string // Bootstrap token for API key management (X-Admin-Token header)

	// Planning configuration
	PolicyFile  string        // Optional YAML file with default planning policy values
	PlanTimeout time.Duration // Budget for a single planning request

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Cache configuration
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	InstanceID    string

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:     getEnvAny([]string{"PANELFORGE_ENV", "PF_ENV"}, "development"),
		HTTPBind:        getEnvAny([]string{"PANELFORGE_HTTP_BIND", "PF_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:        getEnvIntAny([]string{"PANELFORGE_HTTP_PORT", "PF_HTTP_PORT"}, 8080),
		BaseURL:         getEnvAny([]string{"PANELFORGE_BASE_URL", "PF_BASE_URL"}, ""),
		DBBackend:       DatabaseBackend(getEnvAny([]string{"PANELFORGE_DB_BACKEND", "PF_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:           getEnvAny([]string{"PANELFORGE_DB_DSN", "PF_DB_DSN"}, "panelforge.db"),
		MetricsBind:     getEnvAny([]string{"PANELFORGE_METRICS_BIND", "PF_METRICS_BIND"}, "127.0.0.1:9000"),
		MaxUploadSizeMB: getEnvIntAny([]string{"PANELFORGE_MAX_UPLOAD_SIZE_MB", "PF_MAX_UPLOAD_SIZE_MB"}, 0),
		AdminToken:      getEnvAny([]string{"PANELFORGE_ADMIN_TOKEN", "PF_ADMIN_TOKEN"}, ""),

		// Planning configuration
		PolicyFile:  getEnvAny([]string{"PANELFORGE_POLICY_FILE", "PF_POLICY_FILE"}, ""),
		PlanTimeout: time.Duration(getEnvIntAny([]string{"PANELFORGE_PLAN_TIMEOUT_SECONDS", "PF_PLAN_TIMEOUT_SECONDS"}, 30)) * time.Second,

		// Tracing configuration
		TracingEnabled:    getEnvBoolAny([]string{"PANELFORGE_TRACING_ENABLED", "PF_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"PANELFORGE_OTLP_ENDPOINT", "PF_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"PANELFORGE_TRACING_SAMPLE_RATE", "PF_TRACING_SAMPLE_RATE"}, 1.0),

		// Cache configuration
		CacheEnabled:  getEnvBoolAny([]string{"PANELFORGE_CACHE_ENABLED", "PF_CACHE_ENABLED"}, false),
		RedisAddr:     getEnvAny([]string{"PANELFORGE_REDIS_ADDR", "PF_REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"PANELFORGE_REDIS_PASSWORD", "PF_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"PANELFORGE_REDIS_DB", "PF_REDIS_DB"}, 0),
		InstanceID:    getEnvAny([]string{"PANELFORGE_INSTANCE_ID", "PF_INSTANCE_ID"}, ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PANELFORGE_DB_DSN or PF_DB_DSN must be provided")
	}

	if cfg.PlanTimeout <= 0 {
		return nil, fmt.Errorf("PANELFORGE_PLAN_TIMEOUT_SECONDS must be positive")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":     "use PANELFORGE_ENV (or PF_ENV)",
		"HTTP_PORT":       "use PANELFORGE_HTTP_PORT (or PF_HTTP_PORT)",
		"DB_DSN":          "use PANELFORGE_DB_DSN (or PF_DB_DSN)",
		"TRACING_ENABLED": "use PANELFORGE_TRACING_ENABLED (or PF_TRACING_ENABLED)",
		"OTLP_ENDPOINT":   "use PANELFORGE_OTLP_ENDPOINT (or PF_OTLP_ENDPOINT)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// MaxUploadSizeBytes returns the configured upload limit in bytes.
// A value of 0 means "not configured" and callers should use endpoint defaults.
func (c *Config) MaxUploadSizeBytes() int64 {
	if c == nil || c.MaxUploadSizeMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// PolicyDefaults is the on-disk shape of a planning policy file. Every field
// is optional; unset fields keep the built-in defaults.
type PolicyDefaults struct {
	GridQuantumMinutes    *int    `yaml:"grid_quantum_minutes" json:"grid_quantum_minutes"`
	AllowedGapMinutes     *int    `yaml:"allowed_gap_minutes" json:"allowed_gap_minutes"`
	MaxAgendasPerDay      *int    `yaml:"max_agendas_per_day" json:"max_agendas_per_day"`
	MergeToleranceSeconds *int    `yaml:"merge_tolerance_seconds" json:"merge_tolerance_seconds"`
	LunchAvoidance        *bool   `yaml:"lunch_avoidance" json:"lunch_avoidance"`
	LunchStart            *string `yaml:"lunch_start" json:"lunch_start"` // "HH:MM" local
	LunchEnd              *string `yaml:"lunch_end" json:"lunch_end"`
	Timezone              *string `yaml:"timezone" json:"timezone"`
	MaxPanelSize          *int    `yaml:"max_panel_size" json:"max_panel_size"`
}

// LoadPolicy returns the process-wide default planning policy: the built-in
// defaults overlaid with the policy file, when one is configured.
func (c *Config) LoadPolicy() (schedule.Policy, error) {
	policy := schedule.DefaultPolicy()
	if c == nil || c.PolicyFile == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(c.PolicyFile)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}

	var defaults PolicyDefaults
	if err := yaml.Unmarshal(raw, &defaults); err != nil {
		return policy, fmt.Errorf("parse policy file: %w", err)
	}
	return defaults.Apply(policy)
}

// Apply overlays the file's values onto base and validates the result.
func (d PolicyDefaults) Apply(base schedule.Policy) (schedule.Policy, error) {
	policy := base
	if d.GridQuantumMinutes != nil {
		policy.GridQuantum = time.Duration(*d.GridQuantumMinutes) * time.Minute
	}
	if d.AllowedGapMinutes != nil {
		policy.AllowedGap = time.Duration(*d.AllowedGapMinutes) * time.Minute
	}
	if d.MaxAgendasPerDay != nil {
		policy.MaxAgendasPerDay = *d.MaxAgendasPerDay
	}
	if d.MergeToleranceSeconds != nil {
		policy.MergeTolerance = time.Duration(*d.MergeToleranceSeconds) * time.Second
	}
	if d.LunchAvoidance != nil {
		policy.LunchAvoidance = *d.LunchAvoidance
	}
	if d.LunchStart != nil {
		minute, err := parseMinuteOfDay(*d.LunchStart)
		if err != nil {
			return policy, fmt.Errorf("lunch_start: %w", err)
		}
		policy.LunchStartMinute = minute
	}
	if d.LunchEnd != nil {
		minute, err := parseMinuteOfDay(*d.LunchEnd)
		if err != nil {
			return policy, fmt.Errorf("lunch_end: %w", err)
		}
		policy.LunchEndMinute = minute
	}
	if d.Timezone != nil {
		loc, err := time.LoadLocation(*d.Timezone)
		if err != nil {
			return policy, fmt.Errorf("timezone: %w", err)
		}
		policy.Location = loc
	}
	if d.MaxPanelSize != nil {
		policy.MaxPanelSize = *d.MaxPanelSize
	}

	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

func parseMinuteOfDay(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
