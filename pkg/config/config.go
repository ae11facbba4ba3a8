package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for cohortiq-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Embedded analytical database
	DuckDB DuckDBConfig `yaml:"duckdb"`

	// Query-intent model fallback
	LLM LLMConfig `yaml:"llm"`

	// Clustering worker subprocess
	Worker WorkerConfig `yaml:"worker"`

	// Skill digest budgets
	Digest DigestConfig `yaml:"digest"`
}

// DuckDBConfig holds the embedded database settings.
type DuckDBConfig struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string `yaml:"path" env:"DUCKDB_PATH" env-default:""`
}

// LLMConfig holds the model endpoint used when keyword classification is
// not confident enough. Provider "" disables the fallback entirely.
type LLMConfig struct {
	Provider  string `yaml:"provider" env:"LLM_PROVIDER" env-default:""`
	Endpoint  string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model     string `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey    string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	MaxTokens int    `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`
}

// Enabled reports whether the model fallback is configured.
func (c *LLMConfig) Enabled() bool {
	return c.Provider != "" && c.Model != ""
}

// WorkerConfig holds the clustering subprocess settings.
type WorkerConfig struct {
	// Command launches the worker; it speaks JSON over stdin/stdout.
	Command string `yaml:"command" env:"WORKER_COMMAND" env-default:"cohortiq-worker"`
	// ArgsStr is a space-free comma-separated argument list.
	ArgsStr string `yaml:"args" env:"WORKER_ARGS" env-default:""`
	// TimeoutSeconds bounds one clustering job.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"WORKER_TIMEOUT_SECONDS" env-default:"120"`

	Args []string `yaml:"-"`
}

// Timeout returns the job timeout as a duration.
func (c *WorkerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DigestConfig bounds skill digests embedded in prompts.
type DigestConfig struct {
	MaxFilters int `yaml:"max_filters" env:"DIGEST_MAX_FILTERS" env-default:"5"`
	MaxMetrics int `yaml:"max_metrics" env:"DIGEST_MAX_METRICS" env-default:"8"`
	MaxChars   int `yaml:"max_chars" env:"DIGEST_MAX_CHARS" env-default:"2000"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time. A missing
// config.yaml is fine; defaults and environment variables apply.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Worker.Args = splitArgs(cfg.Worker.ArgsStr)

	if cfg.Worker.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("worker timeout_seconds must be positive, got %d", cfg.Worker.TimeoutSeconds)
	}
	return cfg, nil
}

// splitArgs parses the comma-separated worker argument list.
func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var args []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			args = append(args, part)
		}
	}
	return args
}
