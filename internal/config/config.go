// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides. Missing file means defaults; a
// malformed file or an invalid final configuration is a startup error.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is consulted when no explicit path is given.
const DefaultPath = "agenticmd.yaml"

// Config holds everything cmd/server needs to wire the service.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`
	// DatabaseURL is the Postgres DSN. Empty runs the service without
	// persistence (in-memory session store).
	DatabaseURL string `yaml:"database_url"`
	// OpenAIKey authenticates against the generation capability.
	OpenAIKey string `yaml:"openai_api_key"`
	// Model selects the chat model; empty uses the client default.
	Model string `yaml:"model"`
	// FollowUpBudget caps clarifying-question rounds for the history stage.
	FollowUpBudget int `yaml:"follow_up_budget"`
	// KnowledgeDir points at the medication reference documents. Empty
	// disables the knowledge base.
	KnowledgeDir string `yaml:"knowledge_dir"`
	// RetryAttempts bounds generation retries per stage execution.
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryBackoff is the initial backoff between retries; doubles per
	// attempt. Parsed with time.ParseDuration.
	RetryBackoff Duration `yaml:"retry_backoff"`
}

// Duration wraps time.Duration so YAML values like "500ms" decode with
// time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func defaults() Config {
	return Config{
		Listen:         ":8080",
		FollowUpBudget: 3,
		RetryAttempts:  3,
		RetryBackoff:   Duration(500 * time.Millisecond),
	}
}

// Load reads the configuration file at path (DefaultPath when empty),
// applies environment overrides and validates the result. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// defaults + env only
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("KNOWLEDGE_DIR"); v != "" {
		c.KnowledgeDir = v
	}
	if v := os.Getenv("FOLLOW_UP_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FollowUpBudget = n
		}
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.FollowUpBudget < 0 {
		return fmt.Errorf("config: follow_up_budget must be >= 0")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("config: retry_attempts must be >= 1")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("config: retry_backoff must not be negative")
	}
	return nil
}
