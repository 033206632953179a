package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RouterConfig describes the composite router to build.
type RouterConfig struct {
	Strategy     string             `yaml:"strategy,omitempty" validate:"omitempty,oneof=round-robin random"`
	RetryOnError *bool              `yaml:"retry_on_error,omitempty"`
	Candidates   []CandidateConfig  `yaml:"candidates,omitempty" validate:"dive"`
	Credentials  *CredentialsConfig `yaml:"credentials,omitempty"`
	Pricing      PricingConfig      `yaml:"pricing,omitempty" validate:"dive,dive"`
}

// CandidateConfig defines one backend of the router.
type CandidateConfig struct {
	Adapter   string `yaml:"adapter" validate:"required,oneof=anthropic openai google deepseek mock"`
	Model     string `yaml:"model" validate:"required"`
	Name      string `yaml:"name,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// CredentialsConfig defines a router with one candidate per API key.
type CredentialsConfig struct {
	Adapter string   `yaml:"adapter" validate:"required,oneof=anthropic openai google deepseek mock"`
	Model   string   `yaml:"model" validate:"required"`
	KeysEnv string   `yaml:"keys_env,omitempty"`
	Keys    []string `yaml:"keys,omitempty"`
}

// PricingConfig maps adapter -> model -> pricing. A "default" model entry
// applies to models of that adapter without their own entry.
type PricingConfig map[string]map[string]ModelPricing

// ModelPricing defines per-1k token pricing.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty" validate:"gte=0"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadRouterConfig reads router configuration from a YAML file.
func LoadRouterConfig(path string) (*RouterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRouterConfig(data)
}

// ParseRouterConfig decodes and validates router configuration.
func ParseRouterConfig(data []byte) (*RouterConfig, error) {
	var cfg RouterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyRouterDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that at least one backend source is
// configured.
func (c *RouterConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid router config: %w", err)
	}
	if len(c.Candidates) == 0 && c.Credentials == nil {
		return errors.New("invalid router config: candidates or credentials are required")
	}
	if len(c.Candidates) > 0 && c.Credentials != nil {
		return errors.New("invalid router config: candidates and credentials are mutually exclusive")
	}
	return nil
}

// Retry reports the effective retry setting.
func (c *RouterConfig) Retry() bool {
	return c.RetryOnError != nil && *c.RetryOnError
}

// ResolveKeys returns the credential keys: the literal list followed by the
// comma-separated keys in KeysEnv.
func (c *CredentialsConfig) ResolveKeys() []string {
	var keys []string
	for _, k := range c.Keys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if c.KeysEnv != "" {
		for _, k := range strings.Split(os.Getenv(c.KeysEnv), ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// DefaultRouterConfig returns a router over the hosted providers.
func DefaultRouterConfig() *RouterConfig {
	cfg := &RouterConfig{
		Candidates: []CandidateConfig{
			{Adapter: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Adapter: "openai", Model: "gpt-4o-mini"},
			{Adapter: "google", Model: "gemini-2.0-flash"},
			{Adapter: "deepseek", Model: "deepseek-chat"},
		},
	}
	applyRouterDefaults(cfg)
	return cfg
}

func applyRouterDefaults(cfg *RouterConfig) {
	if cfg == nil {
		return
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "round-robin"
	}
	if cfg.RetryOnError == nil {
		enabled := true
		cfg.RetryOnError = &enabled
	}
}
