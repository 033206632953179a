package config

import (
	"fmt"
	"os"
	"maps"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// ModelAliases maps short names used in config.yaml to provider model IDs,
// and lists the models each provider accepts.
type ModelAliases struct {
	Aliases   map[string]string   `yaml:"aliases"`
	Providers map[string][]string `yaml:"providers"`
}

// LoadAliases reads a models.yaml file.
func LoadAliases(path string) (*ModelAliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var aliases ModelAliases
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if aliases.Aliases == nil {
		aliases.Aliases = make(map[string]string)
	}
	if aliases.Providers == nil {
		aliases.Providers = make(map[string][]string)
	}

	return &aliases, nil
}

// LoadAliasesWithFallback loads aliases from models.yaml in configDir,
// falling back to the built-in defaults if not found.
func LoadAliasesWithFallback(configDir string) (*ModelAliases, error) {
	if configDir != "" {
		path := filepath.Join(configDir, "models.yaml")
		if _, err := os.Stat(path); err == nil {
			return LoadAliases(path)
		}
	}
	return DefaultAliases(), nil
}

// Resolve maps an alias to its model name. Anything else is returned as is.
func (a *ModelAliases) Resolve(name string) string {
	if a == nil {
		return name
	}
	if model, ok := a.Aliases[name]; ok {
		return model
	}
	return name
}

// ValidateModel checks that model is listed for adapter. Without provider
// lists nothing can be checked and nil is returned.
func (a *ModelAliases) ValidateModel(adapter, model string) error {
	if a == nil || a.Providers == nil {
		return nil
	}
	models, ok := a.Providers[adapter]
	if !ok {
		return fmt.Errorf("unknown adapter %q", adapter)
	}
	if !slices.Contains(models, model) {
		return fmt.Errorf("model %q not in %s provider list", model, adapter)
	}
	return nil
}

// ListAliases returns a copy of the alias table.
func (a *ModelAliases) ListAliases() map[string]string {
	if a == nil || a.Aliases == nil {
		return map[string]string{}
	}
	return maps.Clone(a.Aliases)
}

// ListProviders returns provider names in sorted order.
func (a *ModelAliases) ListProviders() []string {
	if a == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(a.Providers))
}

// GetProviderModels returns the models listed for provider.
func (a *ModelAliases) GetProviderModels(provider string) []string {
	if a == nil {
		return nil
	}
	return a.Providers[provider]
}

// GetProviderForModel returns the first provider, in sorted order, that
// lists model, or "".
func (a *ModelAliases) GetProviderForModel(model string) string {
	for _, provider := range a.ListProviders() {
		if slices.Contains(a.Providers[provider], model) {
			return provider
		}
	}
	return ""
}

// ValidateRouterConfig checks that every model in a router config resolves to
// a model its adapter lists. The mock adapter is not checked.
func (a *ModelAliases) ValidateRouterConfig(cfg *RouterConfig) []error {
	if a == nil || cfg == nil {
		return nil
	}

	var errs []error
	for i, cand := range cfg.Candidates {
		if cand.Adapter == "mock" {
			continue
		}
		if err := a.ValidateModel(cand.Adapter, a.Resolve(cand.Model)); err != nil {
			errs = append(errs, fmt.Errorf("candidate %d: %w", i, err))
		}
	}
	if c := cfg.Credentials; c != nil && c.Adapter != "mock" {
		if err := a.ValidateModel(c.Adapter, a.Resolve(c.Model)); err != nil {
			errs = append(errs, fmt.Errorf("credentials: %w", err))
		}
	}
	return errs
}

// DefaultAliases returns the default model aliases configuration.
func DefaultAliases() *ModelAliases {
	return &ModelAliases{
		Aliases: map[string]string{
			// OpenAI
			"fast":  "gpt-4o-mini",
			"smart": "gpt-4o",
			// Anthropic
			"quality": "claude-sonnet-4-20250514",
			"deep":    "claude-opus-4-20250514",
			// Google
			"flash": "gemini-2.0-flash",
			"pro":   "gemini-2.5-pro",
			// DeepSeek
			"cheap":  "deepseek-chat",
			"reason": "deepseek-reasoner",
		},
		Providers: map[string][]string{
			"anthropic": {"claude-sonnet-4-20250514", "claude-opus-4-20250514"},
			"openai":    {"gpt-4o-mini", "gpt-4o"},
			"google":    {"gemini-2.0-flash", "gemini-2.5-pro"},
			"deepseek":  {"deepseek-chat", "deepseek-reasoner"},
		},
	}
}
