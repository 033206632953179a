package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string
	Router          *RouterConfig
	ConfigDir       string
}

// Load reads ~/.modelmux/.env and ~/.modelmux/config.yaml. API keys come
// from the environment only; values already set in the environment take
// precedence over the .env file.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	routerPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(routerPath); err != nil {
		cfg := loadEnvConfig(configDir)
		cfg.Router = DefaultRouterConfig()
		return cfg, nil
	}
	return LoadWithRouterFile(routerPath)
}

// LoadWithRouterFile loads config with a specific router file.
func LoadWithRouterFile(routerPath string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	cfg := loadEnvConfig(configDir)
	routerCfg, err := LoadRouterConfig(routerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load router config from %s: %w", routerPath, err)
	}
	cfg.Router = routerCfg
	return cfg, nil
}

func loadEnvConfig(configDir string) *Config {
	// A missing .env file is not an error.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	return &Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		ConfigDir:       configDir,
	}
}

// APIKey returns the configured key for an adapter kind.
func (c *Config) APIKey(adapter string) string {
	switch strings.ToLower(adapter) {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "google":
		return c.GoogleAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	default:
		return ""
	}
}

// HasAdapter returns true if the API key for the given adapter is configured.
// The mock adapter needs no key.
func (c *Config) HasAdapter(name string) bool {
	if strings.EqualFold(name, "mock") {
		return true
	}
	return c.APIKey(name) != ""
}

// CandidateKey resolves the key for a candidate, honoring api_key_env.
func (c *Config) CandidateKey(cand CandidateConfig) string {
	if cand.APIKeyEnv != "" {
		return os.Getenv(cand.APIKeyEnv)
	}
	return c.APIKey(cand.Adapter)
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("MODELMUX_CONFIG_DIR"); dir != "" {
		return dir, os.MkdirAll(dir, 0755)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".modelmux")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
