package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliasRouterYAML = `strategy: round-robin
candidates:
  - adapter: openai
    model: fast
    name: primary
  - adapter: anthropic
    model: quality
  - adapter: google
    model: gemini-2.0-flash
  - adapter: mock
    model: fast
credentials:
  adapter: deepseek
  model: cheap
`

func TestResolveRouterCandidateModels(t *testing.T) {
	cfg, err := ParseRouterConfig([]byte(aliasRouterYAML))
	require.NoError(t, err)

	aliases := DefaultAliases()
	var resolved []string
	for _, cand := range cfg.Candidates {
		resolved = append(resolved, aliases.Resolve(cand.Model))
	}
	assert.Equal(t, []string{
		"gpt-4o-mini",
		"claude-sonnet-4-20250514",
		"gemini-2.0-flash",
		"gpt-4o-mini",
	}, resolved, "aliases resolve regardless of adapter; model IDs pass through")
	assert.Equal(t, "deepseek-chat", aliases.Resolve(cfg.Credentials.Model))

	var none *ModelAliases
	assert.Equal(t, "fast", none.Resolve("fast"))
}

func TestValidateModelPerCandidate(t *testing.T) {
	aliases := &ModelAliases{
		Aliases: map[string]string{"fast": "gpt-4o-mini"},
		Providers: map[string][]string{
			"openai":    {"gpt-4o-mini", "gpt-4o"},
			"anthropic": {"claude-sonnet-4-20250514"},
		},
	}

	tests := []struct {
		name    string
		cand    CandidateConfig
		wantErr string
	}{
		{name: "alias listed for adapter", cand: CandidateConfig{Adapter: "openai", Model: "fast"}},
		{name: "model ID listed for adapter", cand: CandidateConfig{Adapter: "anthropic", Model: "claude-sonnet-4-20250514"}},
		{name: "model of another adapter", cand: CandidateConfig{Adapter: "anthropic", Model: "fast"}, wantErr: `model "gpt-4o-mini" not in anthropic provider list`},
		{name: "adapter without a provider list", cand: CandidateConfig{Adapter: "google", Model: "gemini-2.0-flash"}, wantErr: `unknown adapter "google"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := aliases.ValidateModel(tt.cand.Adapter, aliases.Resolve(tt.cand.Model))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}

	assert.NoError(t, (&ModelAliases{}).ValidateModel("openai", "anything"), "no provider lists means nothing to check")
}

func TestProviderLookups(t *testing.T) {
	aliases := &ModelAliases{
		Providers: map[string][]string{
			"openai":   {"gpt-4o-mini", "shared-model"},
			"deepseek": {"deepseek-chat", "shared-model"},
		},
	}

	assert.Equal(t, []string{"deepseek", "openai"}, aliases.ListProviders())
	assert.Equal(t, []string{"deepseek-chat", "shared-model"}, aliases.GetProviderModels("deepseek"))
	assert.Nil(t, aliases.GetProviderModels("google"))

	assert.Equal(t, "openai", aliases.GetProviderForModel("gpt-4o-mini"))
	assert.Equal(t, "deepseek", aliases.GetProviderForModel("shared-model"), "first provider in sorted order wins")
	assert.Empty(t, aliases.GetProviderForModel("unknown-model"))

	var none *ModelAliases
	assert.Nil(t, none.ListProviders())
	assert.Empty(t, none.GetProviderForModel("gpt-4o-mini"))
}

func TestLoadAliasesFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	content := `aliases:
  primary: gpt-4o
providers:
  openai:
    - gpt-4o
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.yaml"), []byte(content), 0600))

	aliases, err := LoadAliasesWithFallback(dir)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", aliases.Resolve("primary"))
	assert.Equal(t, "fast", aliases.Resolve("fast"), "a models.yaml replaces the built-in aliases")
	assert.Equal(t, "openai", aliases.GetProviderForModel("gpt-4o"))

	aliases, err = LoadAliasesWithFallback(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", aliases.Resolve("fast"), "built-in aliases when models.yaml is absent")
}

func TestLoadAliasesErrors(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases: [not, a, map]\n"), 0600))
	_, err = LoadAliases(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse "+path)

	empty := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0600))
	aliases, err := LoadAliases(empty)
	require.NoError(t, err)
	assert.NotNil(t, aliases.Aliases)
	assert.NotNil(t, aliases.Providers)
}

func TestListAliasesReturnsCopy(t *testing.T) {
	aliases := DefaultAliases()
	list := aliases.ListAliases()
	list["primary"] = "gpt-4o"
	assert.NotContains(t, aliases.Aliases, "primary")

	var none *ModelAliases
	assert.Empty(t, none.ListAliases())
}

func TestValidateRouterConfig(t *testing.T) {
	aliases := DefaultAliases()

	cfg, err := ParseRouterConfig([]byte(aliasRouterYAML))
	require.NoError(t, err)
	assert.Empty(t, aliases.ValidateRouterConfig(cfg), "mock candidates are not checked")

	cfg.Candidates[1].Model = "claude-2"
	cfg.Credentials.Model = "fast"
	errs := aliases.ValidateRouterConfig(cfg)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "candidate 1")
	assert.Contains(t, errs[1].Error(), "credentials")

	assert.Empty(t, aliases.ValidateRouterConfig(DefaultRouterConfig()))
}
