package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zen-systems/modelmux/pkg/config"
)

const mockRouterConfig = `strategy: round-robin
retry_on_error: true
candidates:
  - adapter: mock
    model: mock-a
    name: first
  - adapter: mock
    model: mock-b
    name: second
`

func setupConfig(t *testing.T, routerYAML string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MODELMUX_CONFIG_DIR", dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY"} {
		t.Setenv(key, "")
	}
	if routerYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(routerYAML), 0600))
	}
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAskRoutesThroughMockCandidates(t *testing.T) {
	setupConfig(t, mockRouterConfig)

	stdout, stderr, err := run(t, "", "ask", "hello")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mock response:\nhello")
	assert.Contains(t, stderr, "Served by ")
	assert.Contains(t, stderr, "mock/mock-")
}

func TestAskStream(t *testing.T) {
	setupConfig(t, mockRouterConfig)

	stdout, stderr, err := run(t, "", "ask", "--stream", "hello")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mock response:\nhello")
	assert.Contains(t, stderr, "Served by ")
}

func TestAskWritesEvidence(t *testing.T) {
	dir := setupConfig(t, mockRouterConfig)
	evidenceDir := filepath.Join(dir, "evidence")

	_, _, err := run(t, "", "ask", "--evidence-dir", evidenceDir, "hello")
	require.NoError(t, err)

	calls, err := os.ReadDir(filepath.Join(evidenceDir, "calls"))
	require.NoError(t, err)
	require.Len(t, calls, 1)
	blobs, err := os.ReadDir(filepath.Join(evidenceDir, "blobs"))
	require.NoError(t, err)
	assert.Len(t, blobs, 1)

	data, err := os.ReadFile(filepath.Join(evidenceDir, "calls", calls[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selectedName"`)
	assert.Contains(t, string(data), `"mode": "generate"`)
}

func TestCandidatesCommand(t *testing.T) {
	setupConfig(t, mockRouterConfig)

	stdout, _, err := run(t, "", "candidates")
	require.NoError(t, err)
	assert.Contains(t, stdout, "INDEX")
	assert.Contains(t, stdout, "first")
	assert.Contains(t, stdout, "second")
	assert.Contains(t, stdout, "round-robin")
	assert.Contains(t, stdout, "No URL capabilities shared by every candidate.")
}

func TestBatchSharesRotation(t *testing.T) {
	setupConfig(t, mockRouterConfig)

	stdout, stderr, err := run(t, "one\n\ntwo\nthree\nfour\n", "batch", "--concurrency", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stdout, "first"))
	assert.Equal(t, 2, strings.Count(stdout, "second"))
	assert.Contains(t, stderr, "4 prompts, 0 failed")
}

func TestBatchRejectsNonPositiveConcurrency(t *testing.T) {
	setupConfig(t, mockRouterConfig)

	for _, n := range []string{"0", "-2"} {
		_, _, err := run(t, "one\n", "batch", "--concurrency", n)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--concurrency must be at least 1")
	}
}

func TestModelsResolve(t *testing.T) {
	setupConfig(t, mockRouterConfig)

	stdout, _, err := run(t, "", "models", "--resolve")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ALIAS")
	assert.Contains(t, stdout, "gpt-4o-mini")

	stdout, _, err = run(t, "", "models", "--validate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "All models in the router config are valid.")
}

func TestCreateRouterSkipsCandidatesWithoutKeys(t *testing.T) {
	setupConfig(t, "")
	cfg := &config.Config{
		Router: &config.RouterConfig{
			Strategy: "round-robin",
			Candidates: []config.CandidateConfig{
				{Adapter: "openai", Model: "fast"},
				{Adapter: "mock", Model: "mock-1", Name: "local"},
			},
		},
	}

	r, err := createRouter(cfg, config.DefaultAliases(), zap.NewNop(), nil)
	require.NoError(t, err)
	require.Len(t, r.Candidates(), 1)
	assert.Equal(t, "local", r.Candidates()[0].Name)
	assert.False(t, r.RetryOnError(), "an unset retry flag in a hand-built config means off")

	cfg.OpenAIAPIKey = "sk-test"
	r, err = createRouter(cfg, config.DefaultAliases(), zap.NewNop(), nil)
	require.NoError(t, err)
	require.Len(t, r.Candidates(), 2)
	assert.Equal(t, "gpt-4o-mini", r.Candidates()[0].Adapter.ModelID(), "aliases are resolved")

	cfg.Router.Candidates = cfg.Router.Candidates[:1]
	cfg.OpenAIAPIKey = ""
	_, err = createRouter(cfg, config.DefaultAliases(), zap.NewNop(), nil)
	require.Error(t, err)
}

func TestCreateRouterFromCredentials(t *testing.T) {
	setupConfig(t, "")
	t.Setenv("MODELMUX_TEST_KEYS", "sk-aaaaaaaaaaaa1111,sk-bbbbbbbbbbbb2222")
	enabled := true
	cfg := &config.Config{
		Router: &config.RouterConfig{
			RetryOnError: &enabled,
			Credentials: &config.CredentialsConfig{
				Adapter: "openai",
				Model:   "fast",
				KeysEnv: "MODELMUX_TEST_KEYS",
			},
		},
	}

	r, err := createRouter(cfg, config.DefaultAliases(), zap.NewNop(), nil)
	require.NoError(t, err)
	require.Len(t, r.Candidates(), 2)
	assert.Equal(t, "key#0(…1111)", r.Candidates()[0].Name)
	assert.Equal(t, "key#1(…2222)", r.Candidates()[1].Name)
	assert.Equal(t, "gpt-4o-mini", r.Candidates()[1].Adapter.ModelID())
	assert.True(t, r.RetryOnError())

	cfg.Router.Credentials = &config.CredentialsConfig{Adapter: "anthropic", Model: "quality"}
	_, err = createRouter(cfg, config.DefaultAliases(), zap.NewNop(), nil)
	require.Error(t, err)

	cfg.Router.Credentials = &config.CredentialsConfig{Adapter: "mock", Model: "mock-1"}
	r, err = createRouter(cfg, config.DefaultAliases(), zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Len(t, r.Candidates(), 1)
}

func TestReadPromptsAndFirstLine(t *testing.T) {
	prompts, err := readPrompts(strings.NewReader("  a \n\n b\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, prompts)

	assert.Equal(t, "one …", firstLine("one\ntwo"))
	assert.Equal(t, strings.Repeat("x", 60)+"…", firstLine(strings.Repeat("x", 80)))
}
