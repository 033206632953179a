package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsEachKind(t *testing.T) {
	for _, kind := range []string{"anthropic", "openai", "google", "deepseek"} {
		t.Run(kind, func(t *testing.T) {
			a, err := New(kind, "test-key", "some-model")
			require.NoError(t, err)
			assert.Equal(t, kind, a.Name())
			assert.Equal(t, "some-model", a.ModelID())

			_, err = New(kind, "", "some-model")
			require.Error(t, err)
		})
	}

	m, err := New("MOCK", "", "mock-9")
	require.NoError(t, err)
	assert.Equal(t, "mock-9", m.ModelID())

	_, err = New("ollama", "k", "llama3")
	require.Error(t, err)
}

func TestProviderSupportedURLs(t *testing.T) {
	tests := []struct {
		kind       string
		categories []string
		url        string
		category   string
	}{
		{kind: "openai", categories: []string{"image/*"}, category: "image/*", url: "https://example.com/cat.png"},
		{kind: "anthropic", categories: []string{"application/pdf", "image/*"}, category: "application/pdf", url: "https://example.com/doc.pdf"},
		{kind: "google", categories: []string{"*", "video/*"}, category: "video/*", url: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{kind: "deepseek"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			a, err := New(tt.kind, "test-key", "m")
			require.NoError(t, err)
			set, err := a.SupportedURLs(context.Background())
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.categories, set.Categories())
			if tt.category == "" {
				return
			}
			matched := false
			for _, p := range set[tt.category] {
				matched = matched || p.MatchString(tt.url)
			}
			assert.True(t, matched, "%s should match %s", tt.url, tt.category)
		})
	}
}

func TestKeyedProvider(t *testing.T) {
	p, err := NewKeyedProvider("OpenAI", "sk-test")
	require.NoError(t, err)
	a, err := p.LanguageModel("gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", a.Name())
	assert.Equal(t, "gpt-4o-mini", a.ModelID())

	_, err = NewKeyedProvider("openai", "")
	require.Error(t, err)
	_, err = NewKeyedProvider("bard", "k")
	require.Error(t, err)

	mock, err := NewKeyedProvider("mock", "")
	require.NoError(t, err)
	a, err = mock.LanguageModel("mock-3")
	require.NoError(t, err)
	assert.Equal(t, "mock-3", a.ModelID())
}
