package adapter

import (
	"fmt"
	"strings"
)

// Kinds lists the adapter kinds New understands.
var Kinds = []string{"anthropic", "deepseek", "google", "mock", "openai"}

// New constructs an adapter of the given kind bound to model.
func New(kind, apiKey, model string) (Adapter, error) {
	switch strings.ToLower(kind) {
	case "anthropic":
		return NewAnthropicAdapter(apiKey, model)
	case "openai":
		return NewOpenAIAdapter(apiKey, model)
	case "google":
		return NewGoogleAdapter(apiKey, model)
	case "deepseek":
		return NewDeepSeekAdapter(apiKey, model)
	case "mock":
		m := NewMockAdapter()
		if model != "" {
			m.model = model
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", kind)
	}
}

// KeyedProvider creates adapters of one kind that share a single API key.
type KeyedProvider struct {
	kind   string
	apiKey string
}

// NewKeyedProvider validates kind and returns a provider for apiKey.
func NewKeyedProvider(kind, apiKey string) (*KeyedProvider, error) {
	kind = strings.ToLower(kind)
	known := false
	for _, k := range Kinds {
		if k == kind {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown adapter %q", kind)
	}
	if apiKey == "" && kind != "mock" {
		return nil, fmt.Errorf("%s API key is required", kind)
	}
	return &KeyedProvider{kind: kind, apiKey: apiKey}, nil
}

// LanguageModel returns an adapter for modelID using the provider's key.
func (p *KeyedProvider) LanguageModel(modelID string) (Adapter, error) {
	return New(p.kind, p.apiKey, modelID)
}
