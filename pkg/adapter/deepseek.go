package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/option"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekAdapter implements the Adapter interface for DeepSeek models.
// DeepSeek uses an OpenAI-compatible API format.
type DeepSeekAdapter struct {
	*OpenAIAdapter
}

// NewDeepSeekAdapter creates a new DeepSeek adapter bound to model.
func NewDeepSeekAdapter(apiKey, model string) (*DeepSeekAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}

	inner, err := NewOpenAIAdapter(apiKey, model, option.WithBaseURL(deepseekBaseURL))
	if err != nil {
		return nil, err
	}
	inner.name = "deepseek"
	return &DeepSeekAdapter{OpenAIAdapter: inner}, nil
}

// SupportedURLs is empty: DeepSeek does not fetch remote content.
func (a *DeepSeekAdapter) SupportedURLs(context.Context) (CapabilitySet, error) {
	return CapabilitySet{}, nil
}
