package adapter

import "github.com/zen-systems/modelmux/pkg/artifact"

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Normalize fills TotalTokens when the provider did not report it.
func (u *Usage) Normalize() *Usage {
	if u == nil {
		return nil
	}
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

// Response wraps an adapter output and optional usage data.
type Response struct {
	Artifact     *artifact.Artifact
	Usage        *Usage
	FinishReason string
	// ProviderMetadata holds namespaced metadata attached by adapters and
	// routers. Entries are keyed by namespace.
	ProviderMetadata map[string]any
}

// Text returns the generated content, or "" for an empty response.
func (r *Response) Text() string {
	if r == nil || r.Artifact == nil {
		return ""
	}
	return r.Artifact.Content
}
