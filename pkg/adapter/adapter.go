package adapter

import (
	"context"
	"regexp"
)

// Adapter defines the interface for model backends. A composite router
// satisfies the same interface, so routers can be nested.
type Adapter interface {
	// Generate sends a request to the model and returns the full response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a request to the model and returns a pull-based event stream.
	// Errors that occur while establishing the stream are returned directly.
	Stream(ctx context.Context, req *Request) (Stream, error)

	// Name returns the backend identity (e.g. "openai").
	Name() string

	// ModelID returns the model identifier the adapter is bound to.
	ModelID() string

	// SupportedURLs returns the URL patterns the backend can fetch natively,
	// keyed by media type category.
	SupportedURLs(ctx context.Context) (CapabilitySet, error)
}

// Request is a provider-agnostic generation request.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature *float64
	Metadata    map[string]any
}

// CapabilitySet maps a feature category (usually a media type such as
// "image/*") to the URL patterns a backend supports for it.
type CapabilitySet map[string][]*regexp.Regexp

// Categories returns the category keys in the set.
func (c CapabilitySet) Categories() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// EventType identifies the kind of a stream event.
type EventType string

const (
	EventTextDelta EventType = "text-delta"
	EventFinish    EventType = "finish"
	EventError     EventType = "error"
)

// StreamEvent is a single element of a streamed response. The final element
// of a successful stream has Type EventFinish.
type StreamEvent struct {
	Type             EventType      `json:"type"`
	Text             string         `json:"text,omitempty"`
	FinishReason     string         `json:"finish_reason,omitempty"`
	Usage            *Usage         `json:"usage,omitempty"`
	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`
}

// Stream is a pull-based sequence of events. Next advances the stream and
// reports whether an event is available; Close releases the underlying
// connection and may be called at any time to cancel the stream.
type Stream interface {
	Next() bool
	Current() StreamEvent
	Err() error
	Close() error
}
