package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/zen-systems/modelmux/pkg/artifact"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	name            string
	model           string
	responses       map[string]string
	defaultResponse string
	Usage           *Usage
	// Err, when set, is returned by Generate and Stream.
	Err error
	// Events, when set, is replayed by Stream instead of a generated script.
	Events []StreamEvent
	// StreamErr is reported by the stream after Events are exhausted.
	StreamErr error
	// URLs is returned by SupportedURLs.
	URLs CapabilitySet

	mu      sync.Mutex
	calls   int
	streams []*SliceStream
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		name:            "mock",
		model:           "mock-1",
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	m := NewMockAdapter()
	if responses != nil {
		m.responses = responses
	}
	if defaultResponse != "" {
		m.defaultResponse = defaultResponse
	}
	return m
}

// NewFailingMockAdapter creates a mock adapter whose calls all fail with err.
func NewFailingMockAdapter(err error) *MockAdapter {
	m := NewMockAdapter()
	m.Err = err
	return m
}

// WithIdentity overrides the reported name and model.
func (a *MockAdapter) WithIdentity(name, model string) *MockAdapter {
	a.name = name
	a.model = model
	return a
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return a.name
}

// ModelID returns the mock model.
func (a *MockAdapter) ModelID() string {
	return a.model
}

// SupportedURLs returns the configured capability set.
func (a *MockAdapter) SupportedURLs(context.Context) (CapabilitySet, error) {
	if a.URLs == nil {
		return CapabilitySet{}, nil
	}
	return a.URLs, nil
}

// Calls returns how many times Generate or Stream was invoked.
func (a *MockAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Streams returns the streams handed out so far.
func (a *MockAdapter) Streams() []*SliceStream {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*SliceStream(nil), a.streams...)
}

func (a *MockAdapter) record() {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
}

func (a *MockAdapter) content(prompt string) string {
	if response, ok := a.responses[prompt]; ok {
		return response
	}
	return fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
}

// Generate returns a deterministic artifact for the prompt.
func (a *MockAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	a.record()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Err != nil {
		return nil, a.Err
	}
	art := artifact.New(a.content(req.Prompt), a.name, a.model)
	return &Response{
		Artifact:         art,
		Usage:            a.Usage,
		FinishReason:     "stop",
		ProviderMetadata: map[string]any{a.name: map[string]any{"mock": true}},
	}, nil
}

// Stream replays Events, or streams the generated content as one delta
// followed by a finish event.
func (a *MockAdapter) Stream(ctx context.Context, req *Request) (Stream, error) {
	a.record()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Err != nil {
		return nil, a.Err
	}
	events := a.Events
	if events == nil {
		events = []StreamEvent{
			{Type: EventTextDelta, Text: a.content(req.Prompt)},
			{Type: EventFinish, FinishReason: "stop", Usage: a.Usage},
		}
	}
	s := NewSliceStream(events, a.StreamErr)
	a.mu.Lock()
	a.streams = append(a.streams, s)
	a.mu.Unlock()
	return s, nil
}
