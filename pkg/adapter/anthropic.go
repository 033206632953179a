package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/zen-systems/modelmux/pkg/artifact"
)

const anthropicDefaultMaxTokens = 4096

var anthropicURLs = regexp.MustCompile(`^https?://.*$`)

// AnthropicAdapter implements the Adapter interface for Claude models.
type AnthropicAdapter struct {
	client anthropic.Client
	model  string
}

// NewAnthropicAdapter creates a new Anthropic adapter bound to model.
func NewAnthropicAdapter(apiKey, model string, opts ...option.RequestOption) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicAdapter{client: client, model: model}, nil
}

// Name returns the adapter identifier.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// ModelID returns the bound model.
func (a *AnthropicAdapter) ModelID() string {
	return a.model
}

// SupportedURLs reports that Claude fetches image and PDF URLs natively.
func (a *AnthropicAdapter) SupportedURLs(context.Context) (CapabilitySet, error) {
	return CapabilitySet{
		"image/*":         {anthropicURLs},
		"application/pdf": {anthropicURLs},
	}, nil
}

func (a *AnthropicAdapter) params(req *Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}

// Generate sends the request to Claude and returns the response.
func (a *AnthropicAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	usage := &Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	}
	return &Response{
		Artifact:     artifact.New(content.String(), a.Name(), a.model),
		Usage:        usage.Normalize(),
		FinishReason: string(resp.StopReason),
	}, nil
}

// Stream opens a streaming message.
func (a *AnthropicAdapter) Stream(ctx context.Context, req *Request) (Stream, error) {
	sse := a.client.Messages.NewStreaming(ctx, a.params(req))
	s := &chunkStream[anthropic.MessageStreamEventUnion]{
		next: func() (anthropic.MessageStreamEventUnion, bool) {
			if !sse.Next() {
				return anthropic.MessageStreamEventUnion{}, false
			}
			return sse.Current(), true
		},
		err: func() error {
			if err := sse.Err(); err != nil {
				return fmt.Errorf("anthropic stream error: %w", err)
			}
			return nil
		},
		close:   sse.Close,
		convert: convertAnthropicEvent,
	}
	return prime(s)
}

func convertAnthropicEvent(event anthropic.MessageStreamEventUnion, state *streamState) []StreamEvent {
	switch ev := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		state.usage = &Usage{PromptTokens: int(ev.Message.Usage.InputTokens)}
	case anthropic.ContentBlockDeltaEvent:
		if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
			return []StreamEvent{{Type: EventTextDelta, Text: delta.Text}}
		}
	case anthropic.MessageDeltaEvent:
		if ev.Delta.StopReason != "" {
			state.finishReason = string(ev.Delta.StopReason)
		}
		if state.usage == nil {
			state.usage = &Usage{}
		}
		state.usage.CompletionTokens = int(ev.Usage.OutputTokens)
	}
	return nil
}
