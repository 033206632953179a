package adapter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zen-systems/modelmux/pkg/artifact"
)

var openAIImageURLs = regexp.MustCompile(`^https?://.*$`)

// OpenAIAdapter implements the Adapter interface for OpenAI chat models.
type OpenAIAdapter struct {
	client openai.Client
	name   string
	model  string
}

// NewOpenAIAdapter creates a new OpenAI adapter bound to model.
func NewOpenAIAdapter(apiKey, model string, opts ...option.RequestOption) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIAdapter{client: client, name: "openai", model: model}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// ModelID returns the bound model.
func (a *OpenAIAdapter) ModelID() string {
	return a.model
}

// SupportedURLs reports that chat models accept http(s) image URLs.
func (a *OpenAIAdapter) SupportedURLs(context.Context) (CapabilitySet, error) {
	return CapabilitySet{"image/*": {openAIImageURLs}}, nil
}

func (a *OpenAIAdapter) params(req *Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	return params
}

// Generate sends the request to OpenAI and returns the response.
func (a *OpenAIAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := a.client.Chat.Completions.New(ctx, a.params(req))
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", a.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", a.name)
	}

	usage := &Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return &Response{
		Artifact:     artifact.New(resp.Choices[0].Message.Content, a.name, a.model),
		Usage:        usage.Normalize(),
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}

// Stream opens a streaming chat completion.
func (a *OpenAIAdapter) Stream(ctx context.Context, req *Request) (Stream, error) {
	params := a.params(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	sse := a.client.Chat.Completions.NewStreaming(ctx, params)
	s := &chunkStream[openai.ChatCompletionChunk]{
		next: func() (openai.ChatCompletionChunk, bool) {
			if !sse.Next() {
				return openai.ChatCompletionChunk{}, false
			}
			return sse.Current(), true
		},
		err: func() error {
			if err := sse.Err(); err != nil {
				return fmt.Errorf("%s stream error: %w", a.name, err)
			}
			return nil
		},
		close:   sse.Close,
		convert: convertOpenAIChunk,
	}
	return prime(s)
}

func convertOpenAIChunk(chunk openai.ChatCompletionChunk, state *streamState) []StreamEvent {
	if chunk.Usage.TotalTokens > 0 {
		state.usage = &Usage{
			PromptTokens:     int(chunk.Usage.PromptTokens),
			CompletionTokens: int(chunk.Usage.CompletionTokens),
			TotalTokens:      int(chunk.Usage.TotalTokens),
		}
	}
	var events []StreamEvent
	for _, choice := range chunk.Choices {
		if choice.FinishReason != "" {
			state.finishReason = choice.FinishReason
		}
		if choice.Delta.Content != "" {
			events = append(events, StreamEvent{Type: EventTextDelta, Text: choice.Delta.Content})
		}
	}
	return events
}
