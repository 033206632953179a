package adapter

import (
	"context"
	"fmt"
	"iter"
	"regexp"

	"github.com/zen-systems/modelmux/pkg/artifact"
	"google.golang.org/genai"
)

var (
	geminiFileURLs    = regexp.MustCompile(`^https://generativelanguage\.googleapis\.com/v1beta/files/.*$`)
	geminiYouTubeURLs = regexp.MustCompile(`^https://(?:www\.)?youtube\.com/watch\?v=[\w-]+$`)
)

// GoogleAdapter implements the Adapter interface for Gemini models.
type GoogleAdapter struct {
	client *genai.Client
	model  string
}

// NewGoogleAdapter creates a new Google Gemini adapter bound to model.
func NewGoogleAdapter(apiKey, model string) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("google model is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleAdapter{
		client: client,
		model:  model,
	}, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string {
	return "google"
}

// ModelID returns the bound model.
func (a *GoogleAdapter) ModelID() string {
	return a.model
}

// SupportedURLs reports the Files API and YouTube URLs Gemini reads natively.
func (a *GoogleAdapter) SupportedURLs(context.Context) (CapabilitySet, error) {
	return CapabilitySet{
		"*":       {geminiFileURLs},
		"video/*": {geminiYouTubeURLs},
	}, nil
}

func (a *GoogleAdapter) config(req *Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	return cfg
}

// Generate sends the request to Gemini and returns the response.
func (a *GoogleAdapter) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(req.Prompt), a.config(req))
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	return &Response{
		Artifact:     artifact.New(resp.Text(), a.Name(), a.model),
		Usage:        geminiUsage(resp.UsageMetadata),
		FinishReason: string(resp.Candidates[0].FinishReason),
	}, nil
}

// Stream opens a streaming generation.
func (a *GoogleAdapter) Stream(ctx context.Context, req *Request) (Stream, error) {
	seq := a.client.Models.GenerateContentStream(ctx, a.model, genai.Text(req.Prompt), a.config(req))
	next, stop := iter.Pull2(seq)

	var streamErr error
	s := &chunkStream[*genai.GenerateContentResponse]{
		next: func() (*genai.GenerateContentResponse, bool) {
			if streamErr != nil {
				return nil, false
			}
			resp, err, ok := next()
			if !ok {
				return nil, false
			}
			if err != nil {
				streamErr = fmt.Errorf("google stream error: %w", err)
				return nil, false
			}
			return resp, true
		},
		err: func() error { return streamErr },
		close: func() error {
			stop()
			return nil
		},
		convert: convertGeminiChunk,
	}
	return prime(s)
}

func convertGeminiChunk(resp *genai.GenerateContentResponse, state *streamState) []StreamEvent {
	if resp == nil {
		return nil
	}
	if resp.UsageMetadata != nil {
		state.usage = geminiUsage(resp.UsageMetadata)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		state.finishReason = string(resp.Candidates[0].FinishReason)
	}
	if text := resp.Text(); text != "" {
		return []StreamEvent{{Type: EventTextDelta, Text: text}}
	}
	return nil
}

func geminiUsage(meta *genai.GenerateContentResponseUsageMetadata) *Usage {
	if meta == nil {
		return nil
	}
	usage := &Usage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	}
	return usage.Normalize()
}
