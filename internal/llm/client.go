package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Completion is the result of a single model call, including usage so
// callers can account for token spend.
type Completion struct {
	Content   string
	ModelUsed string
	TokensIn  int
	TokensOut int
	CostUSD   float64
}

// Client is an abstraction over LLM providers
type Client interface {
	// Complete generates free-form text with the named model.
	Complete(ctx context.Context, model, prompt string) (*Completion, error)
	// CompleteJSON generates JSON output with the named model.
	CompleteJSON(ctx context.Context, model, prompt string) (*Completion, error)
	// GenerateImage generates one image with the named model.
	GenerateImage(ctx context.Context, model, prompt string) ([]byte, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client for the given provider.
func NewClient(ctx context.Context, provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey)
	default:
		return NewGeminiClient(ctx, apiKey)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

// Complete generates free-form text with the named model.
func (c *GeminiClient) Complete(ctx context.Context, model, prompt string) (*Completion, error) {
	m := c.client.GenerativeModel(model)
	m.SetTemperature(0.4)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classify(model, err)
	}
	return buildCompletion(model, resp)
}

// CompleteJSON generates JSON output with the named model.
func (c *GeminiClient) CompleteJSON(ctx context.Context, model, prompt string) (*Completion, error) {
	m := c.client.GenerativeModel(model)
	m.SetTemperature(0.1) // Low temperature for consistent structured output
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classify(model, err)
	}

	completion, err := buildCompletion(model, resp)
	if err != nil {
		return nil, err
	}
	completion.Content = CleanJSONBlock(completion.Content)
	return completion, nil
}

// GenerateImage generates one image with the named model, returning the raw
// bytes of the first inline image part.
func (c *GeminiClient) GenerateImage(ctx context.Context, model, prompt string) ([]byte, error) {
	m := c.client.GenerativeModel(model)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, classify(model, err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && strings.HasPrefix(blob.MIMEType, "image/") {
				return blob.Data, nil
			}
		}
	}
	return nil, &ProviderError{Model: model, Kind: KindServer,
		Cause: fmt.Errorf("no image data in response")}
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// buildCompletion extracts text and usage from a Gemini response.
func buildCompletion(model string, resp *genai.GenerateContentResponse) (*Completion, error) {
	if len(resp.Candidates) == 0 {
		return nil, &ProviderError{Model: model, Kind: KindServer,
			Cause: fmt.Errorf("no candidates in response")}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, &ProviderError{Model: model, Kind: KindServer,
			Cause: fmt.Errorf("no content in response")}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return nil, &ProviderError{Model: model, Kind: KindServer,
			Cause: fmt.Errorf("no text parts in response")}
	}

	completion := &Completion{
		Content:   strings.Join(parts, ""),
		ModelUsed: model,
	}
	if resp.UsageMetadata != nil {
		completion.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		completion.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
		completion.CostUSD = estimateCost(model, completion.TokensIn, completion.TokensOut)
	}
	return completion, nil
}
