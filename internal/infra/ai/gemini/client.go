package gemini

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	domai "github.com/bryanwahyu/forensiq/internal/domain/ai"
	"github.com/bryanwahyu/forensiq/internal/infra/ai/prompt"
)

const defaultModel = "gemini-2.5-flash"

// Client is a thin wrapper around the official genai client.
type Client struct {
	cli         *genai.Client
	Model       string
	MaxTokens   int32
	Temperature float32
}

// NewClient builds a Gemini API client. An empty apiKey lets genai fall back
// to GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	return newClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}, model)
}

// NewClientWithBaseURL targets a proxy or compatible endpoint instead of
// generativelanguage.googleapis.com.
func NewClientWithBaseURL(ctx context.Context, apiKey, model, baseURL string) (*Client, error) {
	return newClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	}, model)
}

func newClient(ctx context.Context, cfg *genai.ClientConfig, model string) (*Client, error) {
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{cli: cli, Model: model, MaxTokens: 500, Temperature: 0.2}, nil
}

func (c *Client) Summarize(ctx context.Context, userPrompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.Temperature),
		MaxOutputTokens: c.MaxTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: prompt.GetSystemPrompt()}},
		},
	}
	resp, err := c.cli.Models.GenerateContent(ctx, c.Model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: userPrompt}}}},
		cfg,
	)
	if err != nil {
		if strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "resource_exhausted") {
			return "", fmt.Errorf("%w: %v", domai.ErrQuotaExceeded, err)
		}
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domai.ErrEmptyCompletion
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", domai.ErrEmptyCompletion
	}
	return out, nil
}
