package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tristendillon/diagify/core/config"
	"google.golang.org/genai"
)

type GeminiClient struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(baseURL) != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSpace(baseURL)}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) Provider() string {
	return config.ProviderGemini
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := requireModel(req); err != nil {
		return Response{}, err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), cfg)
	if err != nil {
		return Response{}, generationError(err, c.Provider(), req.Model)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return Response{}, emptyResponseError(c.Provider(), req.Model)
	}

	var usage *Usage
	if result.UsageMetadata != nil {
		usage = &Usage{
			PromptTokens:     int64(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	logUsage(c.Provider(), req.Model, usage)

	return Response{Text: text, Model: req.Model, Usage: usage}, nil
}
