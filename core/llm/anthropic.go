package llm

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tristendillon/diagify/core/config"
)

const anthropicDefaultMaxTokens = 1024

type AnthropicClient struct {
	client anthropic.Client
}

func NewAnthropic(apiKey, baseURL string) *AnthropicClient {
	opts := []aoption.RequestOption{
		aoption.WithAPIKey(strings.TrimSpace(apiKey)),
		aoption.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

func (c *AnthropicClient) Provider() string {
	return config.ProviderAnthropic
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := requireModel(req); err != nil {
		return Response{}, err
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   anthropicDefaultMaxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.User))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, generationError(err, c.Provider(), req.Model)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, emptyResponseError(c.Provider(), req.Model)
	}

	usage := &Usage{
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
	}
	logUsage(c.Provider(), string(msg.Model), usage)

	return Response{
		Text:  text.String(),
		Model: string(msg.Model),
		Usage: usage,
	}, nil
}
