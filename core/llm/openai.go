package llm

import (
	"context"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	"github.com/tristendillon/diagify/core/config"
)

type OpenAIClient struct {
	client openai.Client
}

func NewOpenAI(apiKey, baseURL string) *OpenAIClient {
	opts := []ooption.RequestOption{
		ooption.WithAPIKey(strings.TrimSpace(apiKey)),
		ooption.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

func (c *OpenAIClient) Provider() string {
	return config.ProviderOpenAI
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := requireModel(req); err != nil {
		return Response{}, err
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, generationError(err, c.Provider(), req.Model)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return Response{}, emptyResponseError(c.Provider(), req.Model)
	}

	usage := &Usage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}
	logUsage(c.Provider(), completion.Model, usage)

	return Response{
		Text:  completion.Choices[0].Message.Content,
		Model: completion.Model,
		Usage: usage,
	}, nil
}
