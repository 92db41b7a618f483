package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/logger"
)

// Client is the text-generation boundary: one request, one text answer.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Provider() string
}

type Request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

type Response struct {
	Text  string
	Model string
	Usage *Usage
}

// New builds the client for the configured provider. apiKey must already be
// checked with config.RequireCredential.
func New(ctx context.Context, p config.Provider, apiKey string) (Client, error) {
	switch p.Name {
	case config.ProviderOpenAI:
		return NewOpenAI(apiKey, p.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropic(apiKey, p.BaseURL), nil
	case config.ProviderGemini:
		return NewGemini(ctx, apiKey, p.BaseURL)
	default:
		return nil, derrors.Newf(derrors.CodeConfig, "unsupported provider %q", p.Name)
	}
}

func StageRequest(stage config.Stage, system, user string) Request {
	return Request{
		System:      system,
		User:        user,
		Model:       stage.Model,
		Temperature: stage.Temperature,
		MaxTokens:   stage.MaxTokens,
	}
}

var fencePattern = regexp.MustCompile("(?s)^```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)\r?\n?```$")

// StripFences removes a markdown code fence wrapping the whole text.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}

func generationError(err error, provider, model string) error {
	return derrors.Wrap(err, derrors.CodeGeneration, "text generation request failed").
		WithContext(derrors.CtxProvider, provider).
		WithContext(derrors.CtxModel, model)
}

func emptyResponseError(provider, model string) error {
	return derrors.New(derrors.CodeGeneration, "response contained no text").
		WithContext(derrors.CtxProvider, provider).
		WithContext(derrors.CtxModel, model)
}

func logUsage(provider, model string, usage *Usage) {
	if usage == nil {
		logger.Debug("llm response provider=%s model=%s", provider, model)
		return
	}
	logger.Debug("llm response provider=%s model=%s prompt_tokens=%d completion_tokens=%d",
		provider, model, usage.PromptTokens, usage.CompletionTokens)
}

func requireModel(req Request) error {
	if strings.TrimSpace(req.Model) == "" {
		return derrors.New(derrors.CodeConfig, "missing model")
	}
	if strings.TrimSpace(req.User) == "" {
		return fmt.Errorf("empty user message")
	}
	return nil
}
