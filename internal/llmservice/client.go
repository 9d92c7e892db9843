package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mcq-rag/internal/config"
	"mcq-rag/internal/models"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Request is a single system+user chat completion. Nil sampling fields and a
// zero MaxTokens leave the provider default in place.
type Request struct {
	System      string
	User        string
	Model       string
	Temperature *float64
	MaxTokens   int
	TopP        *float64
}

// Float returns a pointer to v for the optional sampling fields of Request.
func Float(v float64) *float64 {
	return &v
}

// Completer is the chat-completion capability the core depends on.
// A nil Completer means no LLM is configured.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var thinkRe = regexp.MustCompile(models.ThinkTag)

// ErrEmptyResponse is returned when the model answers without any choice.
var ErrEmptyResponse = errors.New("llm returned no choices")

// Client calls a langchaingo model.
type Client struct {
	llm   llms.Model
	model string
}

// New builds a client for an OpenAI-compatible endpoint (Groq by default) or Ollama.
func New(llmConfig *config.LLMConfig) (*Client, error) {
	var (
		llm llms.Model
		err error
	)
	switch llmConfig.Provider {
	case "ollama":
		llm, err = ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	default:
		llm, err = openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", llmConfig.Provider, err)
	}
	return NewFromModel(llm, llmConfig.Model), nil
}

// NewFromModel wraps an existing langchaingo model; model is the default model name.
func NewFromModel(llm llms.Model, model string) *Client {
	return &Client{llm: llm, model: model}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	msgContent := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, req.System),
		llms.TextParts(schema.ChatMessageTypeHuman, req.User),
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	opts := []llms.CallOption{llms.WithModel(model)}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP != nil {
		opts = append(opts, llms.WithTopP(*req.TopP))
	}

	event := zerolog.Ctx(ctx).Debug().
		Str("model", model).
		Int("max_tokens", req.MaxTokens)
	if req.Temperature != nil {
		event = event.Float64("temperature", *req.Temperature)
	}
	event.Msg("Generating content")

	res, err := c.llm.GenerateContent(ctx, msgContent, opts...)
	if err != nil {
		return "", err
	}
	if res == nil || len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(thinkRe.ReplaceAllString(res.Choices[0].Content, "")), nil
}

// Probe sends a tiny completion to check that the endpoint and credential work.
func Probe(ctx context.Context, c Completer) error {
	_, err := c.Complete(ctx, Request{System: "You are a health check.", User: "test", MaxTokens: 5})
	return err
}
