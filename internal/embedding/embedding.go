package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"mcq-rag/internal/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder maps a query to the vector space the textbook indices were built in.
// *embeddings.EmbedderImpl satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder for the configured provider. The model must
// be the one used to build the indices.
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Loaded embedder config")

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch llmConfig.Provider {
	case "openai":
		client, err = openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithEmbeddingModel(llmConfig.Model),
		)
	default:
		client, err = ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s embedding client: %w", llmConfig.Provider, err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedQuery embeds text and rejects empty vectors, which some servers return
// instead of an error for unknown models.
func EmbedQuery(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	vec, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed query: empty vector")
	}
	return vec, nil
}
