package rag

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"mcq-rag/internal/embedding"
	"mcq-rag/internal/index"
	"mcq-rag/internal/models"
)

// Retriever turns a topic into textbook context for one subject.
type Retriever struct {
	store    *index.Store
	embedder embedding.Embedder
}

func NewRetriever(store *index.Store, embedder embedding.Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Search embeds query, takes the k nearest chunks of subject and joins them
// with a blank line. It returns "" for an unknown subject or when no hit maps
// to a chunk. k <= 0 means models.DefaultTopK.
func (r *Retriever) Search(ctx context.Context, query string, subject models.Subject, k int) (string, error) {
	si, ok := r.store.Get(subject)
	if !ok {
		return "", nil
	}
	if k <= 0 {
		k = models.DefaultTopK
	}

	queryEmbedding, err := embedding.EmbedQuery(ctx, r.embedder, query)
	if err != nil {
		return "", err
	}

	ordinals, err := si.Index.Search(ctx, queryEmbedding, k)
	if err != nil {
		return "", err
	}

	results := make([]string, 0, len(ordinals))
	for _, i := range ordinals {
		// the index may be larger than the chunk sequence
		if i < 0 || i >= len(si.Chunks) {
			continue
		}
		results = append(results, si.Chunks[i])
	}

	zerolog.Ctx(ctx).Debug().
		Str("subject", subject.String()).
		Int("hits", len(ordinals)).
		Int("chunks", len(results)).
		Msg("Retrieved context")

	return strings.Join(results, models.ContextSeparator), nil
}
