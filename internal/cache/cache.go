// Package cache stores finished MCQ sets so repeated requests skip the LLM.
//
// Both implementations are bounded and evict in insertion order. Reading an
// entry never refreshes it and there is no expiry.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"mcq-rag/internal/models"
)

const DefaultCapacity = 100

// Entry is a cached generation. An empty Chapter means no chapter was detected.
type Entry struct {
	MCQs    string `json:"mcqs"`
	Chapter string `json:"chapter,omitempty"`
}

type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry) error
	Len(ctx context.Context) (int, error)
}

// Key derives the cache key for a request. Only the first 8 hex digits of the
// material digest are kept, so two different contexts can in principle collide.
func Key(subject models.Subject, topic, material string, count int) string {
	sum := md5.Sum([]byte(material))
	return fmt.Sprintf("%s:%s:%s:%d", subject, topic, hex.EncodeToString(sum[:])[:8], count)
}
