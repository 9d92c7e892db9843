// Package index holds the per-subject textbook chunks and their vector indices.
// Everything here is loaded once at startup and read-only afterwards.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"mcq-rag/internal/models"
)

// VectorIndex answers k-nearest-neighbor queries with chunk ordinals, nearest
// first. It may return fewer than k ordinals, or ordinals that have no chunk.
type VectorIndex interface {
	Search(ctx context.Context, vec []float32, k int) ([]int, error)
}

// SubjectIndex pairs a subject's chunk sequence with the index built over it.
type SubjectIndex struct {
	Chunks []string
	Index  VectorIndex
}

// Opener loads the pre-built artifacts of one subject.
type Opener interface {
	Open(ctx context.Context, subject models.Subject) (SubjectIndex, error)
}

// Store is the immutable set of all subject indices.
type Store struct {
	subjects [models.SubjectCount]SubjectIndex
}

// Load opens every subject. Any failure is returned; the caller must not serve
// requests without all subjects.
func Load(ctx context.Context, opener Opener) (*Store, error) {
	s := &Store{}
	for _, subj := range models.Subjects() {
		si, err := opener.Open(ctx, subj)
		if err != nil {
			return nil, fmt.Errorf("load %s index: %w", subj, err)
		}
		if len(si.Chunks) == 0 || si.Index == nil {
			return nil, fmt.Errorf("load %s index: no chunks or index", subj)
		}
		s.subjects[subj] = si
		log.Info().Str("subject", subj.String()).Int("chunks", len(si.Chunks)).Msg("Loaded subject index")
	}
	return s, nil
}

// Get returns the subject's chunks and index.
func (s *Store) Get(subject models.Subject) (SubjectIndex, bool) {
	if !subject.Valid() {
		return SubjectIndex{}, false
	}
	si := s.subjects[subject]
	return si, si.Index != nil
}

// ChunkCounts reports the chunk sequence length per subject name.
func (s *Store) ChunkCounts() map[string]int {
	out := make(map[string]int, len(s.subjects))
	for _, subj := range models.Subjects() {
		out[subj.String()] = len(s.subjects[subj].Chunks)
	}
	return out
}

// LoadChunks reads a JSON array of chunk texts.
func LoadChunks(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chunks []string
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks %s: %w", path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunks file %s is empty", path)
	}
	return chunks, nil
}
