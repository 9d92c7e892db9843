package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-rag/internal/models"
)

// firstK answers every query with ordinals 0..k-1.
type firstK struct{}

func (firstK) Search(_ context.Context, _ []float32, k int) ([]int, error) {
	out := make([]int, k)
	for i := range out {
		out[i] = i
	}
	return out, nil
}

type staticOpener map[models.Subject]SubjectIndex

func (o staticOpener) Open(_ context.Context, subject models.Subject) (SubjectIndex, error) {
	si, ok := o[subject]
	if !ok {
		return SubjectIndex{}, errors.New("no index registered")
	}
	return si, nil
}

func allSubjects() staticOpener {
	return staticOpener{
		models.Biology:   {Chunks: []string{"cells"}, Index: firstK{}},
		models.Chemistry: {Chunks: []string{"atoms", "bonds"}, Index: firstK{}},
		models.Physics:   {Chunks: []string{"waves", "fields", "optics"}, Index: firstK{}},
	}
}

func TestLoad(t *testing.T) {
	store, err := Load(context.Background(), allSubjects())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"biology": 1, "chemistry": 2, "physics": 3}, store.ChunkCounts())

	si, ok := store.Get(models.Physics)
	require.True(t, ok)
	assert.Equal(t, []string{"waves", "fields", "optics"}, si.Chunks)

	_, ok = store.Get(models.Subject(9))
	assert.False(t, ok)
}

func TestLoad_MissingSubjectIsFatal(t *testing.T) {
	opener := allSubjects()
	delete(opener, models.Chemistry)

	_, err := Load(context.Background(), opener)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chemistry")
}

func TestLoad_EmptySubjectIsFatal(t *testing.T) {
	opener := allSubjects()
	opener[models.Biology] = SubjectIndex{Index: firstK{}}

	_, err := Load(context.Background(), opener)
	assert.Error(t, err)
}

func TestLoad_NilIndexIsFatal(t *testing.T) {
	opener := allSubjects()
	opener[models.Physics] = SubjectIndex{Chunks: []string{"waves"}}

	_, err := Load(context.Background(), opener)
	assert.Error(t, err)
}

func TestLoadChunks(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "physics_chunks.json")
	require.NoError(t, os.WriteFile(good, []byte(`["a passage", "another passage"]`), 0o644))
	chunks, err := LoadChunks(good)
	require.NoError(t, err)
	assert.Equal(t, []string{"a passage", "another passage"}, chunks)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"not": "a list"`), 0o644))
	_, err = LoadChunks(corrupt)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	_, err = LoadChunks(empty)
	assert.Error(t, err)

	_, err = LoadChunks(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
