package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mcq-rag/internal/index"
	"mcq-rag/internal/models"
)

// VectorDBManager encapsulates the in-memory chromem-go database of one
// collection. Document IDs are chunk ordinals in decimal.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	encryptionKey string
	filePath      string
}

const (
	compress  = false
	fileExt   = ".chromem"
	chunksExt = "_chunks.json"
)

// NewVectorDBManager initializes an empty in-memory database. The export
// file of the collection lives at <dbPath>/<collectionName>.chromem.
func NewVectorDBManager(dbPath, collectionName, encryptionKey string) *VectorDBManager {
	return &VectorDBManager{
		db:            chromem.NewDB(),
		dbPath:        dbPath,
		encryptionKey: encryptionKey,
		filePath:      filepath.Join(dbPath, collectionName+fileExt),
	}
}

// GetOrCreateCollection selects the collection all other calls operate on.
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// CreateDocs adds documents that already carry their embeddings.
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// SearchWithQueryOptions performs a similarity search.
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}
	if m.collection == nil {
		return nil, fmt.Errorf("collection is required")
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// Search implements index.VectorIndex.
func (m *VectorDBManager) Search(ctx context.Context, vec []float32, k int) ([]int, error) {
	// chromem rejects nResults larger than the collection.
	if n := m.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vec,
		NResults:       k,
	})
	if err != nil {
		return nil, err
	}

	ordinals := make([]int, 0, len(results))
	for _, r := range results {
		ordinal, err := strconv.Atoi(r.ID)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Str("id", r.ID).Msg("Skipping document with non-ordinal ID")
			continue
		}
		ordinals = append(ordinals, ordinal)
	}
	return ordinals, nil
}

// Documents returns the documents with IDs 0..Count()-1 in ordinal order.
// Missing ordinals are skipped.
func (m *VectorDBManager) Documents(ctx context.Context) ([]chromem.Document, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection is required")
	}
	n := m.collection.Count()
	docs := make([]chromem.Document, 0, n)
	for i := 0; i < n; i++ {
		doc, err := m.collection.GetByID(ctx, strconv.Itoa(i))
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("ordinal", i).Msg("Missing document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Export writes the collection to its export file.
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if m.dbPath == "" {
		return fmt.Errorf("db path is required")
	}

	log.Debug().
		Str("collection", m.collection.Name).
		Str("file", m.filePath).
		Msg("Exporting collection")
	err := m.db.ExportToFile(m.filePath, compress, m.encryptionKey, m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads collectionName from the export file and selects it.
func (m *VectorDBManager) Import(ctx context.Context, collectionName string) error {
	err := m.db.ImportFromFile(m.filePath, m.encryptionKey, collectionName)
	if err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	c := m.db.GetCollection(collectionName, nil)
	if c == nil {
		return fmt.Errorf("collection %q not found in %s", collectionName, m.filePath)
	}
	m.collection = c
	return nil
}

// Opener loads <dir>/<subject>_chunks.json and <dir>/<subject>.chromem for
// each subject into in-memory chromem databases.
type Opener struct {
	Dir           string
	EncryptionKey string
}

func (o Opener) Open(ctx context.Context, subject models.Subject) (index.SubjectIndex, error) {
	m, chunks, err := o.OpenManager(ctx, subject)
	if err != nil {
		return index.SubjectIndex{}, err
	}
	return index.SubjectIndex{Chunks: chunks, Index: m}, nil
}

// OpenManager imports one subject and returns its manager with the chunk texts.
func (o Opener) OpenManager(ctx context.Context, subject models.Subject) (*VectorDBManager, []string, error) {
	chunks, err := index.LoadChunks(filepath.Join(o.Dir, subject.String()+chunksExt))
	if err != nil {
		return nil, nil, err
	}

	m := NewVectorDBManager(o.Dir, subject.String(), o.EncryptionKey)
	if err := m.Import(ctx, subject.String()); err != nil {
		return nil, nil, err
	}
	if m.Count() != len(chunks) {
		log.Warn().
			Str("subject", subject.String()).
			Int("vectors", m.Count()).
			Int("chunks", len(chunks)).
			Msg("Index size differs from chunk count; out-of-range hits will be dropped")
	}
	return m, chunks, nil
}
