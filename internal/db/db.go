package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"mcq-rag/internal/config"
	"mcq-rag/internal/index"
	"mcq-rag/internal/models"
)

// Vector is a pgvector value; it encodes as '[x,y,...]'.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

// TextbookChunk is one row of the pre-built pgvector index.
type TextbookChunk struct {
	bun.BaseModel `bun:"table:textbook_chunks,alias:tc"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Subject       string `bun:"subject,notnull"`
	Ordinal       int    `bun:"ordinal,notnull"`
	Content       string `bun:"content,notnull"`
	Embedding     Vector `bun:"embedding,notnull,type:vector"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with the configured driver.
func ConnectDB(dbConfig *config.DatabaseConfig) (*sql.DB, error) {
	switch dbConfig.Driver {
	case "pq":
		return sql.Open("postgres", dbConfig.URL)
	default:
		opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.URL)}
		if dbConfig.Password != "" {
			opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	}
}

// InitDB creates the pgvector extension and the chunks table.
func InitDB(ctx context.Context, db *bun.DB, dimension int) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	_, err := db.NewCreateTable().
		Model((*TextbookChunk)(nil)).
		ColumnExpr(fmt.Sprintf("CHECK (vector_dims(embedding) = %d)", dimension)).
		IfNotExists().
		Exec(ctx)
	return err
}

// StoreChunks inserts rows in one statement.
func StoreChunks(ctx context.Context, db *bun.DB, chunks []TextbookChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&chunks).Exec(ctx)
	return err
}

// LoadChunks returns a subject's chunk texts positioned by ordinal. Ordinals
// without a row are left empty so search hits keep pointing at their chunk.
func LoadChunks(ctx context.Context, db *bun.DB, subject string) ([]string, error) {
	var rows []TextbookChunk
	err := db.NewSelect().
		Model(&rows).
		Column("ordinal", "content").
		Where("subject = ?", subject).
		Order("ordinal ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return chunkSequence(rows)
}

func chunkSequence(rows []TextbookChunk) ([]string, error) {
	last := -1
	for _, r := range rows {
		if r.Ordinal < 0 {
			return nil, fmt.Errorf("negative ordinal %d", r.Ordinal)
		}
		last = max(last, r.Ordinal)
	}
	chunks := make([]string, last+1)
	for _, r := range rows {
		chunks[r.Ordinal] = r.Content
	}
	return chunks, nil
}

// SearchChunks returns the ordinals of the nearest chunks by L2 distance.
func SearchChunks(ctx context.Context, db *bun.DB, subject string, queryEmbedding []float32, limit int) ([]int, error) {
	var ordinals []int
	err := db.NewSelect().
		Model((*TextbookChunk)(nil)).
		Column("ordinal").
		Where("subject = ?", subject).
		OrderExpr("embedding <-> ?::vector", Vector(queryEmbedding)).
		Limit(limit).
		Scan(ctx, &ordinals)
	return ordinals, err
}

// DropChunks drops the chunks table.
func DropChunks(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*TextbookChunk)(nil)).IfExists().Exec(ctx)
	return err
}

// SubjectIndex searches one subject's rows.
type SubjectIndex struct {
	db      *bun.DB
	subject string
}

func (s *SubjectIndex) Search(ctx context.Context, vec []float32, k int) ([]int, error) {
	if k <= 0 {
		return nil, nil
	}
	ordinals, err := SearchChunks(ctx, s.db, s.subject, vec, k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	return ordinals, nil
}

// Opener reads each subject's chunks and serves searches from Postgres.
type Opener struct {
	DB *bun.DB
}

func (o Opener) Open(ctx context.Context, subject models.Subject) (index.SubjectIndex, error) {
	chunks, err := LoadChunks(ctx, o.DB, subject.String())
	if err != nil {
		return index.SubjectIndex{}, fmt.Errorf("load chunks: %w", err)
	}
	return index.SubjectIndex{
		Chunks: chunks,
		Index:  &SubjectIndex{db: o.DB, subject: subject.String()},
	}, nil
}
