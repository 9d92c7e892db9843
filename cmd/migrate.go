package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"mcq-rag/internal/chromemdb"
	"mcq-rag/internal/config"
	"mcq-rag/internal/db"
	"mcq-rag/internal/models"
)

// migrateToPgvector recreates the chunks table from the chromem export files.
// Chunk texts come from the chunk files, vectors from the collections.
func migrateToPgvector(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required for migration")
	}
	bunDB := openDB(cfg)
	defer bunDB.Close()

	if err := db.DropChunks(ctx, bunDB); err != nil {
		return fmt.Errorf("dropping chunks: %w", err)
	}
	if err := db.InitDB(ctx, bunDB, cfg.Index.Dimension); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	opener := chromemdb.Opener{Dir: cfg.Index.Dir, EncryptionKey: cfg.Index.EncryptionKey}
	for _, subject := range models.Subjects() {
		m, chunks, err := opener.OpenManager(ctx, subject)
		if err != nil {
			return fmt.Errorf("opening %s: %w", subject, err)
		}
		docs, err := m.Documents(ctx)
		if err != nil {
			return fmt.Errorf("reading %s: %w", subject, err)
		}

		rows := make([]db.TextbookChunk, 0, len(docs))
		for _, d := range docs {
			ordinal, err := strconv.Atoi(d.ID)
			if err != nil || ordinal >= len(chunks) {
				log.Warn().Str("subject", subject.String()).Str("id", d.ID).Msg("Skipping vector without chunk")
				continue
			}
			if len(d.Embedding) != cfg.Index.Dimension {
				return fmt.Errorf("%s chunk %d has dimension %d, want %d", subject, ordinal, len(d.Embedding), cfg.Index.Dimension)
			}
			rows = append(rows, db.TextbookChunk{
				Subject:   subject.String(),
				Ordinal:   ordinal,
				Content:   chunks[ordinal],
				Embedding: d.Embedding,
			})
		}

		if err := db.StoreChunks(ctx, bunDB, rows); err != nil {
			return fmt.Errorf("storing %s: %w", subject, err)
		}
		log.Info().Str("subject", subject.String()).Int("rows", len(rows)).Msg("Migrated subject")
	}
	return nil
}
