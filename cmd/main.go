package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"mcq-rag/internal/cache"
	"mcq-rag/internal/chapter"
	"mcq-rag/internal/chromemdb"
	"mcq-rag/internal/config"
	"mcq-rag/internal/db"
	"mcq-rag/internal/embedding"
	"mcq-rag/internal/helper"
	"mcq-rag/internal/index"
	"mcq-rag/internal/llmservice"
	"mcq-rag/internal/mcq"
	"mcq-rag/internal/models"
	"mcq-rag/internal/rag"
	"mcq-rag/internal/validator"
)

const configFilePath = "./configs/config.yaml"

func main() {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	configPath := flag.String("config", configFilePath, "Path to the YAML config file")
	subject := flag.String("subject", "", "Subject: biology, chemistry or physics")
	topic := flag.String("topic", "", "Topic to generate questions about")
	count := flag.Int("n", models.DefaultQuestionCount, "Number of questions (1-20)")
	asJSON := flag.Bool("json", false, "Print the result as JSON")
	status := flag.Bool("status", false, "Print service status and exit")
	migrate := flag.Bool("migrate", false, "Copy the chromem indices into Postgres (pgvector) and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(&cfg.Log)

	if err := models.ValidateCatalog(); err != nil {
		log.Fatal().Err(err).Msg("Invalid subject catalog")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := context.Background()

	if *migrate {
		if err := migrateToPgvector(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
		return
	}

	if !*status && *topic == "" {
		log.Fatal().Msg("Please provide a topic using the -topic flag and a subject using the -subject flag, or -status")
	}

	svc, closeFn := buildService(ctx, cfg)
	defer closeFn()

	if *status {
		st, err := svc.Status(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error reading status")
		}
		helper.PrettyPrint(os.Stdout, st)
		return
	}

	resp, err := svc.Generate(ctx, mcq.Request{Subject: *subject, Topic: *topic, QuestionCount: *count})
	if err != nil {
		var e *mcq.Error
		if errors.As(err, &e) {
			log.Error().Err(e.Err).Str("kind", e.Kind.String()).Str("chapter", e.Chapter).Msg("Request failed")
			fmt.Fprintln(os.Stderr, e.Message)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Request failed")
	}

	if *asJSON {
		helper.PrettyPrint(os.Stdout, models.PromptResponse{
			Subject: resp.Subject,
			Topic:   *topic,
			Chapter: resp.Chapter,
			MCQs:    resp.MCQs,
		})
		return
	}
	if resp.Chapter != "" {
		fmt.Printf("Chapter: %s\n\n", resp.Chapter)
	}
	fmt.Println(resp.MCQs)
}

func setupLogger(cfg *config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// buildService loads the indices and wires the pipeline. Failures to load an
// index are fatal; a missing or unreachable LLM is not.
func buildService(ctx context.Context, cfg *config.Config) (*mcq.Service, func()) {
	var closers []func() error

	var opener index.Opener
	switch cfg.Index.Backend {
	case "pgvector":
		bunDB := openDB(cfg)
		closers = append(closers, bunDB.Close)
		opener = db.Opener{DB: bunDB}
	default:
		opener = chromemdb.Opener{Dir: cfg.Index.Dir, EncryptionKey: cfg.Index.EncryptionKey}
	}

	store, err := index.Load(ctx, opener)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading indices")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	llm := newCompleter(ctx, &cfg.LLM)

	var c cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.Prefix, cfg.Cache.Capacity)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to cache")
		}
		closers = append(closers, rc.Close)
		c = rc
	default:
		c = cache.NewMemory(cfg.Cache.Capacity)
	}

	svc := mcq.NewService(
		rag.NewRetriever(store, embedder),
		validator.New(llm),
		mcq.NewGenerator(llm, chapter.New(llm), c, cfg.LLM.Model),
		c,
		mcq.Options{
			TopK:                 cfg.RAG.TopK,
			MinContextChars:      cfg.RAG.MinContextChars,
			DefaultQuestionCount: cfg.RAG.DefaultQuestionCount,
			LLMAvailable:         llm != nil,
			ChunkCounts:          store.ChunkCounts(),
		},
	)

	return svc, func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				log.Warn().Err(err).Msg("Error closing resource")
			}
		}
	}
}

// newCompleter returns nil when no LLM is configured or the startup probe fails.
func newCompleter(ctx context.Context, cfg *config.LLMConfig) llmservice.Completer {
	if !cfg.Enabled() {
		log.Warn().Msg("No LLM API key configured; generation is disabled")
		return nil
	}
	client, err := llmservice.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing LLM client")
		return nil
	}
	llm := llmservice.WithPolicy(client, llmservice.Policy{
		MaxRetries: uint64(max(cfg.MaxRetries, 0)),
		Timeout:    time.Duration(cfg.TimeoutSecs) * time.Second,
	})

	if cfg.ProbeOnStart {
		if err := llmservice.Probe(ctx, llm); err != nil {
			log.Error().Err(err).Msg("LLM probe failed; generation is disabled")
			return nil
		}
		log.Info().Str("model", cfg.Model).Msg("LLM probe succeeded")
	}
	return llm
}

func openDB(cfg *config.Config) *bun.DB {
	sqlDB, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	return db.NewDB(sqlDB, cfg.Database.Debug)
}
