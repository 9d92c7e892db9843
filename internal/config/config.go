package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultGroqBaseURL    = "https://api.groq.com/openai/v1"
	defaultInferenceModel = "llama-3.3-70b-versatile"
	defaultOllamaURL      = "http://localhost:11434"
	defaultEmbedModel     = "all-minilm"
	defaultIndexDir       = "./data"
	defaultCacheCapacity  = 100
	defaultTopK           = 5
	defaultMinContext     = 50
	defaultQuestionCount  = 5
)

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	RAG      RAGConfig      `yaml:"rag"`
	Log      LogConfig      `yaml:"log"`
}

// LLMConfig describes a langchaingo backed model endpoint.
// Provider is "openai" (any OpenAI-compatible API such as Groq) or "ollama".
type LLMConfig struct {
	Provider     string `yaml:"provider"`
	BaseURL      string `yaml:"base_url"`
	Key          string `yaml:"api_key"`
	Model        string `yaml:"model"`
	ProbeOnStart bool   `yaml:"probe_on_start"`
	MaxRetries   int    `yaml:"max_retries"`
	TimeoutSecs  int    `yaml:"timeout_secs"`
}

// Enabled reports whether enough is configured to build a client.
func (c LLMConfig) Enabled() bool {
	if c.Provider == "ollama" {
		return c.BaseURL != ""
	}
	return c.Key != ""
}

type IndexConfig struct {
	Backend       string `yaml:"backend"` // chromem or pgvector
	Dir           string `yaml:"dir"`
	EncryptionKey string `yaml:"encryption_key"`
	Dimension     int    `yaml:"dimension"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Driver   string `yaml:"driver"` // pgdriver or pq
	Debug    bool   `yaml:"debug"`
}

type CacheConfig struct {
	Backend  string `yaml:"backend"` // memory or redis
	Capacity int    `yaml:"capacity"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

type RAGConfig struct {
	TopK                 int `yaml:"top_k"`
	MinContextChars      int `yaml:"min_context_chars"`
	DefaultQuestionCount int `yaml:"default_question_count"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// LoadConfig reads the YAML file at path, overlays MCQ_* environment variables
// and fills defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// Validate checks option values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "chromem", "pgvector":
	default:
		return fmt.Errorf("index.backend must be 'chromem' or 'pgvector', got %q", c.Index.Backend)
	}
	if c.Index.Backend == "pgvector" && c.Database.URL == "" {
		return fmt.Errorf("database.url is required for the pgvector backend")
	}
	switch c.Database.Driver {
	case "pgdriver", "pq":
	default:
		return fmt.Errorf("database.driver must be 'pgdriver' or 'pq', got %q", c.Database.Driver)
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis cache")
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got %q", c.Cache.Backend)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if n := c.RAG.DefaultQuestionCount; n < 1 || n > 20 {
		return fmt.Errorf("rag.default_question_count must be within [1, 20], got %d", n)
	}
	for _, p := range []string{c.LLM.Provider, c.EmbedLLM.Provider} {
		if p != "openai" && p != "ollama" {
			return fmt.Errorf("llm provider must be 'openai' or 'ollama', got %q", p)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	// GROQ_API_KEY is the conventional variable for Groq deployments.
	cfg.LLM.Key = envStr("GROQ_API_KEY", cfg.LLM.Key)
	cfg.LLM.Key = strings.TrimSpace(envStr("MCQ_LLM_API_KEY", cfg.LLM.Key))
	cfg.LLM.BaseURL = envStr("MCQ_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = envStr("MCQ_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.ProbeOnStart = envBool("MCQ_LLM_PROBE_ON_START", cfg.LLM.ProbeOnStart)
	cfg.EmbedLLM.BaseURL = envStr("MCQ_EMBED_BASE_URL", cfg.EmbedLLM.BaseURL)
	cfg.EmbedLLM.Model = envStr("MCQ_EMBED_MODEL", cfg.EmbedLLM.Model)
	cfg.EmbedLLM.Key = envStr("MCQ_EMBED_API_KEY", cfg.EmbedLLM.Key)
	cfg.Index.Backend = envStr("MCQ_INDEX_BACKEND", cfg.Index.Backend)
	cfg.Index.Dir = envStr("MCQ_INDEX_DIR", cfg.Index.Dir)
	cfg.Index.EncryptionKey = envStr("MCQ_INDEX_ENCRYPTION_KEY", cfg.Index.EncryptionKey)
	cfg.Database.URL = envStr("MCQ_DATABASE_URL", cfg.Database.URL)
	cfg.Database.Password = envStr("MCQ_DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Cache.Backend = envStr("MCQ_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.Capacity = envInt("MCQ_CACHE_CAPACITY", cfg.Cache.Capacity)
	cfg.Cache.RedisURL = envStr("MCQ_CACHE_REDIS_URL", cfg.Cache.RedisURL)
	cfg.Log.Level = envStr("MCQ_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envStr("MCQ_LOG_FORMAT", cfg.Log.Format)
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultGroqBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultInferenceModel
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = "ollama"
	}
	if cfg.EmbedLLM.Provider == "ollama" && cfg.EmbedLLM.BaseURL == "" {
		cfg.EmbedLLM.BaseURL = defaultOllamaURL
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = defaultEmbedModel
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = "chromem"
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = defaultIndexDir
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = 384
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = defaultCacheCapacity
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "mcq"
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.MinContextChars == 0 {
		cfg.RAG.MinContextChars = defaultMinContext
	}
	if cfg.RAG.DefaultQuestionCount == 0 {
		cfg.RAG.DefaultQuestionCount = defaultQuestionCount
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
