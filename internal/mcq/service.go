package mcq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"mcq-rag/internal/cache"
	"mcq-rag/internal/helper"
	"mcq-rag/internal/models"
	"mcq-rag/internal/validator"
)

// Request is a caller's ask. Subject is matched case-insensitively; Topic is
// used as given.
type Request struct {
	Subject       string `json:"subject"`
	Topic         string `json:"topic"`
	QuestionCount int    `json:"num_questions"`
}

type Response struct {
	MCQs    string `json:"mcqs"`
	Subject string `json:"subject"`
	Chapter string `json:"chapter,omitempty"`
	Cached  bool   `json:"cached"`
}

// Kind classifies a failed request.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindSubjectMismatch
	KindRetrieval
	KindNoContent
	KindLLMUnavailable
	KindGeneration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindSubjectMismatch:
		return "subject_mismatch"
	case KindRetrieval:
		return "retrieval"
	case KindNoContent:
		return "no_content"
	case KindLLMUnavailable:
		return "llm_unavailable"
	case KindGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest  = &Error{Kind: KindInvalidRequest}
	ErrSubjectMismatch = &Error{Kind: KindSubjectMismatch}
	ErrRetrieval       = &Error{Kind: KindRetrieval}
	ErrNoContent       = &Error{Kind: KindNoContent}
	ErrLLMUnavailable  = &Error{Kind: KindLLMUnavailable}
	ErrGeneration      = &Error{Kind: KindGeneration}
)

// Error is returned by Service.Generate. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Chapter string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Retriever fetches textbook context for a topic.
type Retriever interface {
	Search(ctx context.Context, query string, subject models.Subject, k int) (string, error)
}

type Options struct {
	TopK                 int
	MinContextChars      int
	DefaultQuestionCount int
	LLMAvailable         bool
	// ChunkCounts is reported by Status.
	ChunkCounts map[string]int
}

type Service struct {
	retriever Retriever
	validator *validator.Validator
	generator *Generator
	cache     cache.Cache
	opts      Options
}

func NewService(retriever Retriever, v *validator.Validator, g *Generator, c cache.Cache, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = models.DefaultTopK
	}
	if opts.MinContextChars <= 0 {
		opts.MinContextChars = models.DefaultMinContextChars
	}
	if opts.DefaultQuestionCount < models.MinQuestionCount || opts.DefaultQuestionCount > models.MaxQuestionCount {
		opts.DefaultQuestionCount = models.DefaultQuestionCount
	}
	return &Service{retriever: retriever, validator: v, generator: g, cache: c, opts: opts}
}

// ClampQuestionCount returns n when it is within the allowed range and def otherwise.
func ClampQuestionCount(n, def int) int {
	if n < models.MinQuestionCount || n > models.MaxQuestionCount {
		return def
	}
	return n
}

// Generate validates the topic, retrieves context and produces MCQs.
func (s *Service) Generate(ctx context.Context, req Request) (Response, error) {
	requestID, err := helper.GenerateUUID()
	if err != nil {
		requestID = "unknown"
	}
	logger := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
	ctx = logger.WithContext(ctx)

	// a blank topic is rejected, but a real one is used verbatim, cache key included
	topic := req.Topic
	if strings.TrimSpace(topic) == "" {
		return Response{}, &Error{Kind: KindInvalidRequest, Message: "Topic is required"}
	}
	subject, ok := models.ParseSubject(req.Subject)
	if !ok {
		return Response{}, &Error{Kind: KindInvalidRequest, Message: "Invalid subject"}
	}
	count := ClampQuestionCount(req.QuestionCount, s.opts.DefaultQuestionCount)

	logger.Info().Str("subject", subject.String()).Str("topic", topic).Int("count", count).Msg("Validating topic")
	if !s.validator.Validate(ctx, topic, subject) {
		title := subject.Title()
		return Response{}, &Error{
			Kind:    KindSubjectMismatch,
			Message: fmt.Sprintf(models.ValidationMismatchTemplate, topic, title, title),
		}
	}

	material, err := s.retriever.Search(ctx, topic, subject, s.opts.TopK)
	if err != nil {
		logger.Error().Err(err).Msg("Retrieval failed")
		return Response{}, &Error{Kind: KindRetrieval, Message: "Search failed for: " + topic, Err: err}
	}
	if utf8.RuneCountInString(strings.TrimSpace(material)) < s.opts.MinContextChars {
		return Response{}, &Error{Kind: KindNoContent, Message: "No content found for: " + topic}
	}
	logger.Debug().Int("context_chars", len(material)).Msg("Context found")

	res := s.generator.Generate(ctx, material, topic, subject, count)
	switch res.Outcome {
	case NoLLM:
		return Response{}, &Error{Kind: KindLLMUnavailable, Message: res.Text}
	case Mismatch:
		return Response{}, &Error{Kind: KindSubjectMismatch, Message: res.Text}
	case Failed:
		return Response{}, &Error{Kind: KindGeneration, Message: res.Text, Chapter: res.Chapter, Err: res.Err}
	}

	return Response{
		MCQs:    res.Text,
		Subject: subject.String(),
		Chapter: res.Chapter,
		Cached:  res.Outcome == Cached,
	}, nil
}

// Status mirrors a health check.
type Status struct {
	LLMAvailable bool           `json:"llm_available"`
	CacheSize    int            `json:"cache_size"`
	Subjects     map[string]int `json:"subjects"`
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	n, err := s.cache.Len(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("reading cache size: %w", err)
	}
	subjects := make(map[string]int, len(s.opts.ChunkCounts))
	for k, v := range s.opts.ChunkCounts {
		subjects[k] = v
	}
	return Status{LLMAvailable: s.opts.LLMAvailable, CacheSize: n, Subjects: subjects}, nil
}
