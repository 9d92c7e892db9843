// Package mcq turns retrieved textbook context into multiple-choice questions.
package mcq

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"mcq-rag/internal/cache"
	"mcq-rag/internal/chapter"
	"mcq-rag/internal/helper"
	"mcq-rag/internal/llmservice"
	"mcq-rag/internal/models"
)

// Outcome says how a generation attempt ended.
type Outcome int

const (
	Generated Outcome = iota
	Cached
	NoLLM
	Mismatch
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Generated:
		return "generated"
	case Cached:
		return "cached"
	case NoLLM:
		return "no_llm"
	case Mismatch:
		return "mismatch"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result carries the MCQ text, or a user-facing diagnostic when Outcome is
// not Generated or Cached. Chapter is empty when none was detected.
type Result struct {
	Text    string
	Chapter string
	Outcome Outcome
	Err     error
}

var questionLineRe = regexp.MustCompile(models.QuestionLineRe)

type Generator struct {
	llm        llmservice.Completer
	classifier *chapter.Classifier
	cache      cache.Cache
	model      string
}

// NewGenerator wires the generation pipeline. llm may be nil; every call then
// returns the NoLLM diagnostic. model overrides the client's default when set.
func NewGenerator(llm llmservice.Completer, classifier *chapter.Classifier, c cache.Cache, model string) *Generator {
	return &Generator{llm: llm, classifier: classifier, cache: c, model: model}
}

// Generate produces count questions about topic from the retrieved material.
func (g *Generator) Generate(ctx context.Context, material, topic string, subject models.Subject, count int) Result {
	logger := zerolog.Ctx(ctx)

	if g.llm == nil {
		return Result{Text: models.NoLLMMessage, Outcome: NoLLM}
	}

	key := cache.Key(subject, topic, material, count)
	if e, ok, err := g.cache.Get(ctx, key); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache lookup failed")
	} else if ok {
		logger.Info().Str("key", key).Msg("Using cached MCQs")
		return Result{Text: e.MCQs, Chapter: e.Chapter, Outcome: Cached}
	}

	ch, state := g.classifier.Classify(ctx, material, topic, subject)
	if state == chapter.NotMatching {
		title := subject.Title()
		logger.Warn().Str("topic", topic).Str("subject", subject.String()).Msg("Topic mismatch")
		return Result{Text: fmt.Sprintf(models.ChapterMismatchTemplate, topic, title, title), Outcome: Mismatch}
	}

	logger.Info().
		Str("subject", subject.String()).
		Str("topic", topic).
		Str("chapter", ch).
		Int("count", count).
		Msg("Generating MCQs")

	res, err := g.llm.Complete(ctx, llmservice.Request{
		System:      models.GenerationSystemPrompt,
		User:        Prompt(material, topic, ch, subject, count),
		Model:       g.model,
		Temperature: llmservice.Float(0.3),
		MaxTokens:   TokenBudget(count),
		TopP:        llmservice.Float(0.9),
	})
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("MCQ generation failed")
		return Result{Text: Diagnose(err), Chapter: ch, Outcome: Failed, Err: err}
	}

	text := CleanOutput(res)
	if err := g.cache.Put(ctx, key, cache.Entry{MCQs: text, Chapter: ch}); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Cache store failed")
	}
	return Result{Text: text, Chapter: ch, Outcome: Generated}
}

// TokenBudget is the completion limit for count questions.
func TokenBudget(count int) int {
	return min(models.MaxGenerationTokens, models.TokensPerQuestion*count)
}

// Prompt builds the generation request. Only the first part of material is sent.
func Prompt(material, topic, chapterName string, subject models.Subject, count int) string {
	cont := "Continue for Q3, Q4, Q5."
	if count > 5 {
		cont = "Continue for Q3, Q4, Q5..."
	}
	return fmt.Sprintf(models.GenerationPromptTemplate,
		subject.Title(), topic, chapterName,
		helper.Truncate(material, models.GenerationContextChars),
		count, cont, count)
}

// CleanOutput keeps only question, option, answer and blank lines, each
// trimmed, and rewrites "Correct Answer:" to "Answer:".
func CleanOutput(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case questionLineRe.MatchString(line):
		case strings.HasPrefix(line, "Correct Answer:"):
			line = strings.ReplaceAll(line, "Correct Answer:", "Answer:")
		case hasAnyPrefix(line, "A)", "B)", "C)", "D)", "Answer:"):
		default:
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Diagnose renders a generation failure for the caller, naming the most
// likely cause first.
func Diagnose(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error calling the LLM API: %v\n", err)
	if cause := llmservice.Classify(err); cause != llmservice.CauseUnknown {
		fmt.Fprintf(&b, "Likely cause: %s\n", cause)
	}
	b.WriteString("Possible causes:\n1. Rate limit exceeded (wait a moment)\n2. Invalid API key\n3. Network issue\n")
	b.WriteString("Please try again in a few seconds.")
	return b.String()
}
