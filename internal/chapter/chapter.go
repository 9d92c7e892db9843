// Package chapter decides which textbook chapter retrieved material belongs to.
//
// Classification runs in two tiers. Keyword scoring against the chapter names
// is tried first and is fully deterministic. Only when no chapter scores does
// the classifier ask the LLM, which may also answer that the topic is not part
// of the subject at all.
package chapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"mcq-rag/internal/helper"
	"mcq-rag/internal/llmservice"
	"mcq-rag/internal/models"
)

// State is where classification ended.
type State int

const (
	KeywordMatched State = iota + 1
	LLMMatched
	NotMatching
)

func (s State) String() string {
	switch s {
	case KeywordMatched:
		return "keyword_matched"
	case LLMMatched:
		return "llm_matched"
	case NotMatching:
		return "not_matching"
	default:
		return "unknown"
	}
}

var chapterNumberRe = regexp.MustCompile(models.ChapterNumberRe)

type Classifier struct {
	llm llmservice.Completer
}

// New returns a Classifier; with a nil llm the fallback tier always yields no chapter.
func New(llm llmservice.Completer) *Classifier {
	return &Classifier{llm: llm}
}

// Classify returns the detected chapter name, or "" with state NotMatching
// when the material does not belong to subject.
func (c *Classifier) Classify(ctx context.Context, content, topic string, subject models.Subject) (string, State) {
	chapters := subject.Chapters()
	if len(chapters) == 0 {
		return "", NotMatching
	}
	logger := zerolog.Ctx(ctx)

	if best, score := BestByKeywords(topic, content, chapters); score > 0 {
		logger.Debug().Str("chapter", best).Int("score", score).Msg("Matched chapter by keywords")
		return best, KeywordMatched
	}

	if c.llm == nil {
		return "", NotMatching
	}

	res, err := c.llm.Complete(ctx, llmservice.Request{
		System:      fmt.Sprintf(models.ClassificationSystemPromptTemplate, subject.Title()),
		User:        Prompt(topic, content, subject, chapters),
		Temperature: llmservice.Float(0.1),
		MaxTokens:   models.ClassificationMaxTokens,
	})
	if err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("Chapter detection failed")
		return "", NotMatching
	}

	if IsNotMatching(res) {
		logger.Info().Str("topic", topic).Str("subject", subject.String()).Msg("Topic does not belong to subject")
		return "", NotMatching
	}

	if ch, ok := MatchChapter(chapterNumberRe.ReplaceAllString(strings.TrimSpace(res), ""), chapters); ok {
		logger.Debug().Str("chapter", ch).Msg("LLM detected chapter")
		return ch, LLMMatched
	}

	logger.Warn().Str("response", res).Msg("LLM chapter not in catalog")
	return "", NotMatching
}

// BestByKeywords scores every chapter against topic and the start of content
// and returns the highest scoring one. Ties go to the earlier chapter.
//
// A chapter gets +1 for each of its words longer than three characters that
// occurs in the lowercased topic and content, and +2 for each such topic word
// that occurs in the lowercased chapter name.
func BestByKeywords(topic, content string, chapters []string) (string, int) {
	combined := strings.ToLower(topic + " " + helper.Truncate(content, models.KeywordContextChars))
	topicWords := significantWords(strings.ToLower(topic))

	best, bestScore := "", 0
	for _, ch := range chapters {
		lower := strings.ToLower(ch)
		score := 0
		for _, w := range significantWords(lower) {
			if strings.Contains(combined, w) {
				score++
			}
		}
		for _, w := range topicWords {
			if strings.Contains(lower, w) {
				score += 2
			}
		}
		if score > bestScore {
			best, bestScore = ch, score
		}
	}
	return best, bestScore
}

func significantWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// IsNotMatching reports whether the LLM flagged the topic as foreign to the subject.
func IsNotMatching(res string) bool {
	upper := strings.ToUpper(res)
	return strings.Contains(upper, models.NotMatchingMarker) || strings.Contains(upper, "NOT MATCHING")
}

// MatchChapter returns the first chapter that contains candidate or is
// contained in it, ignoring case. "Optics" selects "Wave Optics" and
// "Chapter: Solutions (part 2)" selects "Solutions".
//
// An empty candidate matches nothing. A plain containment test would accept
// it for every chapter, so a bare "5." answer would silently select the first
// chapter; here it yields no chapter instead.
func MatchChapter(candidate string, chapters []string) (string, bool) {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate == "" {
		return "", false
	}
	for _, ch := range chapters {
		lower := strings.ToLower(ch)
		if strings.Contains(candidate, lower) || strings.Contains(lower, candidate) {
			return ch, true
		}
	}
	return "", false
}

// Prompt builds the chapter selection question with a numbered chapter list.
func Prompt(topic, content string, subject models.Subject, chapters []string) string {
	var list strings.Builder
	for i, ch := range chapters {
		if i > 0 {
			list.WriteByte('\n')
		}
		fmt.Fprintf(&list, "%d. %s", i+1, ch)
	}
	title := subject.Title()
	return fmt.Sprintf(models.ClassificationPromptTemplate,
		title, topic, helper.Truncate(content, models.ClassifierContextChars), title, list.String(), title)
}
