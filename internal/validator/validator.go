// Package validator rejects topics that clearly belong to another subject
// before any retrieval work is done. It is advisory: every failure lets the
// request through.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"mcq-rag/internal/llmservice"
	"mcq-rag/internal/models"
)

type Validator struct {
	llm llmservice.Completer
}

// New returns a Validator; llm may be nil, in which case every topic is accepted.
func New(llm llmservice.Completer) *Validator {
	return &Validator{llm: llm}
}

// Validate reports whether topic plausibly belongs to subject.
func (v *Validator) Validate(ctx context.Context, topic string, subject models.Subject) bool {
	if v.llm == nil {
		return true
	}
	logger := zerolog.Ctx(ctx)

	res, err := v.llm.Complete(ctx, llmservice.Request{
		System:      models.ValidationSystemPrompt,
		User:        Prompt(topic, subject),
		Temperature: llmservice.Float(0.1),
		MaxTokens:   models.ValidationMaxTokens,
	})
	if err != nil {
		logger.Warn().Err(err).Str("topic", topic).Msg("Topic validation failed, allowing request")
		return true
	}

	if strings.Contains(strings.ToUpper(strings.TrimSpace(res)), "YES") {
		logger.Debug().Str("topic", topic).Str("subject", subject.String()).Msg("Topic validated")
		return true
	}
	logger.Info().Str("topic", topic).Str("subject", subject.String()).Msg("Topic does not belong to subject")
	return false
}

// Prompt builds the classification question for topic.
func Prompt(topic string, subject models.Subject) string {
	title := subject.Title()
	return fmt.Sprintf(models.ValidationPromptTemplate,
		title, topic, title, title, subject.Coverage(), title)
}
