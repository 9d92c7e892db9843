package mcq

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-rag/internal/cache"
	"mcq-rag/internal/chapter"
	"mcq-rag/internal/llmservice"
	"mcq-rag/internal/models"
)

const shmContext = "Oscillations: simple harmonic motion is periodic motion in which the restoring force is proportional to displacement."

const rawMCQs = `  Here are your questions:
Q1. What is SHM?
A) Random motion
B) Periodic motion
C) Circular motion
D) No motion
Correct Answer: B - restoring force is proportional to displacement

  Q2. Which quantity is proportional to the restoring force?
A) Mass
B) Time
C) Displacement
D) Energy
Answer: C - from the definition
Hope this helps!  `

const cleanMCQs = `Q1. What is SHM?
A) Random motion
B) Periodic motion
C) Circular motion
D) No motion
Answer: B - restoring force is proportional to displacement

Q2. Which quantity is proportional to the restoring force?
A) Mass
B) Time
C) Displacement
D) Energy
Answer: C - from the definition`

func newGenerator(llm llmservice.Completer) (*Generator, *cache.Memory) {
	c := cache.NewMemory(cache.DefaultCapacity)
	return NewGenerator(llm, chapter.New(llm), c, ""), c
}

func TestCleanOutput(t *testing.T) {
	assert.Equal(t, cleanMCQs, CleanOutput(rawMCQs))
}

func TestCleanOutput_Lines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only-noise", "Sure!\nHere you go", ""},
		{"keeps-blank-lines", "Q1. a\n\nA) b", "Q1. a\n\nA) b"},
		{"question-needs-dot", "Q1 what\nQ12. ok", "Q12. ok"},
		{"lowercase-option-dropped", "a) nope\nB) yes", "B) yes"},
		{"trims-each-line", "\tQ1. x  \n   D) y ", "Q1. x\nD) y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOutput(tt.in))
		})
	}
}

func TestTokenBudget(t *testing.T) {
	assert.Equal(t, 300, TokenBudget(1))
	assert.Equal(t, 1500, TokenBudget(5))
	assert.Equal(t, 3000, TokenBudget(10))
	assert.Equal(t, 3000, TokenBudget(20))
}

func TestPrompt(t *testing.T) {
	long := strings.Repeat("a", 1500) + "TAIL"
	p := Prompt(long, "Oscillations", "Oscillations", models.Physics, 5)
	assert.Contains(t, p, "Class-12 Physics teacher")
	assert.Contains(t, p, `Chapter: "Oscillations"`)
	assert.Contains(t, p, "Generate exactly 5 multiple-choice questions")
	assert.Contains(t, p, "Continue for Q3, Q4, Q5.\n")
	assert.NotContains(t, p, "TAIL")

	p = Prompt(shmContext, "Oscillations", "Oscillations", models.Physics, 8)
	assert.Contains(t, p, "Continue for Q3, Q4, Q5...\n")
	assert.Contains(t, p, "Generate 8 MCQs now:")
}

func TestGenerate_NoLLM(t *testing.T) {
	g, c := newGenerator(nil)
	res := g.Generate(context.Background(), shmContext, "Oscillations", models.Physics, 5)
	assert.Equal(t, NoLLM, res.Outcome)
	assert.Equal(t, models.NoLLMMessage, res.Text)
	n, _ := c.Len(context.Background())
	assert.Zero(t, n)
}

func TestGenerate_CachesResult(t *testing.T) {
	fake := llmservice.NewFake(rawMCQs)
	g, c := newGenerator(fake)
	ctx := context.Background()

	first := g.Generate(ctx, shmContext, "Oscillations", models.Physics, 5)
	require.Equal(t, Generated, first.Outcome)
	assert.Equal(t, cleanMCQs, first.Text)
	assert.Equal(t, "Oscillations", first.Chapter)

	second := g.Generate(ctx, shmContext, "Oscillations", models.Physics, 5)
	assert.Equal(t, Cached, second.Outcome)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Chapter, second.Chapter)
	assert.Equal(t, 1, fake.CallCount(), "keyword match plus cache hit means a single LLM call")

	calls := fake.Calls()
	assert.Equal(t, models.GenerationSystemPrompt, calls[0].System)
	assert.Equal(t, 1500, calls[0].MaxTokens)
	require.NotNil(t, calls[0].Temperature)
	require.NotNil(t, calls[0].TopP)
	assert.InDelta(t, 0.3, *calls[0].Temperature, 1e-9)
	assert.InDelta(t, 0.9, *calls[0].TopP, 1e-9)

	e, ok, err := c.Get(ctx, cache.Key(models.Physics, "Oscillations", shmContext, 5))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cache.Entry{MCQs: cleanMCQs, Chapter: "Oscillations"}, e)

	// a different count is a different key
	third := g.Generate(ctx, shmContext, "Oscillations", models.Physics, 6)
	assert.Equal(t, Generated, third.Outcome)
	assert.Equal(t, 2, fake.CallCount())
}

func TestGenerate_Mismatch(t *testing.T) {
	fake := llmservice.NewFake(models.NotMatchingMarker)
	g, c := newGenerator(fake)

	res := g.Generate(context.Background(), "The mitochondrion is the powerhouse of the cell.", "Mitochondria", models.Chemistry, 5)
	assert.Equal(t, Mismatch, res.Outcome)
	assert.Empty(t, res.Chapter)
	assert.Equal(t, "The topic 'Mitochondria' does not belong to Chemistry.\n\nPlease enter a topic related to Chemistry or select the correct subject.", res.Text)

	// only the chapter classification call was made
	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.NotEqual(t, models.GenerationSystemPrompt, calls[0].System)
	n, _ := c.Len(context.Background())
	assert.Zero(t, n)
}

func TestGenerate_Failure(t *testing.T) {
	fake := &llmservice.Fake{Err: errors.New("status 429: rate limit reached")}
	g, c := newGenerator(fake)

	res := g.Generate(context.Background(), shmContext, "Oscillations", models.Physics, 5)
	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, "Oscillations", res.Chapter)
	assert.Contains(t, res.Text, "Likely cause: rate limit exceeded")
	assert.ErrorContains(t, res.Err, "429")
	n, _ := c.Len(context.Background())
	assert.Zero(t, n, "failures are not cached")
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("cache down")
}
func (brokenCache) Put(context.Context, string, cache.Entry) error { return errors.New("cache down") }
func (brokenCache) Len(context.Context) (int, error)              { return 0, errors.New("cache down") }

func TestGenerate_CacheErrorsAreNotFatal(t *testing.T) {
	fake := llmservice.NewFake(rawMCQs)
	g := NewGenerator(fake, chapter.New(fake), brokenCache{}, "")
	res := g.Generate(context.Background(), shmContext, "Oscillations", models.Physics, 5)
	assert.Equal(t, Generated, res.Outcome)
	assert.Equal(t, cleanMCQs, res.Text)
}

func TestGenerate_ModelOverride(t *testing.T) {
	fake := llmservice.NewFake(rawMCQs)
	g := NewGenerator(fake, chapter.New(fake), cache.NewMemory(1), "llama-3.1-8b-instant")
	g.Generate(context.Background(), shmContext, "Oscillations", models.Physics, 2)
	require.Equal(t, 1, fake.CallCount())
	assert.Equal(t, "llama-3.1-8b-instant", fake.Calls()[0].Model)
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"rate-limit", errors.New("API returned unexpected status code: 429"), "rate limit exceeded"},
		{"credential", errors.New("401 Unauthorized: Invalid API Key"), "invalid API key"},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, "network issue"},
		{"deadline", fmt.Errorf("calling llm: %w", context.DeadlineExceeded), "network issue"},
		{"other", errors.New("model overloaded"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Diagnose(tt.err)
			assert.Contains(t, msg, tt.err.Error())
			assert.Contains(t, msg, "Possible causes:")
			if tt.hint == "" {
				assert.NotContains(t, msg, "Likely cause")
			} else {
				assert.Contains(t, msg, "Likely cause: "+tt.hint)
			}
		})
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "generated", Generated.String())
	assert.Equal(t, "cached", Cached.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
