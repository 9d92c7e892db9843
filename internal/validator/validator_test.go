package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcq-rag/internal/llmservice"
	"mcq-rag/internal/models"
)

func TestValidate_NoLLMAlwaysAccepts(t *testing.T) {
	v := New(nil)
	for _, subj := range models.Subjects() {
		for _, topic := range []string{"Mitochondria", "Ohm's law", "", "pizza"} {
			assert.True(t, v.Validate(context.Background(), topic, subj), "%s / %q", subj, topic)
		}
	}
}

func TestValidate_Responses(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{"yes", "YES", true},
		{"lowercase-yes", "yes, it does", true},
		{"no", "NO", false},
		{"empty", "", false},
		{"rambling", "It belongs to Biology.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(llmservice.NewFake(tt.response))
			assert.Equal(t, tt.want, v.Validate(context.Background(), "Mitochondria", models.Chemistry))
		})
	}
}

func TestValidate_FailsOpenOnError(t *testing.T) {
	fake := &llmservice.Fake{Err: errors.New("429 Too Many Requests")}
	assert.True(t, New(fake).Validate(context.Background(), "Mitochondria", models.Chemistry))
	assert.Equal(t, 1, fake.CallCount())
}

func TestValidate_Request(t *testing.T) {
	fake := llmservice.NewFake("YES")
	New(fake).Validate(context.Background(), "Electrochemical cells", models.Chemistry)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.ValidationMaxTokens, calls[0].MaxTokens)
	require.NotNil(t, calls[0].Temperature)
	assert.InDelta(t, 0.1, *calls[0].Temperature, 1e-9)
	assert.Contains(t, calls[0].User, `Topic: "Electrochemical cells"`)
	assert.Contains(t, calls[0].User, "Class 12 Chemistry covers:")
	assert.Contains(t, calls[0].User, models.Chemistry.Coverage())
	assert.NotContains(t, calls[0].User, models.Biology.Coverage())
}
