package response

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQuickResponse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		hit   bool
		text  string
	}{
		{"exact hi", "hi", true, "Hello! 👋 I'm your AI assistant. How can I help you today?"},
		{"exact with punctuation", "Thanks!", true, "No problem! Happy to help. 👍"},
		{"phrase inside casual query", "hi there, how are you doing", true, "I'm doing great, thanks for asking! Ready to help you with any questions you might have."},
		{"thank you", "thank you so much", true, "You're welcome! 😊 Let me know if you need anything else."},
		{"substring inside word", "this is nice", false, ""},
		{"substantive query with greeting", "hi, what was Amazon's revenue in Q4 2023?", false, ""},
		{"substantive query", "What was Amazon's revenue in Q4 2023?", false, ""},
		{"short non-greeting", "revenue?", false, ""},
		{"empty", "   ", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := QuickResponse(tt.query)
			assert.Equal(t, tt.hit, ok)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestGenerator_QuickResponseIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		phrase := rapid.SampledFrom([]string{"hi", "hello", "hey", "thanks", "thank you", "bye", "goodbye", "who are you", "what can you do", "how are you"}).Draw(t, "greeting")

		provider := mock.New()
		g := NewGenerator(provider, logger.NewNopLogger(), "")

		first := g.Generate(context.Background(), phrase, "")
		second := g.Generate(context.Background(), phrase, "")

		if !first.Quick || !second.Quick {
			t.Fatalf("expected quick responses for %q", phrase)
		}
		if first.Text != second.Text {
			t.Fatalf("quick response changed: %q vs %q", first.Text, second.Text)
		}
		if provider.Calls() != 0 {
			t.Fatalf("model called %d times for %q", provider.Calls(), phrase)
		}
	})
}

func TestGenerator_PromptPolicy(t *testing.T) {
	provider := mock.New(
		mock.SystemContains("financial document analyst", "## Revenue\n**$170B** [1]\n\n**References:**\n1. Company: amazon, Year: 2023, Quarter: q4, Page: 3"),
		mock.SystemContains("friendly", "<think>no docs</think>I could not find matching documents for that."),
	)
	g := NewGenerator(provider, logger.NewNopLogger(), "")

	withCtx := g.Generate(context.Background(), "What was Amazon's revenue in Q4 2023?", "--- Document 1 ---\nContent:\n$170B")
	assert.False(t, withCtx.Degraded())
	assert.Contains(t, withCtx.Text, "**References:**")
	assert.Contains(t, provider.Requests()[0].User, "Retrieved Document: --- Document 1 ---")

	noCtx := g.Generate(context.Background(), "tell me about revenue", "   ")
	assert.Equal(t, "I could not find matching documents for that.", noCtx.Text)
	assert.Equal(t, "User query: tell me about revenue", provider.Requests()[1].User)
}

func TestGenerator_Failures(t *testing.T) {
	t.Run("model error", func(t *testing.T) {
		g := NewGenerator(mock.New(mock.SystemContainsErr("", errors.New("ollama down"))), logger.NewNopLogger(), "")
		ans := g.Generate(context.Background(), "tell me about revenue", "")
		assert.True(t, ans.Degraded())
		assert.Equal(t, DegradedAnswer, ans.Text)
		assert.EqualError(t, ans.Err, "ollama down")
	})

	t.Run("blank answer", func(t *testing.T) {
		g := NewGenerator(mock.New().WithFallback("<think>hmm</think>"), logger.NewNopLogger(), "")
		ans := g.Generate(context.Background(), "tell me about revenue", "")
		assert.True(t, ans.Degraded())
		assert.Equal(t, DegradedAnswer, ans.Text)
	})
}

func TestGenerator_DebugArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	g := NewGenerator(mock.New().WithFallback("An answer."), logger.NewNopLogger(), dir)

	g.Generate(context.Background(), "tell me about revenue", "")

	assert.Eventually(t, func() bool {
		raw, err := os.ReadFile(filepath.Join(dir, debugFileName))
		return err == nil && string(raw) == "Query: tell me about revenue\n\nAn answer."
	}, time.Second, 10*time.Millisecond)
}

func TestGenerator_DebugWriteFailureDoesNotFail(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	g := NewGenerator(mock.New().WithFallback("Still answered."), logger.NewNopLogger(), file)
	ans := g.Generate(context.Background(), "tell me about revenue", "")
	assert.Equal(t, "Still answered.", ans.Text)
}
