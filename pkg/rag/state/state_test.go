package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrievedContext_SentinelsAreDistinct(t *testing.T) {
	skipped := SkippedContext()
	empty := EmptyContext()

	assert.True(t, skipped.IsSkipped())
	assert.False(t, skipped.IsEmpty())
	assert.False(t, skipped.HasText())

	assert.True(t, empty.IsEmpty())
	assert.False(t, empty.IsSkipped())
	assert.NotEqual(t, skipped, empty)

	var zero RetrievedContext
	assert.True(t, zero.IsEmpty())
}

func TestTextContext(t *testing.T) {
	assert.True(t, TextContext("").IsEmpty())

	c := TextContext("## Query 1: revenue")
	assert.True(t, c.HasText())
	assert.Equal(t, "## Query 1: revenue", c.Text())
	assert.Equal(t, "<skipped>", SkippedContext().String())
}

func TestConversationState(t *testing.T) {
	s := New("what was revenue", 3, time.Now())
	assert.Equal(t, "what was revenue", s.Query())
	assert.Equal(t, "", s.LastAnswer())
	assert.False(t, s.TransformsExhausted())

	s.Append(Message{Role: RoleAssistant, Content: "first"})
	s.Append(Message{Role: RoleAssistant, Content: "second"})
	assert.Equal(t, "second", s.LastAnswer())

	s.TransformCount = 3
	assert.True(t, s.TransformsExhausted())
}
