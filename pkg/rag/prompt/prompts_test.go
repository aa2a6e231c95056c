package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriterUser(t *testing.T) {
	assert.Equal(t, "Original Query: revenue", RewriterUser("revenue", nil))

	got := RewriterUser("revenue", []string{"Amazon revenue 2023", "Apple revenue Q4"})
	assert.Equal(t,
		"Original Query: revenue\n\nAlready tried queries (DO NOT REPEAT):\n1. Amazon revenue 2023\n2. Apple revenue Q4\n",
		got)
}

func TestGeneratorUser(t *testing.T) {
	assert.Equal(t, "User query: hi", GeneratorUser("hi", ""))
	assert.Equal(t, "Retrieved Document: ctx\n\nUser query: q", GeneratorUser("q", "ctx"))
}

func TestSystemPromptsCarryPolicy(t *testing.T) {
	assert.Contains(t, GraderSystem, "does not need to be a stringent test")
	assert.Contains(t, WithContextSystem, "**References:**")
	assert.Contains(t, NoContextSystem, "under 100 words")
	assert.Contains(t, RouterSystem, "'financial', 'sql', or 'web'")
}
