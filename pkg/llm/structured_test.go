package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"binary_score":"yes"}`, `{"binary_score":"yes"}`},
		{"fenced", "```json\n{\"agent\": \"sql\"}\n```", `{"agent": "sql"}`},
		{"prose around", `Sure! Here it is: {"queries": ["a"]} hope that helps`, `{"queries": ["a"]}`},
		{"think block", "<think>maybe {no}</think>\n{\"binary_score\":\"no\"}", `{"binary_score":"no"}`},
		{"no object", "yes", "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSON(tt.input))
		})
	}
}

func TestParseStructured(t *testing.T) {
	var score BinaryScore
	require.NoError(t, ParseStructured("```json\n{\"binary_score\": \"yes\"}\n```", &score))
	assert.Equal(t, "yes", score.BinaryScore)

	var queries SearchQueries
	err := ParseStructured("I cannot help with that", &queries)
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestStripThinking(t *testing.T) {
	assert.Equal(t, "Hello!", StripThinking("<think>\nthe user greets\n</think>\n\nHello!"))
}

func TestSchemaInstruction(t *testing.T) {
	instr := RouterDecisionSchema.Instruction()
	assert.Contains(t, instr, `"agent"`)
	assert.Contains(t, instr, "financial")
}
