package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparsable is returned when model output holds no JSON object matching the target.
var ErrUnparsable = errors.New("llm output is not valid structured json")

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ExtractJSON strips reasoning blocks and code fences and returns the outermost {...} span.
func ExtractJSON(response string) string {
	response = thinkBlock.ReplaceAllString(response, "")
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart >= 0 && jsonEnd > jsonStart {
		return response[jsonStart : jsonEnd+1]
	}
	return response
}

// ParseStructured decodes the JSON object found in response into out.
func ParseStructured(response string, out interface{}) error {
	if err := json.Unmarshal([]byte(ExtractJSON(response)), out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return nil
}

// CompleteStructured runs one system+user call constrained to schema and decodes the answer into out.
func CompleteStructured(ctx context.Context, p LLMProvider, schema Schema, system, user string, out interface{}, opts ...Option) error {
	instructions := system
	if instructions != "" {
		instructions += "\n\n"
	}
	instructions += schema.Instruction()

	opts = append(opts, WithSchema(schema.Definition), WithTemperature(0))
	raw, err := Complete(ctx, p, instructions, user, opts...)
	if err != nil {
		return fmt.Errorf("structured completion %s: %w", schema.Name, err)
	}
	return ParseStructured(raw, out)
}

// StripThinking removes <think> blocks some reasoning models prepend to free-text answers.
func StripThinking(response string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(response, ""))
}
