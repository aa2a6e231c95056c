package router

import (
	"strings"
)

// Agent is the closed set of responder domains a turn can be dispatched to.
type Agent string

const (
	AgentFinancial Agent = "financial"
	AgentSQL       Agent = "sql"
	AgentWeb       Agent = "web"
)

// Agents lists every agent in a stable order.
func Agents() []Agent {
	return []Agent{AgentFinancial, AgentSQL, AgentWeb}
}

// ParseAgent accepts only the three known agent names, case-insensitively.
func ParseAgent(s string) (Agent, bool) {
	switch Agent(strings.ToLower(strings.TrimSpace(s))) {
	case AgentFinancial:
		return AgentFinancial, true
	case AgentSQL:
		return AgentSQL, true
	case AgentWeb:
		return AgentWeb, true
	default:
		return "", false
	}
}

func (a Agent) String() string {
	return string(a)
}

// ParsedPrompt contains routing information extracted from a prompt.
type ParsedPrompt struct {
	OriginalPrompt string
	CleanPrompt    string
	// Agent is set only when the prompt carried an agent directive.
	Agent Agent
}

// Parse extracts an agent directive from the prompt:
//   - /financial <prompt>
//   - /sql <prompt>
//   - /web <prompt>
//   - <prompt> → no directive, the model decides
func Parse(prompt string) *ParsedPrompt {
	trimmed := strings.TrimSpace(prompt)

	if strings.HasPrefix(trimmed, "/") {
		directive, rest := splitDirective(trimmed[1:])
		if agent, ok := ParseAgent(directive); ok {
			return &ParsedPrompt{
				OriginalPrompt: prompt,
				CleanPrompt:    rest,
				Agent:          agent,
			}
		}
	}

	return &ParsedPrompt{
		OriginalPrompt: prompt,
		CleanPrompt:    trimmed,
	}
}

// splitDirective splits "sql list employees" into ("sql", "list employees").
func splitDirective(s string) (string, string) {
	idx := strings.IndexAny(s, " \t\n")
	if idx == -1 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx+1:])
}

// HasDirective reports whether the prompt named its agent explicitly.
func (p *ParsedPrompt) HasDirective() bool {
	return p.Agent != ""
}

// IsEmpty returns true if the clean prompt is empty.
func (p *ParsedPrompt) IsEmpty() bool {
	return strings.TrimSpace(p.CleanPrompt) == ""
}
