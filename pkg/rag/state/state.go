// Package state holds the per-turn conversation state owned by one self-RAG run.
package state

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once appended to a ConversationState.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

type contextKind int

const (
	contextEmpty contextKind = iota
	contextSkipped
	contextText
)

// RetrievedContext distinguishes "retrieval skipped on purpose" from "retrieved nothing".
// The zero value is Empty.
type RetrievedContext struct {
	kind contextKind
	text string
}

func EmptyContext() RetrievedContext {
	return RetrievedContext{kind: contextEmpty}
}

func SkippedContext() RetrievedContext {
	return RetrievedContext{kind: contextSkipped}
}

// TextContext returns Empty for blank text.
func TextContext(text string) RetrievedContext {
	if text == "" {
		return EmptyContext()
	}
	return RetrievedContext{kind: contextText, text: text}
}

func (c RetrievedContext) IsSkipped() bool { return c.kind == contextSkipped }

// IsEmpty is true only for attempted-and-empty. A skipped context is not empty.
func (c RetrievedContext) IsEmpty() bool { return c.kind == contextEmpty }

func (c RetrievedContext) HasText() bool { return c.kind == contextText }

func (c RetrievedContext) Text() string { return c.text }

func (c RetrievedContext) String() string {
	switch c.kind {
	case contextSkipped:
		return "<skipped>"
	case contextEmpty:
		return "<empty>"
	default:
		return c.text
	}
}

type ConversationState struct {
	Messages         []Message
	Context          RetrievedContext
	RewrittenQueries []string
	TransformCount   int
	MaxTransforms    int
}

func New(query string, maxTransforms int, now time.Time) *ConversationState {
	return &ConversationState{
		Messages:      []Message{{Role: RoleUser, Content: query, Timestamp: now}},
		Context:       EmptyContext(),
		MaxTransforms: maxTransforms,
	}
}

// Query is the first user message of the turn.
func (s *ConversationState) Query() string {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// LastAnswer is the content of the latest assistant message, or "".
func (s *ConversationState) LastAnswer() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

func (s *ConversationState) Append(m Message) {
	s.Messages = append(s.Messages, m)
}

// TransformsExhausted reports transform_count >= max_transforms.
func (s *ConversationState) TransformsExhausted() bool {
	return s.TransformCount >= s.MaxTransforms
}
