// Package quality decides whether a generated answer ends the turn or triggers a rewrite.
package quality

import (
	"strings"

	"finagent-be/pkg/rag/classifier"
	"finagent-be/pkg/rag/state"
)

type Decision int

const (
	Terminate Decision = iota
	Retry
)

func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "terminate"
}

// Reason names the rule that fired, for logs and traces.
type Reason string

const (
	ReasonNoMessages        Reason = "no_messages"
	ReasonTransformsSpent   Reason = "transforms_exhausted"
	ReasonSkipped           Reason = "retrieval_skipped"
	ReasonNotDocumentQuery  Reason = "no_retrieval_needed"
	ReasonNothingAfterRetry Reason = "empty_after_rewrite"
	ReasonCasual            Reason = "casual_conversation"
	ReasonShortApology      Reason = "short_apology"
	ReasonAccepted          Reason = "accepted"
)

var casualKeywords = []string{"hi", "hello", "hey", "thanks", "bye", "ok", "yes", "no"}

const (
	apologyMarker    = "sorry"
	shortAnswerLimit = 50
)

// Check applies the continuation rules in order; the first match wins.
func Check(s *state.ConversationState) (Decision, Reason) {
	if len(s.Messages) == 0 {
		return Terminate, ReasonNoMessages
	}
	if s.TransformsExhausted() {
		return Terminate, ReasonTransformsSpent
	}
	if s.Context.IsSkipped() {
		return Terminate, ReasonSkipped
	}

	query := s.Query()
	contextEmpty := !s.Context.HasText()

	if contextEmpty && !classifier.ShouldRetrieveDocuments(query) {
		return Terminate, ReasonNotDocumentQuery
	}
	if contextEmpty && s.TransformCount > 0 {
		return Terminate, ReasonNothingAfterRetry
	}
	if classifier.ContainsWord(query, casualKeywords) {
		return Terminate, ReasonCasual
	}

	answer := s.LastAnswer()
	if len(answer) < shortAnswerLimit && strings.Contains(strings.ToLower(answer), apologyMarker) {
		return Retry, ReasonShortApology
	}
	return Terminate, ReasonAccepted
}
