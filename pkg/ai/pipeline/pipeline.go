// Package pipeline holds the per-agent responders the router dispatches to.
package pipeline

import (
	"context"
)

// Result is one agent reply. Metadata is copied into the chat response as-is.
type Result struct {
	Reply    string
	Metadata map[string]interface{}
}

// Responder answers one query. Failures inside a responder are turned into a
// text reply; a returned error means the responder could not run at all.
type Responder interface {
	Respond(ctx context.Context, query string) (*Result, error)
}
