package contract

import (
	"errors"

	"finagent-be/internal/entity"
)

var ErrSessionNotFound = errors.New("session not found")

// ChatSessionRepository hands out copies; callers never hold a live session.
type ChatSessionRepository interface {
	// GetOrCreate returns the session for id, or a new session with a fresh id when id is empty or unknown.
	GetOrCreate(id string) (session *entity.ChatSession, created bool)
	Get(id string) (*entity.ChatSession, error)
	// AppendTurn adds the user and assistant messages as one unit and counts the agent.
	AppendTurn(id string, user, assistant entity.ChatMessage, agent string) error
	Delete(id string) error
	Count() int
}
