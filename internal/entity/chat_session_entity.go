package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession lives only in process memory.
type ChatSession struct {
	Id         uuid.UUID
	Messages   []ChatMessage
	AgentUsage map[string]int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// Clone returns a deep copy safe to hand out of the session store.
func (s *ChatSession) Clone() *ChatSession {
	out := &ChatSession{
		Id:         s.Id,
		Messages:   make([]ChatMessage, len(s.Messages)),
		AgentUsage: make(map[string]int, len(s.AgentUsage)),
		CreatedAt:  s.CreatedAt,
	}
	for i, m := range s.Messages {
		out.Messages[i] = m.Clone()
	}
	for k, v := range s.AgentUsage {
		out.AgentUsage[k] = v
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
