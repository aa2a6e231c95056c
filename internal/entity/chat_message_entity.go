package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Id        uuid.UUID
	Role      string
	Chat      string
	Agent     string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

func (m ChatMessage) Clone() ChatMessage {
	if m.Metadata != nil {
		meta := make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			meta[k] = v
		}
		m.Metadata = meta
	}
	return m
}
