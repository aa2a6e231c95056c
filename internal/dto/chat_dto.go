package dto

import (
	"time"
)

type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	SessionId string `json:"session_id,omitempty" validate:"omitempty,max=64"`
	AgentType string `json:"agent_type,omitempty" validate:"omitempty,oneof=financial sql web"`
}

type ChatResponse struct {
	Response  string                 `json:"response"`
	SessionId string                 `json:"session_id"`
	AgentUsed string                 `json:"agent_used"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type ChatHistoryItem struct {
	Role      string                 `json:"role"`
	Chat      string                 `json:"chat"`
	Agent     string                 `json:"agent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type GetSessionResponse struct {
	SessionId   string            `json:"session_id"`
	History     []ChatHistoryItem `json:"history"`
	AgentCounts map[string]int    `json:"agent_counts"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

type SQLQueryRequest struct {
	Query string `json:"query" validate:"required,max=4000"`
}

type SQLQueryResponse struct {
	SQLQuery  string     `json:"sql_query"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	RowCount  int        `json:"row_count"`
	Truncated bool       `json:"truncated"`
	Result    string     `json:"result"`
}

// ChatInteractionMessage is the payload published on the chat.interaction topic.
type ChatInteractionMessage struct {
	SessionId      string    `json:"session_id"`
	Query          string    `json:"query"`
	Agent          string    `json:"agent"`
	ResponseLength int       `json:"response_length"`
	Fallback       bool      `json:"fallback"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type HealthResponse struct {
	Status            string `json:"status"`
	AgentsInitialized bool   `json:"agents_initialized"`
	ActiveSessions    int    `json:"active_sessions"`
}

type ServiceInfoResponse struct {
	Status  string   `json:"status"`
	Service string   `json:"service"`
	Version string   `json:"version"`
	Agents  []string `json:"agents"`
}
