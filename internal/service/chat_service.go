package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finagent-be/internal/dto"
	"finagent-be/internal/entity"
	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/serverutils"
	"finagent-be/internal/repository/contract"
	"finagent-be/pkg/ai/router"
	"finagent-be/pkg/database"

	"github.com/google/uuid"
)

const ServiceVersion = "1.0.0"

// ErrSQLUnavailable is returned by RunSQL when no database is configured.
var ErrSQLUnavailable = errors.New("sql database is not configured")

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	ChatDirect(ctx context.Context, agent router.Agent, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.GetSessionResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
	RunSQL(ctx context.Context, req *dto.SQLQueryRequest) (*dto.SQLQueryResponse, error)
	Health(ctx context.Context) *dto.HealthResponse
	Info(ctx context.Context) *dto.ServiceInfoResponse
}

// SQLExecutor runs caller-supplied read-only SQL.
type SQLExecutor interface {
	Execute(ctx context.Context, sql string) (*database.QueryResult, error)
}

// TableRenderer turns a query result into the text returned to clients.
type TableRenderer func(*database.QueryResult) string

type chatService struct {
	router      *router.Router
	sessionRepo contract.ChatSessionRepository
	sqlExec     SQLExecutor
	render      TableRenderer
	publisher   IPublisherService
	logger      logger.ILogger
	now         func() time.Time
}

// NewChatService wires one turn: session lookup, routing, history append, interaction event.
// sqlExec and publisher may be nil.
func NewChatService(
	agentRouter *router.Router,
	sessionRepo contract.ChatSessionRepository,
	sqlExec SQLExecutor,
	render TableRenderer,
	publisher IPublisherService,
	log logger.ILogger,
) IChatService {
	return &chatService{
		router:      agentRouter,
		sessionRepo: sessionRepo,
		sqlExec:     sqlExec,
		render:      render,
		publisher:   publisher,
		logger:      log,
		now:         time.Now,
	}
}

func (s *chatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	var requested router.Agent
	if req.AgentType != "" {
		agent, ok := router.ParseAgent(req.AgentType)
		if !ok {
			return nil, &serverutils.ValidationError{Fields: map[string]string{
				"AgentType": fmt.Sprintf("unknown agent %q", req.AgentType),
			}}
		}
		requested = agent
	}

	return s.turn(ctx, req, func(ctx context.Context) (*router.ExecuteResult, error) {
		return s.router.Execute(ctx, req.Message, requested)
	})
}

func (s *chatService) ChatDirect(ctx context.Context, agent router.Agent, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	return s.turn(ctx, req, func(ctx context.Context) (*router.ExecuteResult, error) {
		res, err := s.router.Dispatch(ctx, agent, req.Message)
		if err != nil {
			return nil, err
		}
		res.Source = router.SourceRequested
		return res, nil
	})
}

func (s *chatService) turn(
	ctx context.Context,
	req *dto.ChatRequest,
	run func(context.Context) (*router.ExecuteResult, error),
) (*dto.ChatResponse, error) {
	session, created := s.sessionRepo.GetOrCreate(req.SessionId)
	sessionId := session.Id.String()
	if created && req.SessionId != "" {
		s.logger.Info("CHAT_SERVICE", "Unknown session id, started a new session", map[string]interface{}{
			"requested_session_id": req.SessionId,
			"session_id":           sessionId,
		})
	}

	userAt := s.now()
	res, err := run(ctx)
	if err != nil {
		return nil, err
	}
	assistantAt := s.now()

	metadata := make(map[string]interface{}, len(res.Metadata)+1)
	for k, v := range res.Metadata {
		metadata[k] = v
	}
	if res.Source != "" {
		metadata["routing_source"] = string(res.Source)
	}

	userMsg := entity.ChatMessage{
		Id:        uuid.New(),
		Role:      entity.RoleUser,
		Chat:      req.Message,
		CreatedAt: userAt,
	}
	assistantMsg := entity.ChatMessage{
		Id:        uuid.New(),
		Role:      entity.RoleAssistant,
		Chat:      res.Reply,
		Agent:     string(res.Agent),
		Metadata:  metadata,
		CreatedAt: assistantAt,
	}
	if err := s.sessionRepo.AppendTurn(sessionId, userMsg, assistantMsg, string(res.Agent)); err != nil {
		s.logger.Error("CHAT_SERVICE", "Failed to store turn", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to store chat turn: %w", err)
	}

	s.publishInteraction(ctx, dto.ChatInteractionMessage{
		SessionId:      sessionId,
		Query:          req.Message,
		Agent:          string(res.Agent),
		ResponseLength: len(res.Reply),
		Fallback:       isFallback(metadata),
		OccurredAt:     assistantAt,
	})

	return &dto.ChatResponse{
		Response:  res.Reply,
		SessionId: sessionId,
		AgentUsed: string(res.Agent),
		Timestamp: assistantAt,
		Metadata:  metadata,
	}, nil
}

// publishInteraction never fails the turn.
func (s *chatService) publishInteraction(ctx context.Context, msg dto.ChatInteractionMessage) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("CHAT_SERVICE", "Failed to publish interaction", map[string]interface{}{
			"session_id": msg.SessionId,
			"error":      err.Error(),
		})
	}
}

func isFallback(metadata map[string]interface{}) bool {
	for _, key := range []string{"fallback_to_minimal", "error"} {
		if v, ok := metadata[key].(bool); ok && v {
			return true
		}
	}
	return false
}

func (s *chatService) GetSession(ctx context.Context, sessionId string) (*dto.GetSessionResponse, error) {
	session, err := s.sessionRepo.Get(sessionId)
	if err != nil {
		if errors.Is(err, contract.ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", sessionId, serverutils.ErrNotFound)
		}
		return nil, err
	}

	history := make([]dto.ChatHistoryItem, 0, len(session.Messages))
	for _, m := range session.Messages {
		history = append(history, dto.ChatHistoryItem{
			Role:      m.Role,
			Chat:      m.Chat,
			Agent:     m.Agent,
			CreatedAt: m.CreatedAt,
			Metadata:  m.Metadata,
		})
	}

	return &dto.GetSessionResponse{
		SessionId:   session.Id.String(),
		History:     history,
		AgentCounts: session.AgentUsage,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionId string) error {
	if err := s.sessionRepo.Delete(sessionId); err != nil {
		if errors.Is(err, contract.ErrSessionNotFound) {
			return fmt.Errorf("session %s: %w", sessionId, serverutils.ErrNotFound)
		}
		return err
	}
	s.logger.Info("CHAT_SERVICE", "Session deleted", map[string]interface{}{"session_id": sessionId})
	return nil
}

func (s *chatService) RunSQL(ctx context.Context, req *dto.SQLQueryRequest) (*dto.SQLQueryResponse, error) {
	if s.sqlExec == nil {
		return nil, ErrSQLUnavailable
	}

	result, err := s.sqlExec.Execute(ctx, req.Query)
	if err != nil {
		if errors.Is(err, database.ErrEmptyQuery) || errors.Is(err, database.ErrNotReadOnly) || errors.Is(err, database.ErrMultiStatement) {
			return nil, &serverutils.ValidationError{Fields: map[string]string{"Query": err.Error()}}
		}
		return nil, fmt.Errorf("sql execution failed: %w", err)
	}

	rows := result.Rows
	if rows == nil {
		rows = [][]string{}
	}
	text := ""
	if s.render != nil {
		text = s.render(result)
	}
	return &dto.SQLQueryResponse{
		SQLQuery:  req.Query,
		Columns:   result.Columns,
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: result.Truncated,
		Result:    text,
	}, nil
}

func (s *chatService) Health(ctx context.Context) *dto.HealthResponse {
	return &dto.HealthResponse{
		Status:            "healthy",
		AgentsInitialized: s.router != nil,
		ActiveSessions:    s.sessionRepo.Count(),
	}
}

func (s *chatService) Info(ctx context.Context) *dto.ServiceInfoResponse {
	agents := router.Agents()
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, string(a))
	}
	return &dto.ServiceInfoResponse{
		Status:  "running",
		Service: "Financial Multi-Agent Chatbot",
		Version: ServiceVersion,
		Agents:  names,
	}
}
