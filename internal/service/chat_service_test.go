package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"finagent-be/internal/dto"
	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/serverutils"
	"finagent-be/internal/repository/memory"
	"finagent-be/pkg/ai/pipeline"
	"finagent-be/pkg/ai/router"
	"finagent-be/pkg/database"
	"finagent-be/pkg/events"
	"finagent-be/pkg/llm/mock"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResponder struct {
	reply string
	meta  map[string]interface{}
}

func (r staticResponder) Respond(_ context.Context, query string) (*pipeline.Result, error) {
	return &pipeline.Result{Reply: r.reply + ": " + query, Metadata: r.meta}, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

type recordingForwarder struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *recordingForwarder) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newTestService(t *testing.T, provider *mock.Provider, publisher IPublisherService, sqlExec SQLExecutor) (IChatService, *memory.SessionRepository) {
	t.Helper()
	log := logger.NewNopLogger()
	r := router.NewRouter(
		provider,
		staticResponder{reply: "financial", meta: map[string]interface{}{"has_documents": true}},
		staticResponder{reply: "sql"},
		staticResponder{reply: "web", meta: map[string]interface{}{"fallback_to_minimal": true}},
		log,
		nil,
	)
	repo := memory.NewSessionRepository(time.Hour, time.Minute)
	return NewChatService(r, repo, sqlExec, pipeline.RenderTable, publisher, log), repo
}

func TestChatService_Chat(t *testing.T) {
	ctx := context.Background()

	t.Run("new session and routed turn", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc, repo := newTestService(t, mock.New().WithFallback(`{"agent":"sql"}`), pub, nil)

		res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "top earners"})
		require.NoError(t, err)
		assert.Equal(t, "sql: top earners", res.Response)
		assert.Equal(t, "sql", res.AgentUsed)
		assert.NotEmpty(t, res.SessionId)
		assert.Equal(t, "model", res.Metadata["routing_source"])

		session, err := repo.Get(res.SessionId)
		require.NoError(t, err)
		require.Len(t, session.Messages, 2)
		assert.Equal(t, "top earners", session.Messages[0].Chat)
		assert.Equal(t, "sql", session.Messages[1].Agent)
		assert.Equal(t, map[string]int{"sql": 1}, session.AgentUsage)

		require.Len(t, pub.payloads, 1)
		var msg dto.ChatInteractionMessage
		require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
		assert.Equal(t, res.SessionId, msg.SessionId)
		assert.Equal(t, "sql", msg.Agent)
		assert.Equal(t, len(res.Response), msg.ResponseLength)
		assert.False(t, msg.Fallback)
	})

	t.Run("session is reused", func(t *testing.T) {
		provider := mock.New()
		svc, repo := newTestService(t, provider, nil, nil)

		first, err := svc.Chat(ctx, &dto.ChatRequest{Message: "one", AgentType: "financial"})
		require.NoError(t, err)
		second, err := svc.Chat(ctx, &dto.ChatRequest{Message: "two", AgentType: "web", SessionId: first.SessionId})
		require.NoError(t, err)

		assert.Equal(t, first.SessionId, second.SessionId)
		assert.Zero(t, provider.Calls())
		session, err := repo.Get(first.SessionId)
		require.NoError(t, err)
		assert.Len(t, session.Messages, 4)
		assert.Equal(t, map[string]int{"financial": 1, "web": 1}, session.AgentUsage)
	})

	t.Run("fallback flag is published", func(t *testing.T) {
		pub := &recordingPublisher{}
		svc, _ := newTestService(t, mock.New(), pub, nil)

		_, err := svc.Chat(ctx, &dto.ChatRequest{Message: "fed news", AgentType: "web"})
		require.NoError(t, err)

		var msg dto.ChatInteractionMessage
		require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
		assert.True(t, msg.Fallback)
	})

	t.Run("publish failure does not fail the turn", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("bus closed")}
		svc, _ := newTestService(t, mock.New(), pub, nil)

		res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "hi", AgentType: "financial"})
		require.NoError(t, err)
		assert.Equal(t, "financial: hi", res.Response)
	})

	t.Run("unknown agent type", func(t *testing.T) {
		svc, _ := newTestService(t, mock.New(), nil, nil)
		_, err := svc.Chat(ctx, &dto.ChatRequest{Message: "hi", AgentType: "llm"})
		var validationErr *serverutils.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})
}

func TestChatService_ChatDirect(t *testing.T) {
	provider := mock.New()
	svc, _ := newTestService(t, provider, nil, nil)

	res, err := svc.ChatDirect(context.Background(), router.AgentWeb, &dto.ChatRequest{Message: "/sql not parsed here"})
	require.NoError(t, err)
	assert.Equal(t, "web", res.AgentUsed)
	assert.Equal(t, "web: /sql not parsed here", res.Response)
	assert.Equal(t, "requested", res.Metadata["routing_source"])
	assert.Zero(t, provider.Calls())
}

func TestChatService_Sessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, mock.New(), nil, nil)

	res, err := svc.Chat(ctx, &dto.ChatRequest{Message: "hello", AgentType: "financial"})
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, res.SessionId)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, "user", got.History[0].Role)
	assert.Equal(t, "assistant", got.History[1].Role)
	assert.Equal(t, true, got.History[1].Metadata["has_documents"])
	assert.Equal(t, 1, svc.Health(ctx).ActiveSessions)

	require.NoError(t, svc.DeleteSession(ctx, res.SessionId))
	_, err = svc.GetSession(ctx, res.SessionId)
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, res.SessionId), serverutils.ErrNotFound)
	assert.Zero(t, svc.Health(ctx).ActiveSessions)
}

func TestChatService_RunSQL(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(database.DriverSQLite, ":memory:", false)
	require.NoError(t, err)
	require.NoError(t, database.SeedSample(ctx, db))
	svc, _ := newTestService(t, mock.New(), nil, pipeline.NewSQLPipeline(db, mock.New(), logger.NewNopLogger()))

	t.Run("select", func(t *testing.T) {
		res, err := svc.RunSQL(ctx, &dto.SQLQueryRequest{Query: "SELECT name FROM departments ORDER BY name LIMIT 2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"name"}, res.Columns)
		assert.Equal(t, 2, res.RowCount)
		assert.Contains(t, res.Result, "| name |")
	})

	t.Run("write refused", func(t *testing.T) {
		_, err := svc.RunSQL(ctx, &dto.SQLQueryRequest{Query: "DROP TABLE employees"})
		var validationErr *serverutils.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("no database", func(t *testing.T) {
		bare, _ := newTestService(t, mock.New(), nil, nil)
		_, err := bare.RunSQL(ctx, &dto.SQLQueryRequest{Query: "SELECT 1"})
		assert.ErrorIs(t, err, ErrSQLUnavailable)
	})
}

func TestConsumerService_Consume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	logPath := filepath.Join(t.TempDir(), "interactions.log")
	interactionLog := logger.NewIsolatedLogger(logPath)
	forwarder := &recordingForwarder{}

	consumer := NewConsumerService(pubSub, "chat.interaction", interactionLog, forwarder, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("chat.interaction", pubSub)
	payload, err := json.Marshal(dto.ChatInteractionMessage{
		SessionId:      "s-1",
		Query:          "what is ebitda",
		Agent:          "financial",
		ResponseLength: 42,
		OccurredAt:     time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, payload))
	require.NoError(t, publisher.Publish(ctx, []byte("not json")))

	require.Eventually(t, func() bool { return forwarder.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	forwarder.mu.Lock()
	event := forwarder.events[0]
	forwarder.mu.Unlock()
	assert.Equal(t, events.TypeChatInteraction, event.EventType())
	assert.Equal(t, "s-1", event.Payload()["session_id"])

	require.NoError(t, interactionLog.Sync())
	entries, err := interactionLog.GetLogs("", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "financial", entries[0].Details["agent"])
}
