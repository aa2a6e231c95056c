package bootstrap

import (
	"context"
	"fmt"
	"time"

	"finagent-be/internal/config"
	"finagent-be/internal/controller"
	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/metrics"
	"finagent-be/internal/repository/memory"
	"finagent-be/internal/service"
	"finagent-be/internal/websocket"
	"finagent-be/pkg/ai/pipeline"
	"finagent-be/pkg/ai/router"
	"finagent-be/pkg/database"
	"finagent-be/pkg/embedding"
	"finagent-be/pkg/events"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/llm/factory"
	"finagent-be/pkg/rag/executor"
	"finagent-be/pkg/rag/grader"
	"finagent-be/pkg/rag/index"
	"finagent-be/pkg/rag/response"
	"finagent-be/pkg/rag/retriever"
	"finagent-be/pkg/rag/rewriter"
	"finagent-be/pkg/websearch"

	pktNats "finagent-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const metricsNamespace = "finagent"

type Container struct {
	// Controllers
	ChatController   controller.IChatController
	SQLController    controller.ISQLController
	SystemController controller.ISystemController

	ChatService service.IChatService

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger   logger.ILogger
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	closers []func()
}

// NewContainer wires every component. Optional backends (sql database, redis, NATS) that
// fail to connect are logged and left out; the LLM provider and the index are required.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(metricsNamespace, registry)
	c.Metrics = collector
	c.Gatherer = registry

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Model + index
	llmProvider, err := factory.NewLLMProvider(cfg.Ai)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Using LLM provider", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	idx, err := newIndex(ctx, cfg, sysLogger)
	if err != nil {
		return nil, err
	}

	// 4. Financial agent
	docRetriever := retriever.New(idx, llmProvider, sysLogger, retriever.Config{
		OverFetch: cfg.Rag.OverFetch,
		DebugDir:  cfg.App.DebugDir,
	})
	loop := executor.NewSelfRAG(
		docRetriever,
		grader.New(llmProvider, sysLogger),
		rewriter.New(llmProvider, sysLogger),
		response.NewGenerator(llmProvider, sysLogger, cfg.App.DebugDir),
		sysLogger,
		collector,
		executor.Config{
			MaxTransforms:  cfg.Rag.MaxTransforms,
			RetrieveGiveUp: cfg.Rag.RetrieveGiveUp,
			TopK:           cfg.Rag.TopK,
		},
	)
	financial := pipeline.NewRAGPipeline(
		loop,
		pipeline.NewBypassPipeline(llmProvider, sysLogger),
		sysLogger,
		collector,
		pipeline.RAGConfig{
			Mode:            cfg.Rag.Mode,
			TurnTimeout:     cfg.Rag.TurnTimeout,
			FallbackTimeout: cfg.Rag.FallbackTimeout,
		},
	)

	// 5. SQL agent (optional)
	var (
		sqlResponder pipeline.Responder
		sqlExec      service.SQLExecutor
	)
	if sqlPipeline := newSQLPipeline(ctx, cfg, llmProvider, sysLogger); sqlPipeline != nil {
		sqlResponder = sqlPipeline
		sqlExec = sqlPipeline
	}

	// 6. Web agent, cached in redis when configured
	rdb := newRedis(ctx, cfg.App.RedisURL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	searcher := websearch.NewCachedSearcher(
		websearch.NewDuckDuckGo(cfg.Web.SearchURL),
		rdb,
		cfg.Web.CacheTTL,
		sysLogger,
		collector,
	)
	web := pipeline.NewWebPipeline(searcher, llmProvider, sysLogger, cfg.Web.MaxResults)

	agentRouter := router.NewRouter(llmProvider, financial, sqlResponder, web, sysLogger, collector)

	// 7. Sessions + interaction events
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval)

	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	interactionLog := logger.NewIsolatedLogger(cfg.App.InteractionLogPath)
	c.closers = append(c.closers, func() { _ = interactionLog.Sync() })

	publisherService := service.NewPublisherService(events.TypeChatInteraction, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		events.TypeChatInteraction,
		interactionLog,
		forwarder,
		sysLogger,
	)

	c.ChatService = service.NewChatService(
		agentRouter,
		sessionRepo,
		sqlExec,
		pipeline.RenderTable,
		publisherService,
		sysLogger,
	)

	// 8. Transport
	c.WebSocketHub = websocket.NewHub(rdb, sysLogger)
	c.ChatController = controller.NewChatController(c.ChatService)
	c.SQLController = controller.NewSQLController(c.ChatService)
	c.SystemController = controller.NewSystemController(c.ChatService, sysLogger)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newIndex(ctx context.Context, cfg *config.Config, log logger.ILogger) (index.Index, error) {
	var seed *index.MemoryIndex
	if cfg.Index.SeedFile != "" {
		loaded, err := index.LoadMemoryIndex(cfg.Index.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = loaded
	}

	switch cfg.Index.Backend {
	case "pgvector":
		db, err := database.NewGormDBFromDSN(cfg.Index.Connection)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to vector store: %w", err)
		}
		pg := index.NewPgvectorIndex(db, embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel))
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		if seed != nil {
			if n, err := pg.Count(ctx); err == nil && n == 0 {
				if err := pg.Add(ctx, seed.Documents()...); err != nil {
					return nil, fmt.Errorf("failed to seed vector store: %w", err)
				}
				log.Info("BOOTSTRAP", "Seeded vector store", map[string]interface{}{"chunks": seed.Len()})
			}
		}
		log.Info("BOOTSTRAP", "Using pgvector index", nil)
		return pg, nil

	case "memory", "":
		if seed == nil {
			log.Warn("BOOTSTRAP", "No INDEX_SEED_FILE set, the financial index is empty", nil)
			seed = index.NewMemoryIndex()
		}
		log.Info("BOOTSTRAP", "Using in-memory index", map[string]interface{}{"chunks": seed.Len()})
		return seed, nil

	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Index.Backend)
	}
}

func newSQLPipeline(ctx context.Context, cfg *config.Config, llmProvider llm.LLMProvider, log logger.ILogger) *pipeline.SQLPipeline {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection, !cfg.IsProduction())
	if err != nil {
		log.Warn("BOOTSTRAP", "SQL agent disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if cfg.Database.SeedSample {
		if err := database.SeedSample(ctx, db); err != nil {
			log.Warn("BOOTSTRAP", "Failed to seed sample database", map[string]interface{}{"error": err.Error()})
		}
	}
	log.Info("BOOTSTRAP", "SQL agent ready", map[string]interface{}{"driver": cfg.Database.Driver})
	return pipeline.NewSQLPipeline(db, llmProvider, log)
}

// newRedis returns nil when url is empty or the server does not answer.
func newRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis, using in-memory cache", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
