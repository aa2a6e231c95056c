package pipeline

import (
	"context"
	"time"

	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/metrics"
	"finagent-be/pkg/rag/executor"
	"finagent-be/pkg/rag/prompt"
	"finagent-be/pkg/rag/response"
)

const (
	ModeFull    = "full"
	ModeMinimal = "minimal"
)

// TimeoutPrefix is prepended to the fallback answer when the self-RAG turn runs out of time.
const TimeoutPrefix = "The analysis is taking too long. Here's a quick answer instead:\n\n"

// Loop is the self-RAG controller as seen by the financial agent.
type Loop interface {
	Run(ctx context.Context, query string) (*executor.Result, error)
}

type RAGConfig struct {
	Mode            string
	TurnTimeout     time.Duration
	FallbackTimeout time.Duration
}

// RAGPipeline is the financial agent: the self-RAG loop under one turn deadline,
// with a model-only fallback.
type RAGPipeline struct {
	loop    Loop
	bypass  *BypassPipeline
	logger  logger.ILogger
	metrics *metrics.Collector
	cfg     RAGConfig
}

func NewRAGPipeline(loop Loop, bypass *BypassPipeline, log logger.ILogger, collector *metrics.Collector, cfg RAGConfig) *RAGPipeline {
	if cfg.Mode == "" {
		cfg.Mode = ModeFull
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 30 * time.Second
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 15 * time.Second
	}
	return &RAGPipeline{loop: loop, bypass: bypass, logger: log, metrics: collector, cfg: cfg}
}

func (p *RAGPipeline) Respond(ctx context.Context, query string) (*Result, error) {
	if p.cfg.Mode == ModeMinimal {
		return p.minimal(ctx, query, map[string]interface{}{"mode": ModeMinimal}), nil
	}

	turnCtx, cancel := context.WithTimeout(ctx, p.cfg.TurnTimeout)
	defer cancel()

	res, err := p.loop.Run(turnCtx, query)
	if err != nil {
		p.logger.Warn("FINANCIAL", "Self-RAG turn did not finish, falling back", map[string]interface{}{
			"error":   err.Error(),
			"timeout": p.cfg.TurnTimeout.String(),
		})
		p.metrics.RecordFallback("turn_timeout")

		fallback := p.minimal(ctx, query, map[string]interface{}{
			"mode":                ModeFull,
			"timeout":             true,
			"fallback_to_minimal": true,
		})
		fallback.Reply = TimeoutPrefix + fallback.Reply
		return fallback, nil
	}

	meta := res.Metadata()
	meta["mode"] = ModeFull
	if res.Degraded {
		meta["error"] = true
	}
	return &Result{Reply: res.Answer, Metadata: meta}, nil
}

// minimal answers without retrieval under its own deadline, derived from the caller's context.
func (p *RAGPipeline) minimal(ctx context.Context, query string, meta map[string]interface{}) *Result {
	if text, ok := response.QuickResponse(query); ok {
		meta["quick_response"] = true
		return &Result{Reply: text, Metadata: meta}
	}

	fbCtx, cancel := context.WithTimeout(ctx, p.cfg.FallbackTimeout)
	defer cancel()

	reply, err := p.bypass.Execute(fbCtx, prompt.MinimalFinancialSystem, query, nil)
	if err != nil || reply == "" {
		meta["error"] = true
		if err != nil {
			meta["error_message"] = err.Error()
		}
		return &Result{Reply: response.DegradedAnswer, Metadata: meta}
	}
	meta["llm_used"] = true
	return &Result{Reply: reply, Metadata: meta}
}
