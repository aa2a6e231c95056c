package router

import (
	"context"
	"time"
	"unicode/utf8"

	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/metrics"
	"finagent-be/pkg/ai/pipeline"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/prompt"
	"finagent-be/pkg/rag/response"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Source records how the agent for a turn was chosen.
type Source string

const (
	SourceDirective Source = "directive"
	SourceRequested Source = "requested"
	SourceModel     Source = "model"
	SourceDefault   Source = "default"
)

// ExecuteResult is the unified result from any pipeline execution
type ExecuteResult struct {
	Reply    string
	Agent    Agent
	Source   Source
	Metadata map[string]interface{}
}

// Router picks one agent per turn and dispatches to its responder.
type Router struct {
	llmProvider llm.LLMProvider
	financial   pipeline.Responder
	sql         pipeline.Responder
	web         pipeline.Responder
	logger      logger.ILogger
	metrics     *metrics.Collector
	tracer      trace.Tracer
}

// NewRouter accepts a nil sql or web responder when that backend is unavailable.
func NewRouter(
	llmProvider llm.LLMProvider,
	financial pipeline.Responder,
	sql pipeline.Responder,
	web pipeline.Responder,
	log logger.ILogger,
	collector *metrics.Collector,
) *Router {
	return &Router{
		llmProvider: llmProvider,
		financial:   financial,
		sql:         sql,
		web:         web,
		logger:      log,
		metrics:     collector,
		tracer:      otel.Tracer("finagent-be/router"),
	}
}

// Route asks the model for an agent. Any failure or out-of-set answer selects the financial agent.
func (r *Router) Route(ctx context.Context, query string) (Agent, Source) {
	var out llm.RouterDecision
	err := llm.CompleteStructured(ctx, r.llmProvider, llm.RouterDecisionSchema, prompt.RouterSystem, query, &out)
	if err != nil {
		r.logger.Warn("ROUTER", "Routing failed, defaulting to financial", map[string]interface{}{
			"error": err.Error(),
		})
		r.metrics.RecordFallback("router")
		return AgentFinancial, SourceDefault
	}

	agent, ok := ParseAgent(out.Agent)
	if !ok {
		r.logger.Warn("ROUTER", "Unknown agent from model, defaulting to financial", map[string]interface{}{
			"agent": out.Agent,
		})
		r.metrics.RecordFallback("router")
		return AgentFinancial, SourceDefault
	}
	return agent, SourceModel
}

// Execute routes and runs one turn. A directive in the prompt wins over requested,
// which wins over the model's choice. requested may be empty.
func (r *Router) Execute(ctx context.Context, prompt string, requested Agent) (*ExecuteResult, error) {
	parsed := Parse(prompt)

	var (
		agent  Agent
		source Source
	)
	switch {
	case parsed.HasDirective():
		agent, source = parsed.Agent, SourceDirective
		if parsed.IsEmpty() {
			return &ExecuteResult{
				Reply:    helpMessage(agent),
				Agent:    agent,
				Source:   source,
				Metadata: map[string]interface{}{"help": true},
			}, nil
		}
	case requested != "":
		agent, source = requested, SourceRequested
	default:
		agent, source = r.Route(ctx, parsed.CleanPrompt)
	}

	r.logger.Info("ROUTER", "Agent selected", map[string]interface{}{
		"agent":  string(agent),
		"source": string(source),
		"query":  truncateLog(parsed.CleanPrompt, 50),
	})

	result, err := r.Dispatch(ctx, agent, parsed.CleanPrompt)
	if err != nil {
		return nil, err
	}
	result.Source = source
	return result, nil
}

// Dispatch runs the responder for agent without routing. Responder errors become a degraded reply.
func (r *Router) Dispatch(ctx context.Context, agent Agent, query string) (*ExecuteResult, error) {
	ctx, span := r.tracer.Start(ctx, "router.dispatch", trace.WithAttributes(attribute.String("agent", string(agent))))
	defer span.End()

	responder := r.responder(agent)
	if responder == nil {
		return &ExecuteResult{
			Reply:    "The " + string(agent) + " agent is not available right now.",
			Agent:    agent,
			Metadata: map[string]interface{}{"error": true, "unavailable": true},
		}, nil
	}

	start := time.Now()
	res, err := responder.Respond(ctx, query)
	r.metrics.RecordAgentTurn(string(agent), time.Since(start))
	if err != nil {
		r.logger.Error("ROUTER", "Responder failed", map[string]interface{}{
			"agent": string(agent),
			"error": err.Error(),
		})
		span.RecordError(err)
		return &ExecuteResult{
			Reply:    response.DegradedAnswer,
			Agent:    agent,
			Metadata: map[string]interface{}{"error": true, "error_message": err.Error()},
		}, nil
	}

	meta := res.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return &ExecuteResult{Reply: res.Reply, Agent: agent, Metadata: meta}, nil
}

func (r *Router) responder(agent Agent) pipeline.Responder {
	switch agent {
	case AgentSQL:
		return r.sql
	case AgentWeb:
		return r.web
	default:
		return r.financial
	}
}

func helpMessage(agent Agent) string {
	switch agent {
	case AgentSQL:
		return "SQL agent selected. Type your question after /sql to query the employee database.\n\nExample: /sql Who earns the most in Engineering?"
	case AgentWeb:
		return "Web agent selected. Type your question after /web to search the internet.\n\nExample: /web Latest Federal Reserve decision"
	default:
		return "Financial agent selected. Type your question after /financial to search financial filings.\n\nExample: /financial What was Amazon's revenue in Q4 2023?"
	}
}

// truncateLog truncates string for logging, keeping at most maxLen runes
func truncateLog(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
