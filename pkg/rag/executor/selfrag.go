// Package executor runs the self-RAG loop for one user turn:
// retrieve, route, grade, rewrite and generate until the quality check accepts the answer.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/metrics"
	"finagent-be/pkg/rag/classifier"
	"finagent-be/pkg/rag/grader"
	"finagent-be/pkg/rag/quality"
	"finagent-be/pkg/rag/response"
	"finagent-be/pkg/rag/rewriter"
	"finagent-be/pkg/rag/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const logModule = "SELF_RAG"

type Node string

const (
	NodeRetrieve           Node = "retrieve"
	NodeRouteAfterRetrieve Node = "route_after_retrieve"
	NodeGradeDocuments     Node = "grade_documents"
	NodeGenerate           Node = "generate"
	NodeTransformQuery     Node = "transform_query"
	NodeEnd                Node = "end"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (string, error)
}

type Grader interface {
	Grade(ctx context.Context, query, retrieved string) grader.Verdict
}

type Rewriter interface {
	Rewrite(ctx context.Context, query string, tried []string) []string
}

type Generator interface {
	Generate(ctx context.Context, query, docs string) response.Answer
}

type Config struct {
	MaxTransforms  int
	RetrieveGiveUp int
	TopK           int
	// Parallelism bounds concurrent retriever calls inside one retrieve node.
	Parallelism int
}

func DefaultConfig() Config {
	return Config{MaxTransforms: 3, RetrieveGiveUp: 2, TopK: 3, Parallelism: 3}
}

type Result struct {
	Answer           string
	Quick            bool
	Degraded         bool
	Context          state.RetrievedContext
	RewrittenQueries []string
	TransformCount   int
	RetrieveVisits   int
	RetrieverCalls   int
	Trace            []Node
	StopReason       quality.Reason
	State            *state.ConversationState
}

// Metadata is the per-turn summary attached to the assistant reply.
func (r *Result) Metadata() map[string]interface{} {
	trace := make([]string, len(r.Trace))
	for i, n := range r.Trace {
		trace[i] = string(n)
	}
	return map[string]interface{}{
		"has_documents":     r.Context.HasText(),
		"queries_generated": len(r.RewrittenQueries),
		"transform_count":   r.TransformCount,
		"trace":             trace,
		"quick_response":    r.Quick,
		"stop_reason":       string(r.StopReason),
	}
}

type SelfRAG struct {
	retriever Retriever
	grader    Grader
	rewriter  Rewriter
	generator Generator
	logger    logger.ILogger
	metrics   *metrics.Collector
	tracer    trace.Tracer
	cfg       Config
	now       func() time.Time
}

func NewSelfRAG(
	r Retriever,
	g Grader,
	rw Rewriter,
	gen Generator,
	log logger.ILogger,
	collector *metrics.Collector,
	cfg Config,
) *SelfRAG {
	def := DefaultConfig()
	if cfg.MaxTransforms <= 0 {
		cfg.MaxTransforms = def.MaxTransforms
	}
	if cfg.RetrieveGiveUp <= 0 {
		cfg.RetrieveGiveUp = def.RetrieveGiveUp
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = def.Parallelism
	}
	return &SelfRAG{
		retriever: r,
		grader:    g,
		rewriter:  rw,
		generator: gen,
		logger:    log,
		metrics:   collector,
		tracer:    otel.Tracer("finagent-be/selfrag"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run drives the loop to completion. It returns ctx.Err() together with the
// partial result whenever the context has expired by the time the loop stops.
func (s *SelfRAG) Run(ctx context.Context, query string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "self_rag.run")
	defer span.End()

	st := state.New(query, s.cfg.MaxTransforms, s.now())
	res := &Result{State: st}
	var calls atomic.Int64

	s.logger.Info(logModule, "Starting self-RAG turn", map[string]interface{}{
		"query":          query,
		"max_transforms": s.cfg.MaxTransforms,
	})

	node := NodeRetrieve
	for node != NodeEnd {
		if err := ctx.Err(); err != nil {
			s.finish(res, st, &calls)
			s.logger.Warn(logModule, "Turn deadline reached", map[string]interface{}{
				"node":  string(node),
				"error": err.Error(),
			})
			return res, err
		}

		res.Trace = append(res.Trace, node)
		s.metrics.RecordNodeVisit(string(node))

		nodeCtx, nodeSpan := s.tracer.Start(ctx, "self_rag."+string(node))
		next := s.step(nodeCtx, node, st, res, &calls)
		nodeSpan.SetAttributes(
			attribute.String("next", string(next)),
			attribute.Int("transform_count", st.TransformCount),
		)
		nodeSpan.End()

		s.logger.Debug(logModule, "Transition", map[string]interface{}{
			"from": string(node),
			"to":   string(next),
		})
		node = next
	}
	res.Trace = append(res.Trace, NodeEnd)
	s.finish(res, st, &calls)

	// a node that ran past the deadline degrades its output; report it like any other expiry
	if err := ctx.Err(); err != nil {
		span.SetAttributes(attribute.Bool("deadline_exceeded", true))
		s.logger.Warn(logModule, "Turn deadline reached during the last node", map[string]interface{}{
			"error": err.Error(),
		})
		return res, err
	}

	span.SetAttributes(
		attribute.Int("retrieve_visits", res.RetrieveVisits),
		attribute.Int("transform_count", res.TransformCount),
		attribute.String("stop_reason", string(res.StopReason)),
	)
	s.logger.Info(logModule, "Self-RAG turn finished", map[string]interface{}{
		"retrieve_visits": res.RetrieveVisits,
		"transform_count": res.TransformCount,
		"stop_reason":     string(res.StopReason),
	})
	return res, nil
}

func (s *SelfRAG) step(ctx context.Context, node Node, st *state.ConversationState, res *Result, calls *atomic.Int64) Node {
	switch node {
	case NodeRetrieve:
		res.RetrieveVisits++
		s.retrieve(ctx, st, calls)
		return NodeRouteAfterRetrieve
	case NodeRouteAfterRetrieve:
		return s.routeAfterRetrieve(st)
	case NodeGradeDocuments:
		return s.gradeDocuments(ctx, st)
	case NodeTransformQuery:
		s.transformQuery(ctx, st)
		return NodeRetrieve
	case NodeGenerate:
		s.generate(ctx, st, res)
		decision, reason := quality.Check(st)
		res.StopReason = reason
		s.logger.Info(logModule, "Quality check", map[string]interface{}{
			"decision": decision.String(),
			"reason":   string(reason),
		})
		if decision == quality.Retry {
			return NodeTransformQuery
		}
		return NodeEnd
	default:
		return NodeEnd
	}
}

func (s *SelfRAG) finish(res *Result, st *state.ConversationState, calls *atomic.Int64) {
	res.Context = st.Context
	res.RewrittenQueries = append([]string(nil), st.RewrittenQueries...)
	res.TransformCount = st.TransformCount
	res.RetrieverCalls = int(calls.Load())
}

func (s *SelfRAG) retrieve(ctx context.Context, st *state.ConversationState, calls *atomic.Int64) {
	query := st.Query()

	if !classifier.ShouldRetrieveDocuments(query) {
		st.Context = state.SkippedContext()
		s.logger.Info(logModule, "Skipping retrieval", map[string]interface{}{"query": query})
		return
	}
	if st.TransformsExhausted() {
		st.Context = state.EmptyContext()
		return
	}

	queries := st.RewrittenQueries
	if len(queries) == 0 {
		queries = []string{query}
	}

	results := make([]string, len(queries))
	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			calls.Add(1)
			text, err := s.retriever.Retrieve(ctx, q, s.cfg.TopK)
			if err != nil {
				s.logger.Warn(logModule, "Retriever call failed", map[string]interface{}{
					"query": q,
					"error": err.Error(),
				})
				s.metrics.RecordRetrieverCall(false)
				return nil
			}
			s.metrics.RecordRetrieverCall(strings.TrimSpace(text) != "")
			results[i] = text
			return nil
		})
	}
	_ = g.Wait()

	var sections []string
	for i, text := range results {
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("## Query %d: %s\n\n### Retrieved Documents:\n%s", i+1, queries[i], text))
	}
	st.Context = state.TextContext(strings.Join(sections, "\n\n"))

	s.logger.Info(logModule, "Retrieval complete", map[string]interface{}{
		"queries":  len(queries),
		"sections": len(sections),
	})
}

// routeAfterRetrieve never sends the loop to transform_query once the
// transform budget is spent, whatever RetrieveGiveUp is set to.
func (s *SelfRAG) routeAfterRetrieve(st *state.ConversationState) Node {
	if st.Context.IsSkipped() {
		return NodeGenerate
	}
	if !classifier.ShouldRetrieveDocuments(st.Query()) {
		return NodeGenerate
	}
	if st.Context.HasText() {
		return NodeGradeDocuments
	}
	if st.TransformCount >= s.cfg.RetrieveGiveUp || st.TransformsExhausted() {
		return NodeGenerate
	}
	return NodeTransformQuery
}

func (s *SelfRAG) gradeDocuments(ctx context.Context, st *state.ConversationState) Node {
	query := st.Query()
	if !classifier.ShouldRetrieveDocuments(query) {
		st.Context = state.EmptyContext()
		return NodeGenerate
	}

	verdict := s.grader.Grade(ctx, query, st.Context.Text())
	s.metrics.RecordGrade(string(verdict))
	if verdict == grader.Relevant {
		return NodeGenerate
	}

	st.Context = state.EmptyContext()
	if st.TransformsExhausted() {
		return NodeGenerate
	}
	return NodeTransformQuery
}

func (s *SelfRAG) transformQuery(ctx context.Context, st *state.ConversationState) {
	st.TransformCount++
	fresh := s.rewriter.Rewrite(ctx, st.Query(), st.RewrittenQueries)
	st.RewrittenQueries = rewriter.MergeQueries(st.RewrittenQueries, fresh)
	s.metrics.RecordRewrites(len(fresh))

	s.logger.Info(logModule, "Query transformed", map[string]interface{}{
		"transform_count": st.TransformCount,
		"new_queries":     fresh,
	})
}

func (s *SelfRAG) generate(ctx context.Context, st *state.ConversationState, res *Result) {
	docs := ""
	if st.Context.HasText() {
		docs = st.Context.Text()
	}

	ans := s.generator.Generate(ctx, st.Query(), docs)
	meta := map[string]interface{}{
		"has_context":     docs != "",
		"quick_response":  ans.Quick,
		"transform_count": st.TransformCount,
	}
	if ans.Err != nil {
		meta["error"] = ans.Err.Error()
	}
	st.Append(state.Message{
		Role:      state.RoleAssistant,
		Content:   ans.Text,
		Timestamp: s.now(),
		Metadata:  meta,
	})

	res.Answer = ans.Text
	res.Quick = ans.Quick
	res.Degraded = ans.Degraded()
}
