// Package metrics holds the prometheus collectors for the chat pipeline.
// Every Record method is safe on a nil *Collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	loopNodeVisits     *prometheus.CounterVec
	retrieverCalls     *prometheus.CounterVec
	gradeVerdicts      *prometheus.CounterVec
	rewrittenQueries   prometheus.Counter
	agentInvocations   *prometheus.CounterVec
	agentTurnDuration  *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// NewCollector registers every collector on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		loopNodeVisits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_rag_node_visits_total",
			Help:      "Self-RAG loop node visits",
		}, []string{"node"}),
		retrieverCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retriever_calls_total",
			Help:      "Index searches issued by the retrieve node",
		}, []string{"outcome"}),
		gradeVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grader_verdicts_total",
			Help:      "Relevance grader verdicts",
		}, []string{"verdict"}),
		rewrittenQueries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewritten_queries_total",
			Help:      "New search queries produced by the rewriter",
		}),
		agentInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_invocations_total",
			Help:      "Responder invocations by agent",
		}, []string{"agent"}),
		agentTurnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_turn_duration_seconds",
			Help:      "Wall-clock duration of one chat turn",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"agent"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Degraded answers by reason",
		}, []string{"reason"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (c *Collector) RecordNodeVisit(node string) {
	if c == nil {
		return
	}
	c.loopNodeVisits.WithLabelValues(node).Inc()
}

func (c *Collector) RecordRetrieverCall(found bool) {
	if c == nil {
		return
	}
	outcome := "empty"
	if found {
		outcome = "found"
	}
	c.retrieverCalls.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordGrade(verdict string) {
	if c == nil {
		return
	}
	c.gradeVerdicts.WithLabelValues(verdict).Inc()
}

func (c *Collector) RecordRewrites(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.rewrittenQueries.Add(float64(n))
}

func (c *Collector) RecordAgentTurn(agent string, duration time.Duration) {
	if c == nil {
		return
	}
	c.agentInvocations.WithLabelValues(agent).Inc()
	c.agentTurnDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

func (c *Collector) RecordFallback(reason string) {
	if c == nil {
		return
	}
	c.fallbacks.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordCacheLookup(cache string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	c.httpRequestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
