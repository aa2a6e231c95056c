// Package rewriter decomposes a query into new search queries after poor retrieval.
package rewriter

import (
	"context"
	"strings"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/prompt"
)

const maxNewQueries = 3

type Rewriter struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func New(provider llm.LLMProvider, log logger.ILogger) *Rewriter {
	return &Rewriter{llm: provider, logger: log}
}

// Rewrite returns 0-3 new queries. A model failure yields none and is not an error.
func (r *Rewriter) Rewrite(ctx context.Context, query string, tried []string) []string {
	var out llm.SearchQueries
	err := llm.CompleteStructured(ctx, r.llm, llm.SearchQueriesSchema, prompt.RewriterSystem, prompt.RewriterUser(query, tried), &out)
	if err != nil {
		r.logger.Warn("REWRITER", "Query rewrite failed, keeping previous queries", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	queries := make([]string, 0, maxNewQueries)
	for _, q := range out.Queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == maxNewQueries {
			break
		}
	}
	return queries
}

// MergeQueries appends fresh to tried, dropping blanks and exact duplicates while keeping
// first-seen order. The result is a new slice.
func MergeQueries(tried, fresh []string) []string {
	merged := make([]string, 0, len(tried)+len(fresh))
	seen := make(map[string]struct{}, len(tried)+len(fresh))
	for _, list := range [][]string{tried, fresh} {
		for _, q := range list {
			if strings.TrimSpace(q) == "" {
				continue
			}
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			merged = append(merged, q)
		}
	}
	return merged
}
