// Package grader asks the model whether retrieved context is relevant to the query.
package grader

import (
	"context"
	"strings"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/prompt"
)

type Verdict string

const (
	Relevant    Verdict = "yes"
	NotRelevant Verdict = "no"
)

type Grader struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func New(provider llm.LLMProvider, log logger.ILogger) *Grader {
	return &Grader{llm: provider, logger: log}
}

// Grade never returns an error. Empty context, model errors and unparsable
// answers all grade as NotRelevant.
func (g *Grader) Grade(ctx context.Context, query, retrieved string) Verdict {
	if strings.TrimSpace(retrieved) == "" {
		return NotRelevant
	}

	var out llm.BinaryScore
	err := llm.CompleteStructured(ctx, g.llm, llm.GradeDocumentsSchema, prompt.GraderSystem, prompt.GraderUser(retrieved, query), &out)
	if err != nil {
		g.logger.Warn("GRADER", "Grading failed, treating as not relevant", map[string]interface{}{
			"error": err.Error(),
		})
		return NotRelevant
	}

	verdict := NotRelevant
	if strings.EqualFold(strings.TrimSpace(out.BinaryScore), string(Relevant)) {
		verdict = Relevant
	}

	g.logger.Info("GRADER", "Relevance graded", map[string]interface{}{
		"verdict": string(verdict),
	})
	return verdict
}
