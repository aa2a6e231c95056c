// Package response produces the final answer of a self-RAG turn.
package response

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/prompt"
)

// DegradedAnswer is shown whenever the model cannot produce an answer.
const DegradedAnswer = "I'm having trouble processing your request. Please try again or use a simpler query."

const debugFileName = "self_rag_answer.md"

var errEmptyAnswer = errors.New("model returned an empty answer")

type Answer struct {
	Text string
	// Quick is set when Text came from the canned table and no model call was made.
	Quick bool
	// Err is the underlying failure when Text is DegradedAnswer.
	Err error
}

func (a Answer) Degraded() bool {
	return a.Err != nil
}

type Generator struct {
	llm      llm.LLMProvider
	logger   logger.ILogger
	debugDir string
}

// NewGenerator writes the last answer under debugDir when it is non-empty.
func NewGenerator(provider llm.LLMProvider, log logger.ILogger, debugDir string) *Generator {
	return &Generator{llm: provider, logger: log, debugDir: debugDir}
}

// Generate selects the with-context policy iff docs is non-empty.
func (g *Generator) Generate(ctx context.Context, query, docs string) Answer {
	if text, ok := QuickResponse(query); ok {
		g.logger.Info("GENERATOR", "Using quick response", map[string]interface{}{"query": query})
		return Answer{Text: text, Quick: true}
	}

	system := prompt.NoContextSystem
	if strings.TrimSpace(docs) != "" {
		system = prompt.WithContextSystem
	} else {
		docs = ""
	}

	raw, err := llm.Complete(ctx, g.llm, system, prompt.GeneratorUser(query, docs))
	if err == nil {
		raw = llm.StripThinking(raw)
		if raw == "" {
			err = errEmptyAnswer
		}
	}
	if err != nil {
		g.logger.Error("GENERATOR", "Answer generation failed", map[string]interface{}{
			"error":       err.Error(),
			"has_context": docs != "",
		})
		return Answer{Text: DegradedAnswer, Err: err}
	}

	g.writeDebug(query, raw)
	return Answer{Text: raw}
}

func (g *Generator) writeDebug(query, answer string) {
	if g.debugDir == "" {
		return
	}
	dir := g.debugDir
	go func() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
		content := "Query: " + query + "\n\n" + answer
		if err := os.WriteFile(filepath.Join(dir, debugFileName), []byte(content), 0o644); err != nil {
			g.logger.Debug("GENERATOR", "Debug answer not written", map[string]interface{}{"error": err.Error()})
		}
	}()
}
