// Package retriever turns a query into formatted, re-ranked document text.
package retriever

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/index"
)

const debugFileName = "retrieved_reranked_docs.md"

type Config struct {
	// OverFetch multiplies k for the index search before re-ranking.
	OverFetch int
	// DebugDir receives the last ranked set. Empty disables the artifact.
	DebugDir string
}

type Retriever struct {
	index  index.Index
	llm    llm.LLMProvider
	logger logger.ILogger
	cfg    Config
}

func New(idx index.Index, provider llm.LLMProvider, log logger.ILogger, cfg Config) *Retriever {
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = 10
	}
	return &Retriever{index: idx, llm: provider, logger: log, cfg: cfg}
}

// Retrieve returns "" when nothing matches. Errors are index failures only.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	filters := ExtractFilters(query)
	keywords := r.RankingKeywords(ctx, query)

	results, err := r.index.Search(ctx, query, filters, k*r.cfg.OverFetch)
	if err != nil {
		return "", fmt.Errorf("index search: %w", err)
	}

	docs := RankByKeywords(results, keywords, k)

	r.logger.Info("RETRIEVER", "Documents retrieved", map[string]interface{}{
		"query":    query,
		"filters":  filters.String(),
		"keywords": keywords,
		"fetched":  len(results),
		"kept":     len(docs),
	})

	if len(docs) == 0 {
		return "", nil
	}

	text := FormatDocuments(docs)
	r.writeDebug(text)
	return text, nil
}

// FormatDocuments renders "--- Document i ---", sorted metadata lines, then the content.
func FormatDocuments(docs []index.Document) string {
	blocks := make([]string, 0, len(docs))
	for i, d := range docs {
		lines := []string{fmt.Sprintf("--- Document %d ---", i+1)}

		keys := make([]string, 0, len(d.Metadata))
		for key := range d.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", key, d.Metadata[key]))
		}

		lines = append(lines, "\nContent:\n"+d.Content)
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n")
}

func (r *Retriever) writeDebug(text string) {
	if r.cfg.DebugDir == "" {
		return
	}
	dir := r.cfg.DebugDir
	go func() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
		if err := os.WriteFile(filepath.Join(dir, debugFileName), []byte(text), 0o644); err != nil {
			r.logger.Debug("RETRIEVER", "Debug artifact not written", map[string]interface{}{"error": err.Error()})
		}
	}()
}
