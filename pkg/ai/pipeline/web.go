package pipeline

import (
	"context"
	"regexp"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/rag/prompt"
	"finagent-be/pkg/websearch"
)

const maxSources = 5

var urlPattern = regexp.MustCompile(`https?://\S+`)

type WebPipeline struct {
	searcher   websearch.Searcher
	llm        llm.LLMProvider
	logger     logger.ILogger
	maxResults int
}

func NewWebPipeline(searcher websearch.Searcher, provider llm.LLMProvider, log logger.ILogger, maxResults int) *WebPipeline {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebPipeline{searcher: searcher, llm: provider, logger: log, maxResults: maxResults}
}

func (p *WebPipeline) Respond(ctx context.Context, query string) (*Result, error) {
	meta := map[string]interface{}{"query_type": "web_search"}

	results, err := p.searcher.Search(ctx, query, p.maxResults)
	if err != nil {
		p.logger.Warn("WEB_AGENT", "Web search failed", map[string]interface{}{"error": err.Error()})
		meta["search_error"] = err.Error()
	}
	meta["result_count"] = len(results)
	formatted := websearch.Format(query, results)

	reply, err := llm.Complete(ctx, p.llm, prompt.WebSystem, prompt.WebUser(query, formatted))
	reply = llm.StripThinking(reply)
	if err != nil || reply == "" {
		if err != nil {
			p.logger.Warn("WEB_AGENT", "Synthesis failed, returning raw results", map[string]interface{}{"error": err.Error()})
		}
		reply = formatted
	}

	meta["sources"] = ExtractSources(reply)
	return &Result{Reply: reply, Metadata: meta}, nil
}

// ExtractSources returns up to five URLs in order of appearance.
func ExtractSources(text string) []string {
	sources := urlPattern.FindAllString(text, maxSources)
	if sources == nil {
		return []string{}
	}
	return sources
}
