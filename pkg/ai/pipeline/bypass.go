package pipeline

import (
	"context"

	"finagent-be/internal/pkg/logger"
	"finagent-be/pkg/llm"
)

// BypassPipeline answers with the model alone, without retrieval. The
// financial agent uses it in minimal mode and as its timeout fallback.
type BypassPipeline struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewBypassPipeline(llmProvider llm.LLMProvider, log logger.ILogger) *BypassPipeline {
	return &BypassPipeline{
		llmProvider: llmProvider,
		logger:      log,
	}
}

// Execute sends system, then history, then the query.
func (p *BypassPipeline) Execute(
	ctx context.Context,
	system string,
	query string,
	history []llm.Message,
) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	if system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	p.logger.Debug("BYPASS", "Executing model-only answer", map[string]interface{}{
		"messages": len(messages),
	})

	response, err := p.llmProvider.Chat(ctx, messages)
	if err != nil {
		p.logger.Error("BYPASS", "Model call failed", map[string]interface{}{"error": err.Error()})
		return "", err
	}

	return llm.StripThinking(response), nil
}
