package factory

import (
	"fmt"

	"finagent-be/internal/config"
	"finagent-be/pkg/llm"
	"finagent-be/pkg/llm/huggingface"
	"finagent-be/pkg/llm/ollama"
)

func NewLLMProvider(cfg config.AIConfig) (llm.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.LLMModel, cfg.Temperature), nil
	case "huggingface", "openai":
		return huggingface.NewHuggingFaceProvider(cfg.LLMApiKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
