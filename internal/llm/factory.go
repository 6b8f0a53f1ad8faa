package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config into an llm.Config.
// Proxy settings come from the http section so every outbound call shares them.
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	return ApplyEnv(Config{
		Provider:          llmConfig.Provider,
		Model:             llmConfig.Model,
		APIKey:            llmConfig.APIKey,
		BaseURL:           llmConfig.BaseURL,
		Timeout:           llmConfig.Timeout,
		MaxTokens:         llmConfig.MaxTokens,
		MaxInputChars:     llmConfig.MaxInputChars,
		Temperature:       llmConfig.Temperature,
		StrictFacts:       llmConfig.StrictFacts,
		RequestsPerSecond: llmConfig.RequestsPerSecond,
		Burst:             llmConfig.Burst,
		HTTPProxy:         httpConfig.HTTPProxy,
		HTTPSProxy:        httpConfig.HTTPSProxy,
		NoProxy:           httpConfig.NoProxy,
	})
}

// ApplyEnv fills credentials and endpoints the config leaves empty from the
// provider's conventional environment variables
func ApplyEnv(config Config) Config {
	switch strings.ToLower(config.Provider) {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if config.BaseURL == "" {
			config.BaseURL = os.Getenv("OPENAI_BASE_URL")
		}
	case "anthropic", "claude":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
	return config
}
