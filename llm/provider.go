package llm

import (
	"fmt"

	"github.com/skosovsky/agentcore/config"
)

// New builds the provider named by cfg, wrapped with retries when cfg.MaxRetries
// allows more than one attempt.
func New(cfg *config.LLMConfig) (Completer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm: nil config")
	}
	var c Completer
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c = NewOpenAI(OpenAIOptions{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout.Std(),
		})
	case config.ProviderAnthropic:
		c = NewAnthropic(AnthropicOptions{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout.Std(),
		})
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	return WithRetry(c, cfg.MaxRetries+1), nil
}
