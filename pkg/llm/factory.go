package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/insightloop/insight-engine/pkg/config"
)

// NewGenerator builds the provider client selected by configuration.
//
// Returns (nil, nil) when no provider is usable — no API key and no local
// endpoint — so callers can degrade to deterministic planning instead of
// failing at startup.
func NewGenerator(cfg *config.LLMConfig, logger *zap.Logger) (Generator, error) {
	apiKey := cfg.ResolveAPIKey()
	provider := strings.ToLower(cfg.Provider)

	clientCfg := &Config{
		Endpoint:    cfg.Endpoint,
		Model:       cfg.Model,
		APIKey:      apiKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	switch provider {
	case "anthropic":
		if apiKey == "" {
			logger.Warn("no Anthropic API key configured, query generation disabled")
			return nil, nil
		}
		return NewAnthropicClient(clientCfg, logger)
	case "openai", "":
		// Local OpenAI-compatible endpoints work without a key.
		if apiKey == "" && cfg.Endpoint == "" {
			logger.Warn("no OpenAI API key or endpoint configured, query generation disabled")
			return nil, nil
		}
		return NewClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
