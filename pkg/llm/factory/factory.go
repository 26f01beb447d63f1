// Package factory builds a model provider from configuration.
package factory

import (
	"fmt"
	"time"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/llm/anthropic"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/llm/openai"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/types"
)

// Config selects and configures a model provider.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	Model     string // provider default when empty
	Endpoint  string // provider default when empty
	MaxTokens int
	Timeout   time.Duration
}

// New constructs the provider named by cfg.Provider.
func New(cfg Config) (types.LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm provider %q: missing API key", cfg.Provider)
	}

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Endpoint:  cfg.Endpoint,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		}), nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Endpoint:  cfg.Endpoint,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want openai or anthropic)", cfg.Provider)
	}
}
