package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/20arjuna/UAVLogViewer-AppServer/internal/log"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/types"
	"go.uber.org/zap"
)

// RetryConfig controls exponential backoff around model calls.
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryConfig returns the standard backoff policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:      true,
		MaxRetries:   2,
		InitialDelay: time.Second,
		Multiplier:   2.0,
		MaxDelay:     10 * time.Second,
	}
}

// chatWithRetry wraps model Chat calls with exponential backoff.
func (a *Agent) chatWithRetry(ctx context.Context, messages []types.Message, catalog []tools.Tool) (*types.LLMResponse, error) {
	if !a.config.Retry.Enabled || a.config.Retry.MaxRetries == 0 {
		return a.llm.Chat(ctx, messages, catalog)
	}

	var lastErr error
	delay := a.config.Retry.InitialDelay

	for attempt := 0; attempt <= a.config.Retry.MaxRetries; attempt++ {
		response, err := a.llm.Chat(ctx, messages, catalog)
		if err == nil {
			if attempt > 0 {
				log.Info("model call retry succeeded", zap.Int("attempt", attempt+1))
			}
			return response, nil
		}
		lastErr = err

		// Cancellation is the caller's decision; never retry past it.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		if attempt >= a.config.Retry.MaxRetries {
			break
		}

		log.Warn("model call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", a.config.Retry.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("model call failed: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * a.config.Retry.Multiplier)
		if delay > a.config.Retry.MaxDelay {
			delay = a.config.Retry.MaxDelay
		}
	}

	log.Error("model call retries exhausted",
		zap.Int("max_retries", a.config.Retry.MaxRetries),
		zap.Error(lastErr))
	return nil, fmt.Errorf("model call failed after %d attempts: %w",
		a.config.Retry.MaxRetries+1, lastErr)
}
