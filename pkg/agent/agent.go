// Package agent implements the orchestration loop that answers a question:
// build the transcript, call the model, execute the tools it requests, fold
// the results back in, and stream the final answer as events.
package agent

import (
	"context"
	"encoding/json"

	"github.com/20arjuna/UAVLogViewer-AppServer/internal/log"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/history"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/session"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/types"
	"go.uber.org/zap"
)

// Config controls loop behavior.
type Config struct {
	// MaxIterations bounds the model-call / tool-execution cycle for one
	// question.
	MaxIterations int

	// HistoryLimit is how many prior turns are replayed into the transcript.
	HistoryLimit int

	// Retry is the backoff policy for model calls.
	Retry RetryConfig
}

// DefaultConfig returns the standard loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 10,
		HistoryLimit:  20,
		Retry:         DefaultRetryConfig(),
	}
}

// Agent drives one question at a time through the tool-calling loop. It is
// stateless across questions; concurrent Ask invocations are independent.
type Agent struct {
	llm      types.LLMProvider
	registry *tools.Registry
	executor *tools.Executor
	history  *history.History
	config   Config
}

// New creates an agent over the given provider, tool registry, and
// conversation store.
func New(llm types.LLMProvider, registry *tools.Registry, hist *history.History, config Config) *Agent {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultConfig().MaxIterations
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return &Agent{
		llm:      llm,
		registry: registry,
		executor: tools.NewExecutor(registry),
		history:  hist,
		config:   config,
	}
}

// Ask answers one question and returns the event stream. The channel is
// closed after the terminal done (or error) event. The file id is passed
// explicitly per invocation; concurrent sessions against different files do
// not share state. Cancelling ctx stops the loop at the next emission
// boundary.
func (a *Agent) Ask(ctx context.Context, sessionID, fileID, question string) <-chan Event {
	events := make(chan Event, 32)
	go func() {
		defer close(events)
		a.run(ctx, sessionID, fileID, question, events)
	}()
	return events
}

// emit delivers one event, eagerly. Reports false when the caller is gone.
func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Agent) run(ctx context.Context, sessionID, fileID, question string, events chan<- Event) {
	logger := log.With(
		zap.String("session_id", sessionID),
		zap.String("file_id", fileID))

	// Tools resolve the active file from context, not model arguments.
	ctx = session.WithSessionID(ctx, sessionID)
	ctx = session.WithFileID(ctx, fileID)

	transcript := a.buildTranscript(ctx, sessionID, fileID, question)
	if err := a.history.Append(ctx, sessionID, "user", question); err != nil {
		logger.Warn("failed to persist question", zap.Error(err))
	}

	// With no active file the model is instructed not to use tools; an empty
	// catalog makes that structural.
	var catalog []tools.Tool
	if fileID != "" {
		catalog = a.registry.ListTools()
	}

	for iteration := 0; iteration < a.config.MaxIterations; iteration++ {
		resp, err := a.chatWithRetry(ctx, transcript, catalog)
		if err != nil {
			logger.Error("model call failed", zap.Int("iteration", iteration), zap.Error(err))
			if emit(ctx, events, TokenEvent(friendlyModelError(err))) {
				emit(ctx, events, DoneEvent())
			}
			return
		}

		if len(resp.ToolCalls) == 0 {
			a.streamAnswer(ctx, logger, sessionID, transcript, catalog, resp, events)
			return
		}

		// Fold the assistant's tool-call turn in, then execute each call in
		// the order the model issued them.
		transcript = append(transcript, types.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			if ctx.Err() != nil {
				logger.Info("loop cancelled during tool execution")
				return
			}

			result := a.executor.Execute(ctx, tc.Name, tc.Input)
			logger.Debug("tool executed",
				zap.String("tool", tc.Name),
				zap.Bool("success", result.Success),
				zap.Int64("elapsed_ms", result.ExecutionTimeMs))

			// Commands go to the caller before the acknowledgement is folded
			// into the transcript, preserving emission order.
			if result.Command != nil {
				if !emit(ctx, events, CommandEvent(result.Command.Action, result.Command.Params)) {
					return
				}
			}

			transcript = append(transcript, types.Message{
				Role:       "tool",
				Content:    renderResult(result),
				ToolCallID: tc.ID,
			})
		}
	}

	// Liveness bound reached: explain and terminate cleanly.
	logger.Warn("iteration bound reached", zap.Int("max_iterations", a.config.MaxIterations))
	if emit(ctx, events, TokenEvent(msgIterationLimit)) {
		if err := a.history.Append(ctx, sessionID, "assistant", msgIterationLimit); err != nil {
			logger.Warn("failed to persist answer", zap.Error(err))
		}
		emit(ctx, events, DoneEvent())
	}
}

// buildTranscript assembles system prompt, replayed history (oldest first),
// and the new question.
func (a *Agent) buildTranscript(ctx context.Context, sessionID, fileID, question string) []types.Message {
	transcript := []types.Message{
		{Role: "system", Content: buildSystemPrompt(fileID)},
	}

	turns, err := a.history.Recent(ctx, sessionID, a.config.HistoryLimit)
	if err != nil {
		log.Warn("failed to load conversation history",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	for _, turn := range turns {
		transcript = append(transcript, types.Message{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	return append(transcript, types.Message{Role: "user", Content: question})
}

// streamAnswer delivers the final answer. Streaming providers are re-invoked
// in streaming mode over the same transcript so tokens arrive incrementally;
// others emit the answer as a single token.
func (a *Agent) streamAnswer(ctx context.Context, logger *zap.Logger, sessionID string,
	transcript []types.Message, catalog []tools.Tool, resp *types.LLMResponse, events chan<- Event) {

	answer := resp.Content

	if streamer, ok := a.llm.(types.StreamingLLMProvider); ok {
		streamResp, err := streamer.ChatStream(ctx, transcript, catalog, func(token string) {
			emit(ctx, events, TokenEvent(token))
		})
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("loop cancelled during answer streaming")
				return
			}
			logger.Error("streaming answer failed", zap.Error(err))
			if emit(ctx, events, TokenEvent(friendlyModelError(err))) {
				emit(ctx, events, DoneEvent())
			}
			return
		}
		answer = streamResp.Content
	} else if answer != "" {
		if !emit(ctx, events, TokenEvent(answer)) {
			return
		}
	}

	if err := a.history.Append(ctx, sessionID, "assistant", answer); err != nil {
		logger.Warn("failed to persist answer", zap.Error(err))
	}
	emit(ctx, events, DoneEvent())
}

// renderResult serializes a tool outcome for transcript inclusion. Failures
// and commands are data the model can read; commands fold in as a short
// acknowledgement since their payload already went to the caller.
func renderResult(result *tools.Result) string {
	switch {
	case result.Error != nil:
		return tools.MarshalData(map[string]interface{}{
			"success": false,
			"error":   result.Error,
		})
	case result.Command != nil:
		return tools.MarshalData(map[string]interface{}{
			"success":      true,
			"command_sent": result.Command.Action,
			"params":       result.Command.Params,
		})
	default:
		return tools.MarshalData(result.Data)
	}
}

// MarshalEvent renders an event as JSON for wire transports.
func MarshalEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}
