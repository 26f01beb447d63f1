// Package types contains the shared transcript and provider types used by
// pkg/agent and the pkg/llm providers. It exists as its own package to break
// the import cycle between the two.
package types

import (
	"context"
	"time"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
)

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	// ID is the unique identifier the model assigned to this call. Tool
	// result messages must echo it back so the provider can pair them up.
	ID string

	// Name is the tool name.
	Name string

	// Input contains the tool arguments as decoded JSON.
	Input map[string]interface{}
}

// Message is a single entry in the transcript exchanged with the model.
type Message struct {
	// Role is the message sender (system, user, assistant, tool).
	Role string

	// Content is the message text.
	Content string

	// ToolCalls contains tool invocations (assistant messages only).
	ToolCalls []ToolCall

	// ToolCallID references the ToolCall this result answers (tool messages
	// only). Providers reject tool messages whose id does not match a call
	// in the immediately preceding assistant message.
	ToolCallID string

	// Timestamp when the message was created.
	Timestamp time.Time
}

// Usage tracks model token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// LLMResponse is a single model turn: either final text or tool calls.
type LLMResponse struct {
	// Content is the text response (empty when the model requested tools).
	Content string

	// ToolCalls contains requested tool executions, in the order the model
	// issued them.
	ToolCalls []ToolCall

	// StopReason indicates why the model stopped (end_turn, tool_use,
	// max_tokens, ...).
	StopReason string

	// Usage tracks token usage.
	Usage Usage
}

// LLMProvider is the model capability boundary: given a transcript and a tool
// catalog, return either a final text answer or a set of tool invocations.
type LLMProvider interface {
	// Chat sends a conversation to the model and returns the response.
	Chat(ctx context.Context, messages []Message, catalog []tools.Tool) (*LLMResponse, error)

	// Name returns the provider name.
	Name() string

	// Model returns the model identifier.
	Model() string
}

// TokenCallback is called for each token produced during streaming. It is
// invoked synchronously and must not block.
type TokenCallback func(token string)

// StreamingLLMProvider extends LLMProvider with incremental token delivery.
type StreamingLLMProvider interface {
	LLMProvider

	// ChatStream streams tokens as they are generated and returns the
	// complete response once the stream finishes.
	ChatStream(ctx context.Context, messages []Message, catalog []tools.Tool, cb TokenCallback) (*LLMResponse, error)
}

// SupportsStreaming reports whether a provider implements StreamingLLMProvider.
func SupportsStreaming(p LLMProvider) bool {
	_, ok := p.(StreamingLLMProvider)
	return ok
}
