// Package openai implements the model provider interface over OpenAI's chat
// completions API, including token streaming and tool calling.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/types"
)

// Client implements the LLMProvider interface for OpenAI's API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	maxTokens  int
}

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey    string
	Model     string        // Default: gpt-4o
	Endpoint  string        // Default: https://api.openai.com/v1/chat/completions
	Timeout   time.Duration // Default: 60s
	MaxTokens int           // Default: 4096
}

// Default OpenAI configuration values.
const (
	DefaultModel     = "gpt-4o"
	DefaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout   = 60 * time.Second
	DefaultMaxTokens = 4096
)

// NewClient creates a new OpenAI client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	return &Client{
		apiKey:    config.APIKey,
		model:     config.Model,
		endpoint:  config.Endpoint,
		maxTokens: config.MaxTokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to OpenAI and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, catalog []tools.Tool) (*types.LLMResponse, error) {
	req := &ChatCompletionRequest{
		Model:     c.model,
		Messages:  c.convertMessages(messages),
		MaxTokens: c.maxTokens,
	}
	if apiTools := c.convertTools(catalog); len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}
	return c.convertResponse(resp), nil
}

// convertMessages converts transcript messages to OpenAI format.
func (c *Client) convertMessages(messages []types.Message) []ChatMessage {
	var apiMessages []ChatMessage

	for _, msg := range messages {
		switch msg.Role {
		case "system", "user":
			apiMessages = append(apiMessages, ChatMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})

		case "assistant":
			apiMsg := ChatMessage{Role: "assistant"}
			if msg.Content != "" {
				apiMsg.Content = msg.Content
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Input)
				if err != nil {
					argsJSON = []byte("{}")
				}
				apiMsg.ToolCalls = append(apiMsg.ToolCalls, ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			apiMessages = append(apiMessages, apiMsg)

		case "tool":
			apiMessages = append(apiMessages, ChatMessage{
				Role:       "tool",
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}

	return apiMessages
}

// convertTools converts the tool catalog to OpenAI function definitions.
func (c *Client) convertTools(catalog []tools.Tool) []Tool {
	var apiTools []Tool

	for _, tool := range catalog {
		apiTool := Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
			},
		}

		if schema := tool.InputSchema(); schema != nil {
			params := map[string]interface{}{"type": schema.Type}
			if schema.Type == "" {
				params["type"] = "object"
			}
			if schema.Properties != nil {
				params["properties"] = convertSchemaProperties(schema.Properties)
			}
			if len(schema.Required) > 0 {
				params["required"] = schema.Required
			}
			apiTool.Function.Parameters = params
		}

		apiTools = append(apiTools, apiTool)
	}

	return apiTools
}

// convertSchemaProperties converts JSONSchema properties to OpenAI format.
func convertSchemaProperties(props map[string]*tools.JSONSchema) map[string]interface{} {
	result := make(map[string]interface{})
	for key, schema := range props {
		propMap := map[string]interface{}{"type": schema.Type}
		if schema.Description != "" {
			propMap["description"] = schema.Description
		}
		if schema.Enum != nil {
			propMap["enum"] = schema.Enum
		}
		if schema.Minimum != nil {
			propMap["minimum"] = *schema.Minimum
		}
		if schema.Properties != nil {
			propMap["properties"] = convertSchemaProperties(schema.Properties)
		}
		if schema.Items != nil {
			itemMap := map[string]interface{}{"type": schema.Items.Type}
			if schema.Items.Description != "" {
				itemMap["description"] = schema.Items.Description
			}
			propMap["items"] = itemMap
			if schema.MinItems != nil {
				propMap["minItems"] = *schema.MinItems
			}
		}
		result[key] = propMap
	}
	return result
}

// convertResponse converts an OpenAI response to the provider format.
func (c *Client) convertResponse(resp *ChatCompletionResponse) *types.LLMResponse {
	llmResp := &types.LLMResponse{
		Usage: types.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		llmResp.StopReason = mapFinishReason(choice.FinishReason)

		if str, ok := choice.Message.Content.(string); ok {
			llmResp.Content = str
		}

		for _, tc := range choice.Message.ToolCalls {
			llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: parseArguments(tc.Function.Arguments),
			})
		}
	}

	return llmResp
}

// parseArguments parses a function-call argument payload. Unparseable
// payloads are preserved raw so the failure is visible downstream.
func parseArguments(args string) map[string]interface{} {
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(args), &input); err != nil {
		return map[string]interface{}{"_raw": args}
	}
	return input
}

// mapFinishReason maps OpenAI finish_reason to the provider stop_reason.
func mapFinishReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	case "content_filter":
		return "content_filter"
	default:
		return finishReason
	}
}

// ChatStream implements token-by-token streaming using the chat completions
// API with stream=true. The tokenCallback is called for each token received.
func (c *Client) ChatStream(ctx context.Context, messages []types.Message,
	catalog []tools.Tool, tokenCallback types.TokenCallback) (*types.LLMResponse, error) {

	req := &ChatCompletionRequest{
		Model:     c.model,
		Messages:  c.convertMessages(messages),
		MaxTokens: c.maxTokens,
		Stream:    true,
	}
	if apiTools := c.convertTools(catalog); len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var contentBuffer strings.Builder
	usage := types.Usage{}
	var finishReason string
	tokenCount := 0
	toolCallMap := make(map[int]*types.ToolCall) // tool calls accumulate by stream index

	scanner := bufio.NewScanner(httpResp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// SSE format: "data: <json>" or "data: [DONE]"
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		jsonData := strings.TrimPrefix(line, "data: ")
		if jsonData == "[DONE]" {
			break
		}

		var chunk ChatCompletionStreamChunk
		if err := json.Unmarshal([]byte(jsonData), &chunk); err != nil {
			// Skip malformed chunks but continue processing
			continue
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]

			if str, ok := choice.Delta.Content.(string); ok && str != "" {
				contentBuffer.WriteString(str)
				tokenCount++
				if tokenCallback != nil {
					tokenCallback(str)
				}
			}

			for _, tcDelta := range choice.Delta.ToolCalls {
				idx := tcDelta.Index
				if _, exists := toolCallMap[idx]; !exists {
					toolCallMap[idx] = &types.ToolCall{
						ID:    tcDelta.ID,
						Name:  tcDelta.Function.Name,
						Input: make(map[string]interface{}),
					}
				}
				// Arguments arrive in fragments; accumulate and parse at
				// end of stream.
				if tcDelta.Function.Arguments != "" {
					tc := toolCallMap[idx]
					if existing, ok := tc.Input["_args"].(string); ok {
						tc.Input["_args"] = existing + tcDelta.Function.Arguments
					} else {
						tc.Input["_args"] = tcDelta.Function.Arguments
					}
				}
			}

			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}

		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
			usage.TotalTokens = chunk.Usage.TotalTokens
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading stream: %w", err)
	}

	// Assemble tool calls in the order the model issued them.
	indices := make([]int, 0, len(toolCallMap))
	for idx := range toolCallMap {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var toolCalls []types.ToolCall
	for _, idx := range indices {
		tc := toolCallMap[idx]
		if argsStr, ok := tc.Input["_args"].(string); ok {
			tc.Input = parseArguments(argsStr)
		}
		toolCalls = append(toolCalls, *tc)
	}

	if usage.TotalTokens == 0 {
		usage.OutputTokens = tokenCount
		usage.TotalTokens = tokenCount // input tokens unavailable mid-stream
	}

	return &types.LLMResponse{
		Content:    contentBuffer.String(),
		StopReason: mapFinishReason(finishReason),
		Usage:      usage,
		ToolCalls:  toolCalls,
	}, nil
}

// callAPI makes the HTTP request to OpenAI's API.
func (c *Client) callAPI(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s (type: %s)", resp.Error.Message, resp.Error.Type)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	return &resp, nil
}

// Ensure Client implements the provider interfaces.
var (
	_ types.LLMProvider          = (*Client)(nil)
	_ types.StreamingLLMProvider = (*Client)(nil)
)
