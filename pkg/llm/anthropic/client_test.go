package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/types"
)

func TestConvertMessagesExtractsSystem(t *testing.T) {
	system, apiMessages := convertMessages([]types.Message{
		{Role: "system", Content: "You analyze UAV logs."},
		{Role: "user", Content: "hello"},
		{Role: "assistant", ToolCalls: []types.ToolCall{
			{ID: "toolu_1", Name: "get_schema", Input: map[string]interface{}{"table_name": "log_f1_ATT"}},
		}},
		{Role: "tool", Content: `{"Roll":"REAL"}`, ToolCallID: "toolu_1"},
	})

	assert.Equal(t, "You analyze UAV logs.", system)
	require.Len(t, apiMessages, 3)

	assert.Equal(t, "user", apiMessages[0].Role)

	require.Len(t, apiMessages[1].Content, 1)
	assert.Equal(t, "tool_use", apiMessages[1].Content[0].Type)
	assert.Equal(t, "toolu_1", apiMessages[1].Content[0].ID)

	// Tool results ride in a user message.
	assert.Equal(t, "user", apiMessages[2].Role)
	assert.Equal(t, "tool_result", apiMessages[2].Content[0].Type)
	assert.Equal(t, "toolu_1", apiMessages[2].Content[0].ToolUseID)
}

func TestContentBlockMarshalToolUseAlwaysHasInput(t *testing.T) {
	block := ContentBlock{Type: "tool_use", ID: "toolu_1", Name: "list_tables"}

	data, err := json.Marshal(block)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool_use","id":"toolu_1","name":"list_tables","input":{}}`, string(data))
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req MessagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "You analyze UAV logs.", req.System)

		resp := MessagesResponse{
			Type:       "message",
			Role:       "assistant",
			StopReason: "end_turn",
			Content: []ContentBlock{
				{Type: "text", Text: "The max altitude was 342.5m."},
			},
			Usage: Usage{InputTokens: 20, OutputTokens: 8},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Endpoint: server.URL})

	resp, err := client.Chat(context.Background(), []types.Message{
		{Role: "system", Content: "You analyze UAV logs."},
		{Role: "user", Content: "max altitude?"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "The max altitude was 342.5m.", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 28, resp.Usage.TotalTokens)
}

func TestChatStreamToolUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"message_start","message":{"usage":{"input_tokens":12}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"run_sql"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"sql\":"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"SELECT 1\"}"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":9}}`,
			`{"type":"message_stop"}`,
		}
		for _, event := range events {
			fmt.Fprintf(w, "data: %s\n\n", event)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Endpoint: server.URL})

	resp, err := client.ChatStream(context.Background(),
		[]types.Message{{Role: "user", Content: "q"}}, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "run_sql", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]interface{}{"sql": "SELECT 1"}, resp.ToolCalls[0].Input)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 9, resp.Usage.OutputTokens)
}

func TestChatStreamTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		events := []string{
			`{"type":"message_start","message":{"usage":{"input_tokens":5}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
			`{"type":"message_stop"}`,
		}
		for _, event := range events {
			fmt.Fprintf(w, "data: %s\n\n", event)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Endpoint: server.URL})

	var tokens []string
	resp, err := client.ChatStream(context.Background(),
		[]types.Message{{Role: "user", Content: "hi"}}, nil,
		func(token string) { tokens = append(tokens, token) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", " there"}, tokens)
	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
}
