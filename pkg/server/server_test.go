package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/agent"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/history"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/ingest"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools/uav"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/types"
)

// cannedProvider always answers with a fixed string and never requests tools.
type cannedProvider struct {
	answer string
}

func (p *cannedProvider) Name() string  { return "canned" }
func (p *cannedProvider) Model() string { return "canned-1" }

func (p *cannedProvider) Chat(ctx context.Context, messages []types.Message, catalog []tools.Tool) (*types.LLMResponse, error) {
	return &types.LLMResponse{Content: p.answer, StopReason: "end_turn"}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hist, err := history.New(st.DB())
	require.NoError(t, err)

	reg := tools.NewRegistry()
	uav.RegisterAll(reg, st)

	cfg := agent.DefaultConfig()
	cfg.Retry.Enabled = false
	ag := agent.New(&cannedProvider{answer: "The flight lasted 4 minutes."}, reg, hist, cfg)

	srv := New(DefaultConfig(), st, ingest.NewPipeline(st), ag, hist)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestUploadLogs(t *testing.T) {
	ts, st := newTestServer(t)

	payload := `{
		"messages": {
			"ATT": {"time_boot_ms": [100, 200], "Roll": [1.5, 2.5]},
			"FILE": {"name": ["flight.bin"]}
		}
	}`
	resp, err := http.Post(ts.URL+"/api/v1/logs", "application/json",
		bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body logUploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.FileID)
	require.Len(t, body.Tables, 1)
	assert.Contains(t, body.Tables[0], "_ATT")

	tables, err := st.Tables(context.Background(), store.TablePrefix)
	require.NoError(t, err)
	assert.Equal(t, body.Tables, tables)
}

func TestUploadLogsFailureSurfacesError(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/logs", "application/json",
		bytes.NewBufferString(`{"messages": {}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "no messages")
}

func TestChatStreamsSSE(t *testing.T) {
	ts, _ := newTestServer(t)

	req := `{"session_id": "s1", "file_id": "", "message": "how long was the flight?"}`
	resp, err := http.Post(ts.URL+"/api/v1/chat", "application/json",
		bytes.NewBufferString(req))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []agent.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev agent.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, agent.EventToken, events[0].Type)
	assert.Equal(t, "The flight lasted 4 minutes.", events[0].Content)
	assert.Equal(t, agent.EventDone, events[1].Type)
}

func TestChatRejectsMissingFields(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/chat", "application/json",
		bytes.NewBufferString(`{"message": ""}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReset(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, st.CreateTable(ctx, "log_f1_ATT",
		[]store.Column{{Name: "x", Type: "INTEGER"}}, nil))

	resp, err := http.Post(ts.URL+"/api/v1/reset", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "reset", body["status"])
	assert.Equal(t, float64(1), body["tables_dropped"])

	tables, err := st.Tables(ctx, store.TablePrefix)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8080")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
