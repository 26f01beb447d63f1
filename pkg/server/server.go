// Package server exposes the ingestion and chat endpoints over HTTP, with
// the chat answer streamed as Server-Sent Events.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/20arjuna/UAVLogViewer-AppServer/internal/log"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/agent"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/history"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/ingest"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
)

// Config holds HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string // "*" allows any origin
	MaxUploadBytes int64
}

// DefaultConfig returns the standard server settings.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8000",
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 256 << 20,
	}
}

// Server wires the ingestion pipeline and the agent behind HTTP routes.
type Server struct {
	config     Config
	store      *store.Store
	pipeline   *ingest.Pipeline
	agent      *agent.Agent
	history    *history.History
	httpServer *http.Server
}

// New builds the server. Call Start to begin serving.
func New(config Config, st *store.Store, pipeline *ingest.Pipeline, ag *agent.Agent, hist *history.History) *Server {
	s := &Server{
		config:   config,
		store:    st,
		pipeline: pipeline,
		agent:    ag,
		history:  hist,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/logs", s.handleLogs)
	mux.HandleFunc("/api/v1/chat", s.handleChat)
	mux.HandleFunc("/api/v1/reset", s.handleReset)

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	log.Info("http server listening", zap.String("addr", s.config.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed := s.allowedOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// logUploadResponse is the success envelope for POST /api/v1/logs.
type logUploadResponse struct {
	FileID string   `json:"file_id"`
	Tables []string `json:"tables"`
}

// handleLogs ingests a parsed telemetry payload and returns the new file id
// with its table names. Ingestion failures surface verbatim.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	fileID := uuid.New().String()
	tables, err := s.pipeline.Ingest(r.Context(), body, fileID)
	if err != nil {
		log.Error("ingestion failed", zap.String("file_id", fileID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, logUploadResponse{FileID: fileID, Tables: tables})
}

// chatRequest is the body of POST /api/v1/chat.
type chatRequest struct {
	SessionID string `json:"session_id"`
	FileID    string `json:"file_id"`
	Message   string `json:"message"`
}

// handleChat answers a question over SSE. Each agent event becomes one SSE
// data frame, flushed as it is produced; client disconnect cancels the loop
// through the request context.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id and message are required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering
	flusher.Flush()

	for ev := range s.agent.Ask(r.Context(), req.SessionID, req.FileID, req.Message) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error("failed to encode event", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client gone; the loop stops via the request context.
			return
		}
		flusher.Flush()
	}
}

// handleReset drops every telemetry table and clears conversation history.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dropped, err := s.store.DropTables(r.Context(), store.TablePrefix)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.history.ClearAll(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	log.Info("database reset", zap.Int("tables_dropped", dropped))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "reset",
		"tables_dropped": dropped,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("failed to encode response", zap.Error(err))
	}
}
