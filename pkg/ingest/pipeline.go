package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/20arjuna/UAVLogViewer-AppServer/internal/log"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
	"go.uber.org/zap"
)

// fileMetadataType is raw file metadata attached by parsers, not telemetry.
const fileMetadataType = "FILE"

// payload is the wire shape of a parsed telemetry upload.
type payload struct {
	Messages map[string]map[string]interface{} `json:"messages"`
}

// Pipeline ingests parsed telemetry payloads into per-file tables.
type Pipeline struct {
	store *store.Store
}

// NewPipeline returns a pipeline writing to st.
func NewPipeline(st *store.Store) *Pipeline {
	return &Pipeline{store: st}
}

// Ingest materializes one table per message type in raw, namespaced under
// fileID. Returns the created table names sorted by message type. On any
// failure the file's tables are removed so a partial ingest is never
// observable.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte, fileID string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body payload
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decode telemetry payload: %w", err)
	}
	if len(body.Messages) == 0 {
		return nil, fmt.Errorf("telemetry payload has no messages")
	}

	types := make([]string, 0, len(body.Messages))
	for msgType := range body.Messages {
		types = append(types, msgType)
	}
	sort.Strings(types)

	var created []string
	for _, msgType := range types {
		if msgType == fileMetadataType {
			continue
		}
		block, err := normalizeBlock(body.Messages[msgType])
		if err != nil {
			p.cleanup(fileID, created)
			return nil, fmt.Errorf("normalize %s: %w", msgType, err)
		}
		if block == nil {
			log.Debug("skipping message block with no tabular fields",
				zap.String("file_id", fileID),
				zap.String("message_type", msgType))
			continue
		}
		name := store.TableName(fileID, msgType)
		if err := p.store.CreateTable(ctx, name, block.Columns, block.Rows); err != nil {
			p.cleanup(fileID, created)
			return nil, fmt.Errorf("ingest %s: %w", msgType, err)
		}
		created = append(created, name)
		log.Debug("ingested message block",
			zap.String("table", name),
			zap.Int("columns", len(block.Columns)),
			zap.Int("rows", len(block.Rows)))
	}

	log.Info("telemetry file ingested",
		zap.String("file_id", fileID),
		zap.Int("tables", len(created)))
	return created, nil
}

// cleanup drops any tables created before an ingest failure. Best effort;
// the original error is what the caller sees.
func (p *Pipeline) cleanup(fileID string, created []string) {
	if len(created) == 0 {
		return
	}
	if _, err := p.store.DropTables(context.Background(), store.FilePrefix(fileID)); err != nil {
		log.Warn("failed to clean up after ingest failure",
			zap.String("file_id", fileID), zap.Error(err))
	}
}
