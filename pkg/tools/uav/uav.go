// Package uav implements the tool catalog the model drives to inspect
// telemetry tables and control the replay UI. Store-backed tools resolve the
// active file from session context, never from model-supplied arguments, so
// a hallucinated file id cannot read another session's data.
package uav

import (
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
)

// Error codes produced by the UAV tool handlers.
const (
	CodeNoActiveFile     = "no_active_file"
	CodeUnknownTable     = "unknown_table"
	CodeUnknownMode      = "unknown_mode"
	CodeModeNotFound     = "mode_not_found"
	CodeInvalidTimestamp = "invalid_timestamp"
	CodeInvalidSpeed     = "invalid_speed"
	CodeInvalidField     = "invalid_field"
)

// RegisterAll registers the full UAV tool catalog on reg.
func RegisterAll(reg *tools.Registry, st *store.Store) {
	catalog := []tools.Tool{
		&ListTablesTool{store: st},
		&GetSchemaTool{store: st},
		&RunSQLTool{store: st},
		&ControlPlaybackTool{},
		&SeekToTimestampTool{},
		&SeekToModeTool{store: st},
		&CreatePlotTool{},
		&ToggleUITool{},
	}
	for _, t := range catalog {
		reg.Register(t)
	}
}
