package uav

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/session"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
)

// playbackSpeeds are the multipliers the replay UI supports.
var playbackSpeeds = []float64{0.25, 0.5, 1, 2, 5, 10}

// copterModes maps ArduPilot Copter flight mode names to their numeric codes
// as recorded in the MODE message's ModeNum field.
var copterModes = map[string]int{
	"STABILIZE":    0,
	"ACRO":         1,
	"ALT_HOLD":     2,
	"AUTO":         3,
	"GUIDED":       4,
	"LOITER":       5,
	"RTL":          6,
	"CIRCLE":       7,
	"LAND":         9,
	"DRIFT":        11,
	"SPORT":        13,
	"FLIP":         14,
	"AUTOTUNE":     15,
	"POSHOLD":      16,
	"BRAKE":        17,
	"THROW":        18,
	"AVOID_ADSB":   19,
	"GUIDED_NOGPS": 20,
	"SMART_RTL":    21,
	"FLOWHOLD":     22,
	"FOLLOW":       23,
	"ZIGZAG":       24,
	"SYSTEMID":     25,
	"AUTOROTATE":   26,
	"AUTO_RTL":     27,
}

func modeNames() []string {
	names := make([]string, 0, len(copterModes))
	for name := range copterModes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ControlPlaybackTool starts, pauses, or changes the speed of log replay.
// Pure command construction; no store access.
type ControlPlaybackTool struct{}

func (t *ControlPlaybackTool) Name() string { return "control_playback" }

func (t *ControlPlaybackTool) Description() string {
	return "Control log replay in the viewer: play, pause, or set the playback speed."
}

func (t *ControlPlaybackTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Control replay playback.",
		map[string]*tools.JSONSchema{
			"action": tools.NewStringSchema("The playback action to perform.").
				WithEnum("play", "pause", "set_speed"),
			"speed": tools.NewNumberSchema("Playback speed multiplier. Required for set_speed.").
				WithEnum(0.25, 0.5, 1, 2, 5, 10),
		},
		[]string{"action"})
}

func (t *ControlPlaybackTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	action, _ := params["action"].(string)

	cmdParams := map[string]interface{}{"action": action}
	if action == "set_speed" {
		speed, ok := params["speed"].(float64)
		if !ok || !validSpeed(speed) {
			return tools.ErrorResult(CodeInvalidSpeed,
				fmt.Sprintf("set_speed requires a speed from %v", playbackSpeeds)), nil
		}
		cmdParams["speed"] = speed
	}
	return tools.CommandResult("control_playback", cmdParams), nil
}

func validSpeed(speed float64) bool {
	for _, s := range playbackSpeeds {
		if s == speed {
			return true
		}
	}
	return false
}

// SeekToTimestampTool jumps the replay position to an absolute timestamp.
type SeekToTimestampTool struct{}

func (t *SeekToTimestampTool) Name() string { return "seek_to_timestamp" }

func (t *SeekToTimestampTool) Description() string {
	return "Jump log replay to a timestamp in milliseconds since boot (time_boot_ms)."
}

func (t *SeekToTimestampTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Seek replay to a timestamp.",
		map[string]*tools.JSONSchema{
			"timestamp": tools.NewNumberSchema("Target timestamp in milliseconds since boot.").
				WithMinimum(0),
		},
		[]string{"timestamp"})
}

func (t *SeekToTimestampTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	ts, ok := params["timestamp"].(float64)
	if !ok || ts < 0 {
		return tools.ErrorResult(CodeInvalidTimestamp,
			"timestamp must be a non-negative number of milliseconds"), nil
	}
	return tools.CommandResult("seek_to_timestamp", map[string]interface{}{
		"timestamp": ts,
	}), nil
}

// SeekToModeTool jumps replay to the first moment the vehicle entered a
// flight mode, looked up from the active file's MODE table.
type SeekToModeTool struct {
	store *store.Store
}

func (t *SeekToModeTool) Name() string { return "seek_to_mode" }

func (t *SeekToModeTool) Description() string {
	return "Jump log replay to the first time the vehicle entered a flight mode, " +
		"e.g. AUTO, LOITER, RTL."
}

func (t *SeekToModeTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Seek replay to a flight mode transition.",
		map[string]*tools.JSONSchema{
			"mode_name": tools.NewStringSchema("ArduPilot flight mode name, e.g. AUTO or RTL."),
		},
		[]string{"mode_name"})
}

func (t *SeekToModeTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	fileID := session.FileIDFromContext(ctx)
	if fileID == "" {
		return tools.ErrorResult(CodeNoActiveFile, "no log file is loaded in this session"), nil
	}

	name, _ := params["mode_name"].(string)
	modeNum, ok := copterModes[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return tools.ErrorResult(CodeUnknownMode,
			fmt.Sprintf("unknown flight mode %q; known modes: %s",
				name, strings.Join(modeNames(), ", "))), nil
	}

	table := store.TableName(fileID, "MODE")
	result, err := t.store.Query(ctx, fmt.Sprintf(
		`SELECT time_boot_ms FROM "%s" WHERE ModeNum = %d ORDER BY time_boot_ms LIMIT 1`,
		table, modeNum))
	if err != nil {
		return tools.ErrorResult(CodeModeNotFound,
			fmt.Sprintf("cannot read mode transitions: %v", err)), nil
	}
	if result.RowCount == 0 || result.Rows[0][0] == nil {
		return tools.ErrorResult(CodeModeNotFound,
			fmt.Sprintf("the vehicle never entered mode %s in this log", name)), nil
	}

	ts, err := asMilliseconds(result.Rows[0][0])
	if err != nil {
		return tools.ErrorResult(CodeModeNotFound,
			fmt.Sprintf("mode transition timestamp unreadable: %v", err)), nil
	}
	return tools.CommandResult("seek_to_timestamp", map[string]interface{}{
		"timestamp": ts,
	}), nil
}

func asMilliseconds(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected timestamp type %T", v)
	}
}
