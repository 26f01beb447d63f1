package uav

import (
	"context"
	"fmt"
	"strings"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
)

// CreatePlotTool asks the viewer to plot one or more telemetry series.
type CreatePlotTool struct{}

func (t *CreatePlotTool) Name() string { return "create_plot" }

func (t *CreatePlotTool) Description() string {
	return "Plot one or more telemetry series in the viewer. Each field is given " +
		"as \"table.column\" using exact names from list_tables and get_schema."
}

func (t *CreatePlotTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Create a plot of telemetry series.",
		map[string]*tools.JSONSchema{
			"fields": tools.NewArraySchema("Series to plot, each as \"table.column\".",
				tools.NewStringSchema("A \"table.column\" reference.")).
				WithMinItems(1),
			"title": tools.NewStringSchema("Optional plot title."),
		},
		[]string{"fields"})
}

func (t *CreatePlotTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	raw, _ := params["fields"].([]interface{})
	if len(raw) == 0 {
		return tools.ErrorResult(CodeInvalidField, "fields must be a non-empty list"), nil
	}

	fields := make([]string, len(raw))
	for i, f := range raw {
		s, ok := f.(string)
		if !ok || !strings.Contains(s, ".") {
			return tools.ErrorResult(CodeInvalidField,
				fmt.Sprintf("field %v is not a \"table.column\" reference", f)), nil
		}
		fields[i] = s
	}

	cmdParams := map[string]interface{}{"fields": fields}
	if title, ok := params["title"].(string); ok && title != "" {
		cmdParams["title"] = title
	}
	return tools.CommandResult("create_plot", cmdParams), nil
}

// ToggleUITool shows or hides a viewer panel.
type ToggleUITool struct{}

func (t *ToggleUITool) Name() string { return "toggle_ui" }

func (t *ToggleUITool) Description() string {
	return "Show or hide a viewer panel: the plot, the chat, or the map."
}

func (t *ToggleUITool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Toggle a viewer panel.",
		map[string]*tools.JSONSchema{
			"component": tools.NewStringSchema("The panel to toggle.").
				WithEnum("plot", "chat", "map"),
			"visible": tools.NewBooleanSchema("Whether the panel should be visible."),
		},
		[]string{"component", "visible"})
}

func (t *ToggleUITool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	component, _ := params["component"].(string)
	visible, _ := params["visible"].(bool)

	return tools.CommandResult("toggle_ui", map[string]interface{}{
		"component": component,
		"visible":   visible,
	}), nil
}
