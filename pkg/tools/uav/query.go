package uav

import (
	"context"
	"fmt"

	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/session"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/store"
	"github.com/20arjuna/UAVLogViewer-AppServer/pkg/tools"
)

// ListTablesTool lists the telemetry tables belonging to the active file.
type ListTablesTool struct {
	store *store.Store
}

func (t *ListTablesTool) Name() string { return "list_tables" }

func (t *ListTablesTool) Description() string {
	return "List the telemetry tables available for the currently loaded log file. " +
		"Call this first to discover which message types the log contains."
}

func (t *ListTablesTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("List tables for the active log file.", nil, nil)
}

func (t *ListTablesTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	fileID := session.FileIDFromContext(ctx)
	if fileID == "" {
		return tools.ErrorResult(CodeNoActiveFile, "no log file is loaded in this session"), nil
	}

	names, err := t.store.Tables(ctx, store.FilePrefix(fileID))
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return &tools.Result{Success: true, Data: names}, nil
}

// GetSchemaTool reports the column names and types of one table.
type GetSchemaTool struct {
	store *store.Store
}

func (t *GetSchemaTool) Name() string { return "get_schema" }

func (t *GetSchemaTool) Description() string {
	return "Get the column names and types of a telemetry table. " +
		"Use the exact table names returned by list_tables."
}

func (t *GetSchemaTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Describe one table.",
		map[string]*tools.JSONSchema{
			"table_name": tools.NewStringSchema("Exact table name, as returned by list_tables."),
		},
		[]string{"table_name"})
}

func (t *GetSchemaTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	name, _ := params["table_name"].(string)

	cols, err := t.store.Describe(ctx, name)
	if err != nil {
		// Unknown tables are an expected model mistake, returned as data so
		// the model can retry with a listed name.
		return tools.ErrorResult(CodeUnknownTable,
			fmt.Sprintf("cannot describe table %q: %v", name, err)), nil
	}

	schema := make(map[string]string, len(cols))
	for _, c := range cols {
		schema[c.Name] = c.Type
	}
	return &tools.Result{Success: true, Data: schema}, nil
}

// RunSQLTool executes arbitrary SQL against the telemetry store. The model
// is the only caller; no statement filtering is applied, which is an
// accepted trust boundary of this deployment.
type RunSQLTool struct {
	store *store.Store
}

func (t *RunSQLTool) Name() string { return "run_sql" }

func (t *RunSQLTool) Description() string {
	return "Execute a SQL query against the telemetry tables and return the rows. " +
		"Prefer aggregate queries; large raw dumps waste context."
}

func (t *RunSQLTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Run a SQL query.",
		map[string]*tools.JSONSchema{
			"sql": tools.NewStringSchema("The SQL query to execute."),
		},
		[]string{"sql"})
}

func (t *RunSQLTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	query, _ := params["sql"].(string)

	result, err := t.store.Query(ctx, query)
	if err != nil {
		// Query failures fold back as data, never as a fault: the model
		// reads the error and the offending statement and adapts.
		return &tools.Result{
			Success: true,
			Data: map[string]interface{}{
				"success":      false,
				"rows":         nil,
				"columns":      nil,
				"row_count":    0,
				"error":        err.Error(),
				"original_sql": query,
			},
		}, nil
	}

	return &tools.Result{
		Success: true,
		Data: map[string]interface{}{
			"success":   true,
			"rows":      result.Rows,
			"columns":   result.Columns,
			"row_count": result.RowCount,
		},
	}, nil
}
