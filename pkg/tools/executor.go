package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Error codes produced by the executor itself (as opposed to tool handlers).
const (
	CodeUnknownTool      = "unknown_tool"
	CodeInvalidArguments = "invalid_arguments"
	CodeExecutionFailed  = "execution_failed"
)

// Executor dispatches model-issued tool invocations. Dispatch is total: an
// unknown tool name, invalid arguments, or a handler fault all come back as a
// structured error Result, never as a Go error, so the loop can fold the
// failure into the transcript and let the model recover.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a new tool executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs a tool by name with the given arguments. The returned Result
// is always non-nil.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) *Result {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return ErrorResult(CodeUnknownTool, fmt.Sprintf("unknown tool: %s", toolName))
	}

	if err := validateArguments(tool.InputSchema(), params); err != nil {
		return ErrorResult(CodeInvalidArguments, err.Error())
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		return &Result{
			Success:         false,
			Error:           &Error{Code: CodeExecutionFailed, Message: err.Error()},
			ExecutionTimeMs: elapsed.Milliseconds(),
		}
	}
	if result == nil {
		result = &Result{Success: true}
	}
	result.ExecutionTimeMs = elapsed.Milliseconds()
	return result
}

// validateArguments checks model-supplied arguments against the tool's
// declared schema. A nil schema accepts anything.
func validateArguments(schema *JSONSchema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return nil // unvalidatable schema, let the handler decide
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		return fmt.Errorf("argument validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

// MarshalData renders a result payload as compact JSON for transcript
// inclusion. Unencodable payloads degrade to fmt formatting.
func MarshalData(data interface{}) string {
	if data == nil {
		return "null"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
