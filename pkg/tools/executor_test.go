package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool is a configurable tool for executor tests.
type fakeTool struct {
	name   string
	schema *JSONSchema
	result *Result
	err    error
	called bool
	params map[string]interface{}
}

func (f *fakeTool) Name() string             { return f.name }
func (f *fakeTool) Description() string      { return "fake tool" }
func (f *fakeTool) InputSchema() *JSONSchema { return f.schema }

func (f *fakeTool) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	f.called = true
	f.params = params
	return f.result, f.err
}

func TestExecuteUnknownToolIsStructuredError(t *testing.T) {
	e := NewExecutor(NewRegistry())

	result := e.Execute(context.Background(), "does_not_exist", nil)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, CodeUnknownTool, result.Error.Code)
}

func TestExecuteValidatesArguments(t *testing.T) {
	reg := NewRegistry()
	tool := &fakeTool{
		name: "echo",
		schema: NewObjectSchema("", map[string]*JSONSchema{
			"text": NewStringSchema("text to echo"),
		}, []string{"text"}),
		result: &Result{Success: true, Data: "ok"},
	}
	reg.Register(tool)
	e := NewExecutor(reg)

	result := e.Execute(context.Background(), "echo", map[string]interface{}{})
	assert.False(t, result.Success)
	assert.Equal(t, CodeInvalidArguments, result.Error.Code)
	assert.False(t, tool.called, "handler must not run on invalid arguments")

	result = e.Execute(context.Background(), "echo", map[string]interface{}{"text": "hi"})
	assert.True(t, result.Success)
	assert.True(t, tool.called)
	assert.Equal(t, "hi", tool.params["text"])
}

func TestExecuteWrapsHandlerErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "boom", err: errors.New("disk on fire")})
	e := NewExecutor(reg)

	result := e.Execute(context.Background(), "boom", nil)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, CodeExecutionFailed, result.Error.Code)
	assert.Contains(t, result.Error.Message, "disk on fire")
}

func TestExecuteNilResultBecomesSuccess(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "quiet"})
	e := NewExecutor(reg)

	result := e.Execute(context.Background(), "quiet", nil)
	require.NotNil(t, result)
	assert.True(t, result.Success)
}

func TestMarshalData(t *testing.T) {
	assert.Equal(t, "null", MarshalData(nil))
	assert.Equal(t, `["a","b"]`, MarshalData([]string{"a", "b"}))
	assert.Equal(t, `{"n":1}`, MarshalData(map[string]int{"n": 1}))
}
