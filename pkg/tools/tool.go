// Package tools defines the tool catalog exposed to the language model: the
// Tool interface, the structured Result/Error/Command envelope every handler
// returns, the JSON Schema type used to describe and validate arguments, and
// the Registry/Executor pair that dispatches model-issued invocations.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is a single capability the model can invoke with structured arguments.
type Tool interface {
	// Name returns the tool's unique identifier.
	Name() string

	// Description returns a human-readable description for model context.
	Description() string

	// InputSchema returns the JSON Schema for tool arguments.
	InputSchema() *JSONSchema

	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)
}

// Result represents the outcome of a tool execution. Exactly one of Data,
// Error, or Command carries the payload.
type Result struct {
	// Success indicates if the tool executed successfully.
	Success bool

	// Data contains the result data (format varies by tool).
	Data interface{}

	// Error contains structured error information if execution failed.
	Error *Error

	// Command, when set, is a UI side-effect for the caller rather than
	// transcript content. The loop emits it out-of-band.
	Command *Command

	// ExecutionTimeMs is the wall time the execution took.
	ExecutionTimeMs int64
}

// Error is a tool execution failure as data. Failures cross the executor
// boundary only in this form so the model can read them and adapt.
type Error struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details provides additional error context.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Command is a UI-control instruction produced by a tool. It performs no
// store access; the transport hands it to the client for dispatch.
type Command struct {
	// Action names the UI operation (control_playback, seek_to_timestamp, ...).
	Action string `json:"action"`

	// Params carries the action's arguments.
	Params map[string]interface{} `json:"params"`
}

// ErrorResult builds a failed Result with a structured error.
func ErrorResult(code, message string) *Result {
	return &Result{
		Success: false,
		Error:   &Error{Code: code, Message: message},
	}
}

// CommandResult builds a successful Result carrying a UI command.
func CommandResult(action string, params map[string]interface{}) *Result {
	return &Result{
		Success: true,
		Command: &Command{Action: action, Params: params},
	}
}

// JSONSchema represents a JSON Schema for tool arguments, following the JSON
// Schema spec for type definitions.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []interface{}          `json:"enum,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	MinItems    *int                   `json:"minItems,omitempty"`
}

// ToJSON converts the schema to JSON bytes.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// NewObjectSchema creates a new object schema with the given properties.
func NewObjectSchema(description string, properties map[string]*JSONSchema, required []string) *JSONSchema {
	if properties == nil {
		properties = make(map[string]*JSONSchema)
	}
	return &JSONSchema{
		Type:        "object",
		Description: description,
		Properties:  properties,
		Required:    required,
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description}
}

// NewNumberSchema creates a new number schema.
func NewNumberSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "number", Description: description}
}

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema(description string) *JSONSchema {
	return &JSONSchema{Type: "boolean", Description: description}
}

// NewArraySchema creates a new array schema.
func NewArraySchema(description string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{Type: "array", Description: description, Items: items}
}

// WithEnum adds enum values to the schema.
func (s *JSONSchema) WithEnum(values ...interface{}) *JSONSchema {
	s.Enum = values
	return s
}

// WithMinimum adds a lower bound to the schema.
func (s *JSONSchema) WithMinimum(min float64) *JSONSchema {
	s.Minimum = &min
	return s
}

// WithMinItems adds a minimum length to an array schema.
func (s *JSONSchema) WithMinItems(n int) *JSONSchema {
	s.MinItems = &n
	return s
}
