package ports

import (
	"context"
	"encoding/json"
)

// ToolExecutor executes a single tool call
type ToolExecutor interface {
	// Execute runs the tool with given arguments
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// Definition returns the tool's schema for the model
	Definition() ToolDefinition

	// Metadata returns tool metadata
	Metadata() ToolMetadata
}

// ChangePreviewer is implemented by tools that can describe the mutation a
// call would make without executing it. Approval prompts use the preview to
// show a diff before consenting.
type ChangePreviewer interface {
	Preview(ctx context.Context, call ToolCall) (string, error)
}

// ToolRegistry manages available tools
type ToolRegistry interface {
	// Register adds a tool to the registry
	Register(tool ToolExecutor) error

	// Get retrieves a tool by name
	Get(name string) (ToolExecutor, error)

	// List returns all available tools
	List() []ToolDefinition

	// Unregister removes a tool
	Unregister(name string) error
}

// ToolCall represents a request to execute a tool
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	SessionID string         `json:"session_id,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
}

// FileChange is the before/after record for one file mutated by a tool.
//
// PrevState is the disk content read immediately before the mutation (empty
// for a created file) and NextState is the content actually written after the
// write succeeded, not the content the caller requested. Normalization applied
// by the write path is therefore captured faithfully.
type FileChange struct {
	FilePath  string `json:"file_path"`
	Operation string `json:"operation"` // create | update | delete
	PrevState string `json:"prev_state"`
	NextState string `json:"next_state"`
}

// ToolResult is the execution result
type ToolResult struct {
	CallID   string         `json:"call_id"`
	Content  string         `json:"content"`
	Error    error          `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Changes  []FileChange   `json:"changes,omitempty"`
}

// MarshalJSON customizes ToolResult JSON encoding to support the error interface.
func (r ToolResult) MarshalJSON() ([]byte, error) {
	type Alias struct {
		CallID   string         `json:"call_id"`
		Content  string         `json:"content"`
		Error    any            `json:"error,omitempty"`
		Metadata map[string]any `json:"metadata,omitempty"`
		Changes  []FileChange   `json:"changes,omitempty"`
	}

	alias := Alias{
		CallID:   r.CallID,
		Content:  r.Content,
		Metadata: r.Metadata,
		Changes:  r.Changes,
	}

	if r.Error != nil {
		alias.Error = r.Error.Error()
	}

	return json.Marshal(alias)
}

// DangerLevel classifies how destructive a tool can be.
type DangerLevel string

const (
	DangerSafe      DangerLevel = "safe"
	DangerCaution   DangerLevel = "caution"
	DangerDangerous DangerLevel = "dangerous"
)

// Valid reports whether the level is one of the known values.
func (d DangerLevel) Valid() bool {
	switch d {
	case DangerSafe, DangerCaution, DangerDangerous:
		return true
	}
	return false
}

// ToolDefinition describes a tool for the model
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolMetadata contains tool information
type ToolMetadata struct {
	Name                 string      `json:"name"`
	Version              string      `json:"version"`
	Category             string      `json:"category"`
	Tags                 []string    `json:"tags,omitempty"`
	DangerLevel          DangerLevel `json:"danger_level"`
	RequiresConfirmation bool        `json:"requires_confirmation"`
}

// ParameterSchema defines tool parameters (JSON Schema format)
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum,omitempty"`
}
