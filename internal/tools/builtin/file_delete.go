package builtin

import (
	"context"
	"fmt"
	"os"

	"quill/internal/agent/ports"
)

type fileDelete struct {
	root string
}

func NewFileDelete(cfg FileToolConfig) ports.ToolExecutor {
	return &fileDelete{root: cfg.Root}
}

func (t *fileDelete) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok || path == "" {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("missing 'path'")}, nil
	}

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	prevState, existed, err := readCurrent(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}
	if !existed {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("file not found: %s", path)}, nil
	}

	if err := os.Remove(resolved); err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("failed to delete %s: %w", path, err)}, nil
	}

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Deleted %s", path),
		Metadata: map[string]any{
			"file_path": path,
			"operation": "delete",
		},
		Changes: []ports.FileChange{{
			FilePath:  resolved,
			Operation: "delete",
			PrevState: prevState,
			NextState: "",
		}},
	}, nil
}

// Preview shows the content a delete would discard.
func (t *fileDelete) Preview(ctx context.Context, call ports.ToolCall) (string, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("missing 'path'")
	}
	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return "", err
	}
	prevState, existed, err := readCurrent(resolved)
	if err != nil {
		return "", err
	}
	if !existed {
		return "", fmt.Errorf("file not found: %s", path)
	}
	return generateUnifiedDiff(prevState, "", path), nil
}

func (t *fileDelete) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_delete",
		Description: "Delete a file",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "File path"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *fileDelete) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name: "file_delete", Version: "1.0.0", Category: "file_operations",
		DangerLevel: ports.DangerDangerous, RequiresConfirmation: true,
	}
}
