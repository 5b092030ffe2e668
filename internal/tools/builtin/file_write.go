package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/agent/ports"
)

type fileWrite struct {
	root string
}

func NewFileWrite(cfg FileToolConfig) ports.ToolExecutor {
	return &fileWrite{root: cfg.Root}
}

func (t *fileWrite) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok || path == "" {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("missing 'path'")}, nil
	}
	content, ok := call.Arguments["content"].(string)
	if !ok {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("missing 'content'")}, nil
	}

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	// Capture prev state before mutating; an absent file means create.
	prevState, existed, err := readCurrent(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}
	operation := "update"
	if !existed {
		operation = "create"
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("failed to create directories: %w", err)}, nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	// Next state is read back from disk after the write so any normalization
	// applied by the write path is recorded, not the requested content.
	written, err := os.ReadFile(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("failed to read back %s: %w", path, err)}, nil
	}
	nextState := string(written)

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Wrote %d bytes to %s", len(written), path),
		Metadata: map[string]any{
			"file_path":     path,
			"operation":     operation,
			"bytes_written": len(written),
			"lines_total":   len(strings.Split(nextState, "\n")),
			"diff":          generateUnifiedDiff(prevState, nextState, path),
		},
		Changes: []ports.FileChange{{
			FilePath:  resolved,
			Operation: operation,
			PrevState: prevState,
			NextState: nextState,
		}},
	}, nil
}

// Preview diffs the current disk content against the proposed content
// without writing anything.
func (t *fileWrite) Preview(ctx context.Context, call ports.ToolCall) (string, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("missing 'path'")
	}
	content, _ := call.Arguments["content"].(string)

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return "", err
	}
	prevState, _, err := readCurrent(resolved)
	if err != nil {
		return "", err
	}
	return generateUnifiedDiff(prevState, content, path), nil
}

func (t *fileWrite) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_write",
		Description: "Write content to a file, creating it if needed",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":    {Type: "string", Description: "File path"},
				"content": {Type: "string", Description: "Content to write"},
			},
			Required: []string{"path", "content"},
		},
	}
}

func (t *fileWrite) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name: "file_write", Version: "1.0.0", Category: "file_operations",
		DangerLevel: ports.DangerCaution, RequiresConfirmation: true,
	}
}

// readCurrent returns the current content of a file and whether it exists.
func readCurrent(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read current content: %w", err)
	}
	return string(data), true, nil
}
