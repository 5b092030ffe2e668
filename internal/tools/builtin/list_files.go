package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"quill/internal/agent/ports"
)

type listFiles struct {
	root string
}

func NewListFiles(cfg FileToolConfig) ports.ToolExecutor {
	return &listFiles{root: cfg.Root}
}

func (t *listFiles) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path := "."
	if raw, ok := call.Arguments["path"].(string); ok && raw != "" {
		path = raw
	}

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("failed to list %s: %w", path, err)}, nil
	}

	var lines []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		lines = append(lines, name)
	}

	return &ports.ToolResult{
		CallID:  call.ID,
		Content: strings.Join(lines, "\n"),
		Metadata: map[string]any{
			"path":    path,
			"entries": len(entries),
		},
	}, nil
}

func (t *listFiles) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "list_files",
		Description: "List directory entries",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "Directory path (defaults to workspace root)"},
			},
		},
	}
}

func (t *listFiles) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name: "list_files", Version: "1.0.0", Category: "file_operations",
		DangerLevel: ports.DangerSafe,
	}
}
