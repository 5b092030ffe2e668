package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"quill/internal/agent/ports"
)

const maxReadBytes = 1 * 1024 * 1024

type fileRead struct {
	root string
}

func NewFileRead(cfg FileToolConfig) ports.ToolExecutor {
	return &fileRead{root: cfg.Root}
}

func (t *fileRead) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok || path == "" {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("missing 'path'")}, nil
	}

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("failed to read %s: %w", path, err)}, nil
	}
	if len(data) > maxReadBytes {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("file too large: %s (%d bytes)", path, len(data))}, nil
	}

	content := string(data)
	return &ports.ToolResult{
		CallID:  call.ID,
		Content: content,
		Metadata: map[string]any{
			"file_path":   path,
			"bytes_read":  len(data),
			"lines_total": len(strings.Split(content, "\n")),
		},
	}, nil
}

func (t *fileRead) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_read",
		Description: "Read the contents of a file",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {Type: "string", Description: "File path"},
			},
			Required: []string{"path"},
		},
	}
}

func (t *fileRead) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name: "file_read", Version: "1.0.0", Category: "file_operations",
		DangerLevel: ports.DangerSafe,
	}
}
