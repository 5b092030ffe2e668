package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/agent/ports"
)

type fileEdit struct {
	root string
}

func NewFileEdit(cfg FileToolConfig) ports.ToolExecutor {
	return &fileEdit{root: cfg.Root}
}

func (t *fileEdit) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok || path == "" {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("missing 'path'")}, nil
	}
	newString, ok := call.Arguments["new_string"].(string)
	if !ok {
		return &ports.ToolResult{CallID: call.ID, Error: fmt.Errorf("missing 'new_string'")}, nil
	}
	oldString := ""
	if raw, ok := call.Arguments["old_string"]; ok {
		oldString, _ = raw.(string)
	}

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &ports.ToolResult{CallID: call.ID, Error: err}, nil
	}

	if oldString == "" {
		return t.createNewFile(call.ID, path, resolved, newString)
	}
	return t.editExistingFile(call.ID, path, resolved, oldString, newString)
}

// createNewFile handles the empty old_string form: create a new file with
// new_string as content.
func (t *fileEdit) createNewFile(callID, path, resolved, content string) (*ports.ToolResult, error) {
	if _, err := os.Stat(resolved); err == nil {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("file already exists: %s", path)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("failed to create directories: %w", err)}, nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("failed to create file: %w", err)}, nil
	}

	written, err := os.ReadFile(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("failed to read back %s: %w", path, err)}, nil
	}
	nextState := string(written)

	return &ports.ToolResult{
		CallID:  callID,
		Content: fmt.Sprintf("Created %s (%d lines)", path, len(strings.Split(nextState, "\n"))),
		Metadata: map[string]any{
			"file_path": path,
			"operation": "create",
			"diff":      generateUnifiedDiff("", nextState, path),
		},
		Changes: []ports.FileChange{{
			FilePath:  resolved,
			Operation: "create",
			PrevState: "",
			NextState: nextState,
		}},
	}, nil
}

// editExistingFile replaces an exact, unique occurrence of old_string.
func (t *fileEdit) editExistingFile(callID, path, resolved, oldString, newString string) (*ports.ToolResult, error) {
	prevState, existed, err := readCurrent(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: callID, Error: err}, nil
	}
	if !existed {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("file not found: %s", path)}, nil
	}

	count := strings.Count(prevState, oldString)
	if count == 0 {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("old_string not found in %s", path)}, nil
	}
	if count > 1 {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("old_string appears %d times in %s, must be unique", count, path)}, nil
	}

	updated := strings.Replace(prevState, oldString, newString, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0644); err != nil {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("failed to write %s: %w", path, err)}, nil
	}

	written, err := os.ReadFile(resolved)
	if err != nil {
		return &ports.ToolResult{CallID: callID, Error: fmt.Errorf("failed to read back %s: %w", path, err)}, nil
	}
	nextState := string(written)

	return &ports.ToolResult{
		CallID:  callID,
		Content: fmt.Sprintf("Edited %s", path),
		Metadata: map[string]any{
			"file_path": path,
			"operation": "update",
			"diff":      generateUnifiedDiff(prevState, nextState, path),
		},
		Changes: []ports.FileChange{{
			FilePath:  resolved,
			Operation: "update",
			PrevState: prevState,
			NextState: nextState,
		}},
	}, nil
}

// Preview renders the diff the edit would produce. Ambiguous or missing
// old_string matches surface here so the prompt can explain the rejection.
func (t *fileEdit) Preview(ctx context.Context, call ports.ToolCall) (string, error) {
	path, _ := call.Arguments["path"].(string)
	if path == "" {
		return "", fmt.Errorf("missing 'path'")
	}
	newString, _ := call.Arguments["new_string"].(string)
	oldString := ""
	if raw, ok := call.Arguments["old_string"]; ok {
		oldString, _ = raw.(string)
	}

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return "", err
	}

	if oldString == "" {
		return generateUnifiedDiff("", newString, path), nil
	}

	prevState, existed, err := readCurrent(resolved)
	if err != nil {
		return "", err
	}
	if !existed {
		return "", fmt.Errorf("file not found: %s", path)
	}
	count := strings.Count(prevState, oldString)
	if count != 1 {
		return "", fmt.Errorf("old_string must appear exactly once in %s, found %d", path, count)
	}
	return generateUnifiedDiff(prevState, strings.Replace(prevState, oldString, newString, 1), path), nil
}

func (t *fileEdit) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "file_edit",
		Description: "Edit a file by replacing a unique exact string; empty old_string creates a new file",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path":       {Type: "string", Description: "File path"},
				"old_string": {Type: "string", Description: "Text to replace (empty for new file)"},
				"new_string": {Type: "string", Description: "Replacement text"},
			},
			Required: []string{"path", "old_string", "new_string"},
		},
	}
}

func (t *fileEdit) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{
		Name: "file_edit", Version: "1.0.0", Category: "file_operations",
		Tags:        []string{"file", "edit", "replace", "diff"},
		DangerLevel: ports.DangerCaution, RequiresConfirmation: true,
	}
}
