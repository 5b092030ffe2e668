package toolregistry

import (
	"context"
	"testing"

	"quill/internal/agent/ports"
)

func TestNewRegistryRequiresWorkspaceRoot(t *testing.T) {
	if _, err := NewRegistry(Config{}); err == nil {
		t.Fatalf("expected error when workspace root missing")
	}
}

func TestNewRegistryRegistersFileTools(t *testing.T) {
	registry, err := NewRegistry(Config{WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error creating registry: %v", err)
	}

	for _, name := range []string{"file_read", "file_write", "file_edit", "file_delete", "list_files"} {
		if _, err := registry.Get(name); err != nil {
			t.Fatalf("expected builtin %s: %v", name, err)
		}
	}

	if _, err := registry.Get("browser"); err == nil {
		t.Fatalf("unexpected tool resolved")
	}
}

type stubTool struct{ name string }

func (s *stubTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	return &ports.ToolResult{CallID: call.ID, Content: "ok"}, nil
}

func (s *stubTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{Name: s.name}
}

func (s *stubTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: s.name, DangerLevel: ports.DangerSafe}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry, err := NewRegistry(Config{WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error creating registry: %v", err)
	}

	if err := registry.Register(&stubTool{name: "echo"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := registry.Register(&stubTool{name: "echo"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := registry.Register(&stubTool{name: "file_write"}); err == nil {
		t.Fatalf("expected builtin shadowing to fail")
	}
}

func TestUnregisterProtectsBuiltins(t *testing.T) {
	registry, err := NewRegistry(Config{WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error creating registry: %v", err)
	}

	if err := registry.Unregister("file_write"); err == nil {
		t.Fatalf("expected builtin unregister to fail")
	}

	if err := registry.Register(&stubTool{name: "echo"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := registry.Unregister("echo"); err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if _, err := registry.Get("echo"); err == nil {
		t.Fatalf("echo should be gone")
	}
}
