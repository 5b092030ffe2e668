package toolregistry

import (
	"os"
	"path/filepath"
	"testing"

	"quill/internal/agent/ports"
)

func TestDefaultPolicyBuiltins(t *testing.T) {
	policy := DefaultPolicy()

	read := policy.For("file_read")
	if read.RequiresConfirmation || read.DangerLevel != ports.DangerSafe {
		t.Fatalf("file_read should be safe without confirmation, got %+v", read)
	}

	del := policy.For("file_delete")
	if !del.RequiresConfirmation || del.DangerLevel != ports.DangerDangerous {
		t.Fatalf("file_delete should be dangerous with confirmation, got %+v", del)
	}
}

func TestPolicyUnknownToolFallsBackToDangerous(t *testing.T) {
	policy := DefaultPolicy()
	entry := policy.For("mystery_tool")
	if !entry.RequiresConfirmation || entry.DangerLevel != ports.DangerDangerous {
		t.Fatalf("unknown tools must require confirmation, got %+v", entry)
	}
}

func TestLoadPolicyMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	content := `
file_write:
  requires_confirmation: false
  danger_level: safe
deploy:
  requires_confirmation: true
  danger_level: dangerous
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	write := policy.For("file_write")
	if write.RequiresConfirmation || write.DangerLevel != ports.DangerSafe {
		t.Fatalf("override not applied: %+v", write)
	}
	if entry := policy.For("file_read"); entry.DangerLevel != ports.DangerSafe {
		t.Fatalf("default entries must survive merge, got %+v", entry)
	}
	if entry := policy.For("deploy"); !entry.RequiresConfirmation {
		t.Fatalf("new entries must be added, got %+v", entry)
	}
}

func TestLoadPolicyMissingFileUsesDefaults(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if entry := policy.For("file_read"); entry.DangerLevel != ports.DangerSafe {
		t.Fatalf("expected defaults, got %+v", entry)
	}
}

func TestAutoApproveAllDropsConfirmation(t *testing.T) {
	policy := AutoApproveAll(DefaultPolicy())

	if entry := policy.For("file_delete"); entry.RequiresConfirmation {
		t.Fatalf("auto-approve must clear confirmation, got %+v", entry)
	}
	if entry := policy.For("file_delete"); entry.DangerLevel != ports.DangerDangerous {
		t.Fatalf("auto-approve must preserve danger levels, got %+v", entry)
	}
	if entry := policy.For("mystery_tool"); entry.RequiresConfirmation {
		t.Fatalf("auto-approve must cover unknown tools, got %+v", entry)
	}
}

func TestLoadPolicyRejectsUnknownDangerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	if err := os.WriteFile(path, []byte("bad:\n  danger_level: radioactive\n"), 0644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Fatalf("expected error for unknown danger level")
	}
}
