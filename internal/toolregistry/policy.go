package toolregistry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"quill/internal/agent/ports"
)

// ToolPolicy is the danger configuration for one tool: whether the gateway
// must hold the invocation for explicit user consent, and how destructive the
// tool is considered.
type ToolPolicy struct {
	RequiresConfirmation bool              `yaml:"requires_confirmation"`
	DangerLevel          ports.DangerLevel `yaml:"danger_level"`
}

// Policy maps tool names to their danger configuration. Tools without an
// entry fall back to dangerous-with-confirmation, so an unknown tool never
// executes silently.
type Policy struct {
	mu          sync.RWMutex
	entries     map[string]ToolPolicy
	autoApprove bool
}

var policyFallback = ToolPolicy{RequiresConfirmation: true, DangerLevel: ports.DangerDangerous}

// DefaultPolicy returns the policy table for the builtin tools.
func DefaultPolicy() *Policy {
	return &Policy{entries: map[string]ToolPolicy{
		"file_read":   {RequiresConfirmation: false, DangerLevel: ports.DangerSafe},
		"list_files":  {RequiresConfirmation: false, DangerLevel: ports.DangerSafe},
		"file_write":  {RequiresConfirmation: true, DangerLevel: ports.DangerCaution},
		"file_edit":   {RequiresConfirmation: true, DangerLevel: ports.DangerCaution},
		"file_delete": {RequiresConfirmation: true, DangerLevel: ports.DangerDangerous},
	}}
}

// LoadPolicy merges a YAML policy file over the defaults. The file is a map
// of tool name to {requires_confirmation, danger_level}. A missing path
// returns the defaults unchanged.
func LoadPolicy(path string) (*Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return policy, nil
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var overrides map[string]ToolPolicy
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("decode policy file %s: %w", path, err)
	}

	for name, entry := range overrides {
		if entry.DangerLevel == "" {
			entry.DangerLevel = policyFallback.DangerLevel
		}
		if !entry.DangerLevel.Valid() {
			return nil, fmt.Errorf("policy file %s: unknown danger level %q for tool %s", path, entry.DangerLevel, name)
		}
		policy.entries[name] = entry
	}
	return policy, nil
}

// AutoApproveAll returns a copy of p whose entries never require
// confirmation, unknown tools included. Danger levels are preserved.
func AutoApproveAll(p *Policy) *Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := &Policy{entries: make(map[string]ToolPolicy, len(p.entries)), autoApprove: true}
	for name, entry := range p.entries {
		entry.RequiresConfirmation = false
		out.entries[name] = entry
	}
	return out
}

// For returns the policy for a tool, falling back to
// dangerous-with-confirmation for unknown tools.
func (p *Policy) For(toolName string) ToolPolicy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if entry, ok := p.entries[toolName]; ok {
		return entry
	}
	fallback := policyFallback
	if p.autoApprove {
		fallback.RequiresConfirmation = false
	}
	return fallback
}

// Set overrides the policy entry for a tool.
func (p *Policy) Set(toolName string, entry ToolPolicy) {
	p.mu.Lock()
	p.entries[toolName] = entry
	p.mu.Unlock()
}
