package toolregistry

import (
	"fmt"
	"sync"

	"quill/internal/agent/ports"
	"quill/internal/tools/builtin"
)

// Registry implements ports.ToolRegistry with a static tier for builtins and
// a dynamic tier for tools registered at runtime.
type Registry struct {
	static  map[string]ports.ToolExecutor
	dynamic map[string]ports.ToolExecutor
	mu      sync.RWMutex
}

// Config controls builtin registration.
type Config struct {
	// WorkspaceRoot is the directory file tools are confined to.
	WorkspaceRoot string
}

// NewRegistry creates a registry with the builtin file tools registered.
func NewRegistry(config Config) (*Registry, error) {
	if config.WorkspaceRoot == "" {
		return nil, fmt.Errorf("workspace root is required")
	}

	r := &Registry{
		static:  make(map[string]ports.ToolExecutor),
		dynamic: make(map[string]ports.ToolExecutor),
	}
	r.registerBuiltins(builtin.FileToolConfig{Root: config.WorkspaceRoot})
	return r, nil
}

func (r *Registry) registerBuiltins(fileConfig builtin.FileToolConfig) {
	r.static["file_read"] = builtin.NewFileRead(fileConfig)
	r.static["file_write"] = builtin.NewFileWrite(fileConfig)
	r.static["file_edit"] = builtin.NewFileEdit(fileConfig)
	r.static["file_delete"] = builtin.NewFileDelete(fileConfig)
	r.static["list_files"] = builtin.NewListFiles(fileConfig)
}

// Register adds a tool to the dynamic tier.
func (r *Registry) Register(tool ports.ToolExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Metadata().Name
	if _, exists := r.static[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	if _, exists := r.dynamic[name]; exists {
		return fmt.Errorf("tool already exists: %s", name)
	}
	r.dynamic[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (ports.ToolExecutor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tool, ok := r.static[name]; ok {
		return tool, nil
	}
	if tool, ok := r.dynamic[name]; ok {
		return tool, nil
	}
	return nil, fmt.Errorf("tool not found: %s", name)
}

// List returns all available tool definitions.
func (r *Registry) List() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var defs []ports.ToolDefinition
	for _, tool := range r.static {
		defs = append(defs, tool.Definition())
	}
	for _, tool := range r.dynamic {
		defs = append(defs, tool.Definition())
	}
	return defs
}

// Unregister removes a dynamic tool. Builtins cannot be removed.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.static[name]; ok {
		return fmt.Errorf("cannot unregister built-in tool: %s", name)
	}
	delete(r.dynamic, name)
	return nil
}
