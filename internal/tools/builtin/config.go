package builtin

// FileToolConfig propagates workspace settings to file-based tools.
type FileToolConfig struct {
	// Root is the directory all file tools are confined to. Paths outside
	// it are rejected before any disk access.
	Root string
}
