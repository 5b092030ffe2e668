package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RuntimeConfig is the resolved configuration for one quill process.
type RuntimeConfig struct {
	// WorkspaceRoot confines every file tool to this directory.
	WorkspaceRoot string `mapstructure:"workspace_root"`

	// SnapshotDir holds the persisted per-session snapshot documents.
	SnapshotDir string `mapstructure:"snapshot_dir"`

	// PolicyFile optionally overrides the builtin tool danger table.
	PolicyFile string `mapstructure:"policy_file"`

	// Host and Port locate the HTTP API.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// AllowedOrigins is the CORS allowlist for the HTTP API and websocket.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AutoApprove skips confirmation prompts entirely.
	AutoApprove bool `mapstructure:"auto_approve"`

	// ApprovalTimeout bounds how long an interactive prompt waits before
	// rejecting. Zero means wait forever.
	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// ColorOutput toggles ANSI colors in terminal prompts.
	ColorOutput bool `mapstructure:"color_output"`
}

// Load resolves configuration in three layers: defaults, then the config file
// (~/.quill/config.yaml unless overridden), then QUILL_* environment
// variables. A missing config file is not an error.
func Load(configFile string) (*RuntimeConfig, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".quill"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing files fall back to defaults; malformed files are an error.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg RuntimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.WorkspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve workspace root: %w", err)
		}
		cfg.WorkspaceRoot = wd
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace_root", "")
	v.SetDefault("snapshot_dir", "~/.quill/snapshots")
	v.SetDefault("policy_file", "")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8420)
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("auto_approve", false)
	v.SetDefault("approval_timeout", 5*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("color_output", true)
}

// Addr returns the host:port the HTTP server binds to.
func (c *RuntimeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
