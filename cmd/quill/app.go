package main

import (
	"fmt"

	"quill/internal/approval"
	"quill/internal/config"
	"quill/internal/snapshot"
	"quill/internal/snapshot/filestore"
	"quill/internal/toolregistry"
	"quill/internal/utils"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg      *config.RuntimeConfig
	store    *snapshot.Store
	restorer *snapshot.Engine
	registry *toolregistry.Registry
	policy   *toolregistry.Policy
	gateway  *approval.Gateway
}

// buildApp resolves configuration and wires the snapshot store, restore
// engine, tool registry and approval gateway in dependency order.
func buildApp(configFile, workspaceOverride string, autoApprove bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if workspaceOverride != "" {
		cfg.WorkspaceRoot = workspaceOverride
	}
	if autoApprove {
		cfg.AutoApprove = true
	}

	utils.GetLogger().SetLevel(utils.ParseLevel(cfg.LogLevel))

	persister, err := filestore.New(cfg.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot dir: %w", err)
	}
	store := snapshot.NewStore(persister)
	restorer := snapshot.NewEngine(store, nil)

	registry, err := toolregistry.NewRegistry(toolregistry.Config{WorkspaceRoot: cfg.WorkspaceRoot})
	if err != nil {
		return nil, err
	}

	policy, err := toolregistry.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	if cfg.AutoApprove {
		policy = toolregistry.AutoApproveAll(policy)
	}

	return &app{
		cfg:      cfg,
		store:    store,
		restorer: restorer,
		registry: registry,
		policy:   policy,
		gateway:  approval.NewGateway(registry, policy, store),
	}, nil
}
