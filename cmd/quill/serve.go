package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpserver "quill/internal/server/http"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var (
		host  string
		port  int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the approval gateway and snapshot timeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			cfg := application.cfg
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}

			serverCfg := httpserver.DefaultConfig()
			serverCfg.Addr = cfg.Addr()
			serverCfg.AllowedOrigins = cfg.AllowedOrigins
			serverCfg.Debug = debug

			srv := httpserver.NewServer(serverCfg, application.store, application.restorer, application.gateway, application.registry)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Printf("%s quill listening on %s (workspace %s)\n", green("▸"), bold(cfg.Addr()), cfg.WorkspaceRoot)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(srv.Start)
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Bind host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Bind port (overrides config)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Verbose HTTP logging")

	return cmd
}
