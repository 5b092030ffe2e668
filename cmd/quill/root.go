package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configFile  string
	workspace   string
	autoApprove bool
}

// NewRootCommand creates the quill root command.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "quill",
		Short: "Tool approval gateway and snapshot timeline for AI coding sessions",
		Long: fmt.Sprintf(`%s

quill mediates file mutations proposed by an AI coding assistant. Dangerous
tool calls are held for explicit approval, every completed mutation is
snapshotted, and any message in a session's history can be restored to the
state before or after its changes.

%s
  quill serve                                  # Start the HTTP API
  quill run file_write '{"path":"a.txt","content":"hi"}'
  quill timeline sess_abc                      # Show a session's change history
  quill restore sess_abc msg_1 --target before # Roll a message's changes back
  quill reject-all sess_abc                    # Revert everything pending`,
			bold("quill"),
			bold("EXAMPLES:")),
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Config file (default ~/.quill/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flags.workspace, "workspace", "w", "", "Workspace root for file tools")
	rootCmd.PersistentFlags().BoolVar(&flags.autoApprove, "auto-approve", false, "Execute every tool call without confirmation")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newRunCommand(flags))
	rootCmd.AddCommand(newSessionsCommand(flags))
	rootCmd.AddCommand(newPendingCommand(flags))
	rootCmd.AddCommand(newTimelineCommand(flags))
	rootCmd.AddCommand(newAcceptAllCommand(flags))
	rootCmd.AddCommand(newRejectAllCommand(flags))
	rootCmd.AddCommand(newRestoreCommand(flags))

	return rootCmd
}
