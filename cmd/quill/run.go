package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/agent/ports"
	"quill/internal/approval"
	"quill/internal/parser"
	"quill/internal/utils/id"
)

func newRunCommand(flags *rootFlags) *cobra.Command {
	var (
		sessionID string
		messageID string
	)

	cmd := &cobra.Command{
		Use:   "run <tool> [json-arguments]",
		Short: "Execute a single tool call through the approval gateway",
		Long: `Execute one tool call. Calls whose policy requires confirmation show the
proposed operation and prompt before anything touches disk; completed
mutations are snapshotted into the session timeline.

Examples:
  quill run list_files '{"path":"."}'
  quill run file_write '{"path":"notes.txt","content":"hello"}' -s sess_demo
  quill run file_delete '{"path":"old.txt"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			rawArgs := ""
			if len(args) > 1 {
				rawArgs = args[1]
			}
			arguments, err := parser.DecodeArguments(rawArgs)
			if err != nil {
				return err
			}

			if sessionID == "" {
				sessionID = id.NewSessionID()
			}
			if messageID == "" {
				messageID = id.NewMessageID()
			}

			approver := approval.NewInteractiveApprover(
				application.cfg.ApprovalTimeout,
				application.cfg.AutoApprove,
				application.cfg.ColorOutput,
			)

			result, err := application.gateway.Run(cmd.Context(), ports.ToolCall{
				Name:      args[0],
				Arguments: arguments,
				SessionID: sessionID,
				MessageID: messageID,
			}, approver)
			if err != nil {
				return err
			}

			if result.Error != nil {
				fmt.Printf("%s %v\n", red("✗"), result.Error)
				return result.Error
			}

			if result.Content != "" {
				fmt.Println(result.Content)
			}
			for _, change := range result.Changes {
				fmt.Printf("%s %s %s\n", green("✓"), change.Operation, change.FilePath)
			}
			if len(result.Changes) > 0 {
				fmt.Printf("\n%s session %s, message %s\n", gray("recorded:"), cyan(sessionID), cyan(messageID))
				fmt.Printf("%s\n", gray(fmt.Sprintf("  quill restore %s %s --target before", sessionID, messageID)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session id (generated when empty)")
	cmd.Flags().StringVarP(&messageID, "message", "m", "", "Message id (generated when empty)")

	return cmd
}
