package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quill/internal/snapshot"
)

func newSessionsCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with recorded snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			sessions := application.store.Sessions()
			if len(sessions) == 0 {
				fmt.Println(gray("No sessions recorded."))
				return nil
			}
			for _, sessionID := range sessions {
				pending := application.store.PendingFor(sessionID)
				groups := application.store.TimelineFor(sessionID)
				fmt.Printf("%s  %s\n", cyan(sessionID),
					gray(fmt.Sprintf("%d pending across %d messages", len(pending), len(groups))))
			}
			return nil
		},
	}
}

func newPendingCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pending <session-id>",
		Short: "List a session's pending file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			pending := application.store.PendingFor(args[0])
			if len(pending) == 0 {
				fmt.Println(gray("No pending changes."))
				return nil
			}
			for _, snap := range pending {
				fmt.Printf("%s %s %s  %s\n",
					yellow("●"), snap.Operation, snap.FilePath,
					gray(fmt.Sprintf("message %s", snap.MessageID)))
			}
			fmt.Printf("\n%d pending change(s)\n", len(pending))
			return nil
		},
	}
}

func newTimelineCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <session-id>",
		Short: "Show a session's snapshot history grouped by message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			groups := application.store.TimelineFor(args[0])
			if len(groups) == 0 {
				fmt.Println(gray("No snapshots recorded for this session."))
				return nil
			}
			for _, group := range groups {
				when := time.Unix(0, group.Timestamp).Format("15:04:05")
				fmt.Printf("\n%s %s  %s\n", bold("message"), cyan(group.MessageID), gray(when))
				for _, snap := range group.Snapshots {
					fmt.Printf("  %s %-6s %s  %s\n",
						statusDot(snap.Status), snap.Operation, snap.FilePath, gray(string(snap.Status)))
				}
			}
			return nil
		},
	}
}

func statusDot(status snapshot.Status) string {
	switch status {
	case snapshot.StatusPending:
		return yellow("●")
	case snapshot.StatusAccepted:
		return green("●")
	case snapshot.StatusReverted:
		return gray("●")
	default:
		return red("●")
	}
}

func newAcceptAllCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accept-all <session-id>",
		Short: "Mark every pending change in a session as accepted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			accepted, err := application.restorer.AcceptAll(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s accepted %d change(s)\n", green("✓"), accepted)
			return nil
		},
	}
}

func newRejectAllCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reject-all <session-id>",
		Short: "Revert every pending change in a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			report, err := application.restorer.RejectAll(args[0])
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
}

func newRestoreCommand(flags *rootFlags) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "restore <session-id> <message-id>",
		Short: "Restore files to the state before or after a message's changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(flags.configFile, flags.workspace, flags.autoApprove)
			if err != nil {
				return err
			}

			restoreTarget := snapshot.RestoreTarget(target)
			if !restoreTarget.Valid() {
				return fmt.Errorf("unknown restore target %q (want before or after)", target)
			}

			report, err := application.restorer.RestoreToState(args[0], args[1], restoreTarget)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "before", "Restore target: before | after")
	return cmd
}

func printReport(report *snapshot.RestoreReport) {
	for _, result := range report.Results {
		if result.Succeeded {
			fmt.Printf("%s %s\n", green("✓"), result.FilePath)
		} else {
			fmt.Printf("%s %s  %s\n", red("✗"), result.FilePath, gray(result.Error))
		}
	}
	failed := report.Failed()
	if len(failed) > 0 {
		fmt.Printf("\n%s %d of %d file(s) failed to restore\n", red("✗"), len(failed), len(report.Results))
		return
	}
	fmt.Printf("\n%s restored %d file(s)\n", green("✓"), len(report.Results))
}
