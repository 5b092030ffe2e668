package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"

	"quill/internal/agent/ports"
)

// InteractiveApprover collects approval decisions from a terminal prompt.
type InteractiveApprover struct {
	timeout      time.Duration
	autoApprove  bool
	colorEnabled bool
}

// NewInteractiveApprover creates a terminal approver. A zero timeout means
// the prompt waits indefinitely.
func NewInteractiveApprover(timeout time.Duration, autoApprove, colorEnabled bool) *InteractiveApprover {
	return &InteractiveApprover{
		timeout:      timeout,
		autoApprove:  autoApprove,
		colorEnabled: colorEnabled,
	}
}

// RequestApproval shows the pending operation and asks the user to decide.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, request *ports.ApprovalRequest) (*ports.ApprovalResponse, error) {
	if a.autoApprove {
		return &ports.ApprovalResponse{
			Approved: true,
			Action:   "approve",
			Message:  "Auto-approved",
		}, nil
	}

	a.displayRequest(request)

	return a.promptWithTimeout(ctx)
}

// displayRequest prints the operation header, summary and diff.
func (a *InteractiveApprover) displayRequest(request *ports.ApprovalRequest) {
	separator := strings.Repeat("=", 80)

	fmt.Println()
	fmt.Println(a.colorize(separator, color.FgCyan))
	fmt.Println(a.colorize(fmt.Sprintf("Tool: %s", request.ToolName), color.FgYellow, color.Bold))
	if request.FilePath != "" {
		fmt.Println(a.colorize(fmt.Sprintf("File: %s", request.FilePath), color.FgWhite))
	}
	fmt.Println(a.colorize(separator, color.FgCyan))

	if request.Summary != "" {
		fmt.Println()
		fmt.Println(a.colorize("Arguments:", color.FgCyan))
		fmt.Println(request.Summary)
	}

	if request.Diff != "" {
		fmt.Println()
		fmt.Println(a.colorize("Changes:", color.FgCyan))
		fmt.Println(request.Diff)
	}

	fmt.Println()
	fmt.Println(a.colorize(separator, color.FgCyan))
}

// promptWithTimeout runs the prompt in a goroutine so a slow user cannot
// block the gateway past the configured timeout. Timeout rejects. promptui
// offers no way to abort a running Select, so after a timeout the prompt
// goroutine stays parked on stdin until the next keypress; its late answer
// lands in a buffered channel nobody reads. Acceptable for a CLI that exits
// shortly after.
func (a *InteractiveApprover) promptWithTimeout(ctx context.Context) (*ports.ApprovalResponse, error) {
	responseChan := make(chan *ports.ApprovalResponse, 1)
	errorChan := make(chan error, 1)

	go func() {
		response, err := a.promptDecision()
		if err != nil {
			errorChan <- err
			return
		}
		responseChan <- response
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	select {
	case response := <-responseChan:
		return response, nil
	case err := <-errorChan:
		return nil, err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Println()
			fmt.Println(a.colorize("Timeout - operation rejected", color.FgRed))
			return &ports.ApprovalResponse{
				Approved: false,
				Action:   "reject",
				Message:  "Approval timeout",
			}, nil
		}
		return nil, ctx.Err()
	}
}

// promptDecision renders the approve/reject menu.
func (a *InteractiveApprover) promptDecision() (*ports.ApprovalResponse, error) {
	prompt := promptui.Select{
		Label: "Apply these changes?",
		Items: []string{
			"Yes, apply",
			"No, reject",
			"Quit",
		},
		Size: 3,
	}

	index, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			return &ports.ApprovalResponse{
				Approved: false,
				Action:   "reject",
				Message:  "Interrupted by user",
			}, nil
		}
		return nil, fmt.Errorf("approval prompt failed: %w", err)
	}

	switch index {
	case 0:
		return &ports.ApprovalResponse{
			Approved: true,
			Action:   "approve",
			Message:  "Approved by user",
		}, nil
	case 1:
		return &ports.ApprovalResponse{
			Approved: false,
			Action:   "reject",
			Message:  "Rejected by user",
		}, nil
	default:
		return &ports.ApprovalResponse{
			Approved: false,
			Action:   "quit",
			Message:  "User requested quit",
		}, nil
	}
}

// colorize applies color to text when color output is enabled.
func (a *InteractiveApprover) colorize(text string, attributes ...color.Attribute) string {
	if !a.colorEnabled {
		return text
	}
	return color.New(attributes...).Sprint(text)
}

// NoOpApprover always approves. Used by auto-approve mode and tests.
type NoOpApprover struct{}

// NewNoOpApprover creates an approver that approves everything.
func NewNoOpApprover() *NoOpApprover {
	return &NoOpApprover{}
}

// RequestApproval always approves.
func (a *NoOpApprover) RequestApproval(ctx context.Context, request *ports.ApprovalRequest) (*ports.ApprovalResponse, error) {
	return &ports.ApprovalResponse{
		Approved: true,
		Action:   "approve",
		Message:  "Auto-approved (no-op)",
	}, nil
}
