package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quill/internal/agent/ports"
	"quill/internal/snapshot"
	"quill/internal/toolregistry"
)

// scriptedTool is a registrable executor with a programmable outcome.
type scriptedTool struct {
	name     string
	execErr  error
	result   *ports.ToolResult
	mu       sync.Mutex
	executed int
}

func (t *scriptedTool) Execute(ctx context.Context, call ports.ToolCall) (*ports.ToolResult, error) {
	t.mu.Lock()
	t.executed++
	t.mu.Unlock()
	if t.execErr != nil {
		return nil, t.execErr
	}
	result := *t.result
	result.CallID = call.ID
	return &result, nil
}

func (t *scriptedTool) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{Name: t.name, Description: "scripted"}
}

func (t *scriptedTool) Metadata() ports.ToolMetadata {
	return ports.ToolMetadata{Name: t.name, Category: "test", DangerLevel: ports.DangerSafe}
}

func (t *scriptedTool) executions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.executed
}

func newTestGateway(t *testing.T, tool *scriptedTool, confirm bool) (*Gateway, *snapshot.Store) {
	t.Helper()

	registry, err := toolregistry.NewRegistry(toolregistry.Config{WorkspaceRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	policy := toolregistry.DefaultPolicy()
	policy.Set(tool.name, toolregistry.ToolPolicy{
		RequiresConfirmation: confirm,
		DangerLevel:          ports.DangerCaution,
	})

	store := snapshot.NewStore(nil)
	return NewGateway(registry, policy, store), store
}

func TestProposeAutoExecutesWhenNoConfirmationRequired(t *testing.T) {
	tool := &scriptedTool{
		name: "echo",
		result: &ports.ToolResult{
			Content: "done",
			Changes: []ports.FileChange{
				{FilePath: "/tmp/a.txt", Operation: "create", NextState: "hi"},
			},
		},
	}
	gw, store := newTestGateway(t, tool, false)

	call := ports.ToolCall{Name: "echo", SessionID: "sess-1", MessageID: "msg-1"}
	inv, err := gw.Propose(context.Background(), call)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	if inv.State() != StateCompleted {
		t.Fatalf("expected completed, got %s", inv.State())
	}
	if tool.executions() != 1 {
		t.Fatalf("expected exactly one execution, got %d", tool.executions())
	}

	pending := store.PendingFor("sess-1")
	if len(pending) != 1 || pending[0].FilePath != "/tmp/a.txt" {
		t.Fatalf("expected one recorded snapshot, got %+v", pending)
	}
}

func TestApproveExecutesParkedInvocation(t *testing.T) {
	tool := &scriptedTool{
		name: "writer",
		result: &ports.ToolResult{
			Content: "wrote",
			Changes: []ports.FileChange{
				{FilePath: "/tmp/b.txt", Operation: "update", PrevState: "old", NextState: "new"},
			},
		},
	}
	gw, store := newTestGateway(t, tool, true)

	inv, err := gw.Propose(context.Background(), ports.ToolCall{Name: "writer", SessionID: "sess-2", MessageID: "msg-1"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if inv.State() != StateAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", inv.State())
	}
	if tool.executions() != 0 {
		t.Fatal("tool must not run before approval")
	}

	if err := gw.Approve(context.Background(), inv.ID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if inv.State() != StateCompleted {
		t.Fatalf("expected completed, got %s", inv.State())
	}

	pending := store.PendingFor("sess-2")
	if len(pending) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(pending))
	}
}

func TestDuplicateApproveIsNoOp(t *testing.T) {
	tool := &scriptedTool{name: "writer", result: &ports.ToolResult{Content: "ok"}}
	gw, _ := newTestGateway(t, tool, true)

	inv, err := gw.Propose(context.Background(), ports.ToolCall{Name: "writer", SessionID: "s", MessageID: "m"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	if err := gw.Approve(context.Background(), inv.ID); err != nil {
		t.Fatalf("first Approve failed: %v", err)
	}
	if err := gw.Approve(context.Background(), inv.ID); err != nil {
		t.Fatalf("duplicate Approve must be a no-op, got: %v", err)
	}
	if tool.executions() != 1 {
		t.Fatalf("duplicate approve re-executed the tool: %d runs", tool.executions())
	}
}

func TestCancelIsTerminalAndNonRetriable(t *testing.T) {
	tool := &scriptedTool{name: "writer", result: &ports.ToolResult{Content: "ok"}}
	gw, _ := newTestGateway(t, tool, true)

	inv, err := gw.Propose(context.Background(), ports.ToolCall{Name: "writer", SessionID: "s", MessageID: "m"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	if err := gw.Cancel(context.Background(), inv.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if inv.State() != StateCancelled {
		t.Fatalf("expected cancelled, got %s", inv.State())
	}

	// Cancelled invocations cannot be revived by a late approval.
	if err := gw.Approve(context.Background(), inv.ID); err != nil {
		t.Fatalf("late Approve should be ignored, got: %v", err)
	}
	if inv.State() != StateCancelled {
		t.Fatalf("late approve revived a cancelled invocation: %s", inv.State())
	}
	if tool.executions() != 0 {
		t.Fatal("cancelled invocation executed the tool")
	}

	// Repeat cancel is a no-op; cancelling a terminal-but-not-cancelled
	// invocation is rejected elsewhere.
	if err := gw.Cancel(context.Background(), inv.ID); err != nil {
		t.Fatalf("repeat Cancel should be a no-op, got: %v", err)
	}
}

func TestCancelRejectedOutsideAwaitingApproval(t *testing.T) {
	tool := &scriptedTool{name: "echo", result: &ports.ToolResult{Content: "ok"}}
	gw, _ := newTestGateway(t, tool, false)

	inv, err := gw.Propose(context.Background(), ports.ToolCall{Name: "echo", SessionID: "s", MessageID: "m"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	err = gw.Cancel(context.Background(), inv.ID)
	if !errors.Is(err, ErrNotAwaitingApproval) {
		t.Fatalf("expected ErrNotAwaitingApproval, got %v", err)
	}
}

func TestFailedExecutionCreatesNoSnapshot(t *testing.T) {
	tool := &scriptedTool{name: "broken", execErr: errors.New("disk full")}
	gw, store := newTestGateway(t, tool, false)

	inv, err := gw.Propose(context.Background(), ports.ToolCall{Name: "broken", SessionID: "sess-f", MessageID: "m"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if inv.State() != StateFailed {
		t.Fatalf("expected failed, got %s", inv.State())
	}
	if inv.Result() == nil || inv.Result().Error == nil {
		t.Fatal("failed invocation should carry the execution error")
	}

	if pending := store.PendingFor("sess-f"); len(pending) != 0 {
		t.Fatalf("failed execution must record nothing, got %d snapshots", len(pending))
	}
}

func TestWaitReturnsTerminalResult(t *testing.T) {
	tool := &scriptedTool{name: "writer", result: &ports.ToolResult{Content: "finished"}}
	gw, _ := newTestGateway(t, tool, true)

	inv, err := gw.Propose(context.Background(), ports.ToolCall{Name: "writer", SessionID: "s", MessageID: "m"})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = gw.Approve(context.Background(), inv.ID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := gw.Wait(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if result == nil || result.Content != "finished" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunDrivesApproverDecision(t *testing.T) {
	tool := &scriptedTool{name: "writer", result: &ports.ToolResult{Content: "ok"}}
	gw, _ := newTestGateway(t, tool, true)

	result, err := gw.Run(context.Background(), ports.ToolCall{Name: "writer", SessionID: "s", MessageID: "m"}, NewNoOpApprover())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Content != "ok" {
		t.Fatalf("unexpected result content: %q", result.Content)
	}
	if tool.executions() != 1 {
		t.Fatalf("expected one execution, got %d", tool.executions())
	}
}

func TestUnknownInvocation(t *testing.T) {
	tool := &scriptedTool{name: "writer", result: &ports.ToolResult{Content: "ok"}}
	gw, _ := newTestGateway(t, tool, true)

	if err := gw.Approve(context.Background(), "inv_missing"); !errors.Is(err, ErrInvocationNotFound) {
		t.Fatalf("expected ErrInvocationNotFound, got %v", err)
	}
	if err := gw.Cancel(context.Background(), "inv_missing"); !errors.Is(err, ErrInvocationNotFound) {
		t.Fatalf("expected ErrInvocationNotFound, got %v", err)
	}
}
