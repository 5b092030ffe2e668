package approval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"quill/internal/agent/ports"
	"quill/internal/observability"
	"quill/internal/snapshot"
	"quill/internal/toolregistry"
	"quill/internal/utils"
	"quill/internal/utils/id"
)

// State is the lifecycle position of one tool invocation.
type State string

const (
	StateProposed         State = "proposed"
	StateAwaitingApproval State = "awaiting_approval"
	StateExecuting        State = "executing"
	StateCompleted        State = "completed"
	StateCancelled        State = "cancelled"
	StateFailed           State = "failed"
)

// Terminal reports whether the state is one of the three terminal outcomes.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

var (
	ErrInvocationNotFound  = errors.New("invocation not found")
	ErrDuplicateInvocation = errors.New("invocation id already in use")
	ErrNotAwaitingApproval = errors.New("invocation is not awaiting approval")
)

// Recorder receives the before/after pair of every file mutated by a
// completed invocation. The snapshot store implements it.
type Recorder interface {
	Record(sessionID, messageID string, in snapshot.Input) (*snapshot.Snapshot, error)
}

// Invocation tracks one proposed tool call through the gateway state machine.
// Exactly one of completed/cancelled/failed is reached per invocation id;
// a cancelled invocation is never retried under the same id.
type Invocation struct {
	ID     string
	Call   ports.ToolCall
	Policy toolregistry.ToolPolicy

	mu     sync.Mutex
	state  State
	result *ports.ToolResult
	done   chan struct{}
}

// State returns the current lifecycle state.
func (inv *Invocation) State() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// Result returns the terminal result, or nil before a terminal state.
func (inv *Invocation) Result() *ports.ToolResult {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.result
}

// Done is closed when the invocation reaches a terminal state.
func (inv *Invocation) Done() <-chan struct{} {
	return inv.done
}

// Gateway mediates every proposed tool invocation: it decides between
// auto-execution and explicit user consent, executes the tool, and forwards
// resulting file changes to the mutation recorder.
type Gateway struct {
	mu          sync.RWMutex
	invocations map[string]*Invocation

	registry ports.ToolRegistry
	policy   *toolregistry.Policy
	recorder Recorder
	logger   *utils.Logger
}

// NewGateway creates an approval gateway. recorder may be nil when snapshot
// recording is not wanted (tests of pure execution flow).
func NewGateway(registry ports.ToolRegistry, policy *toolregistry.Policy, recorder Recorder) *Gateway {
	if policy == nil {
		policy = toolregistry.DefaultPolicy()
	}
	return &Gateway{
		invocations: make(map[string]*Invocation),
		registry:    registry,
		policy:      policy,
		recorder:    recorder,
		logger:      utils.NewComponentLogger("ApprovalGateway"),
	}
}

// Propose registers a tool call with the gateway. Calls whose policy does not
// require confirmation execute immediately; the returned invocation is then
// already terminal. Calls requiring confirmation are parked in
// awaiting_approval until Approve or Cancel arrives; the gateway itself
// applies no timeout.
func (g *Gateway) Propose(ctx context.Context, call ports.ToolCall) (*Invocation, error) {
	if call.ID == "" {
		call.ID = id.NewInvocationID()
	}

	inv := &Invocation{
		ID:     call.ID,
		Call:   call,
		Policy: g.policy.For(call.Name),
		state:  StateProposed,
		done:   make(chan struct{}),
	}

	g.mu.Lock()
	if _, exists := g.invocations[call.ID]; exists {
		g.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateInvocation, call.ID)
	}
	g.invocations[call.ID] = inv
	g.mu.Unlock()

	if inv.Policy.RequiresConfirmation {
		inv.mu.Lock()
		inv.state = StateAwaitingApproval
		inv.mu.Unlock()
		g.logger.Info("Invocation %s (%s) awaiting approval", inv.ID, call.Name)
		return inv, nil
	}

	inv.mu.Lock()
	inv.state = StateExecuting
	inv.mu.Unlock()
	g.execute(ctx, inv)
	return inv, nil
}

// Approve moves an awaiting invocation to execution. A duplicate approve,
// arriving while the invocation is executing or already terminal, is a no-op
// rather than a re-execution. Duplicate UI events must never double-write.
func (g *Gateway) Approve(ctx context.Context, invocationID string) error {
	inv, ok := g.get(invocationID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvocationNotFound, invocationID)
	}

	inv.mu.Lock()
	if inv.state != StateAwaitingApproval {
		state := inv.state
		inv.mu.Unlock()
		g.logger.Debug("Ignoring duplicate approval for %s in state %s", invocationID, state)
		return nil
	}
	inv.state = StateExecuting
	inv.mu.Unlock()

	g.execute(ctx, inv)
	return nil
}

// Cancel terminates an awaiting invocation without executing it. Cancel is
// terminal and non-retriable: retrying the tool call requires a fresh
// invocation id. Cancelling an already cancelled invocation is a no-op;
// cancelling an executing or completed one is an error.
func (g *Gateway) Cancel(ctx context.Context, invocationID string) error {
	inv, ok := g.get(invocationID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvocationNotFound, invocationID)
	}

	inv.mu.Lock()
	switch inv.state {
	case StateCancelled:
		inv.mu.Unlock()
		return nil
	case StateAwaitingApproval:
		inv.state = StateCancelled
		inv.result = &ports.ToolResult{CallID: inv.ID, Content: "Cancelled by user"}
		close(inv.done)
		inv.mu.Unlock()
		observability.ApprovalDecisions.WithLabelValues("cancelled").Inc()
		g.logger.Info("Invocation %s cancelled", invocationID)
		return nil
	default:
		state := inv.state
		inv.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotAwaitingApproval, invocationID, state)
	}
}

// Wait blocks until the invocation reaches a terminal state or ctx expires.
// Callers that want an approval timeout impose it through ctx and synthesize
// a Cancel themselves.
func (g *Gateway) Wait(ctx context.Context, invocationID string) (*ports.ToolResult, error) {
	inv, ok := g.get(invocationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvocationNotFound, invocationID)
	}

	select {
	case <-inv.done:
		return inv.Result(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run drives a tool call end to end: propose, consult the approver if the
// policy demands confirmation, and wait for the terminal result. A rejection
// from the approver becomes a Cancel.
func (g *Gateway) Run(ctx context.Context, call ports.ToolCall, approver ports.Approver) (*ports.ToolResult, error) {
	inv, err := g.Propose(ctx, call)
	if err != nil {
		return nil, err
	}

	if inv.State() == StateAwaitingApproval && approver != nil {
		response, err := approver.RequestApproval(ctx, g.buildApprovalRequest(ctx, inv))
		if err != nil {
			_ = g.Cancel(ctx, inv.ID)
			return nil, err
		}
		if response.Approved {
			if err := g.Approve(ctx, inv.ID); err != nil {
				return nil, err
			}
		} else {
			if err := g.Cancel(ctx, inv.ID); err != nil {
				return nil, err
			}
		}
	}

	return g.Wait(ctx, inv.ID)
}

// Get returns an invocation by id.
func (g *Gateway) Get(invocationID string) (*Invocation, bool) {
	return g.get(invocationID)
}

func (g *Gateway) get(invocationID string) (*Invocation, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	inv, ok := g.invocations[invocationID]
	return inv, ok
}

// execute runs the underlying tool and finishes the invocation. A tool error
// reaches the failed state and creates no snapshot; a success forwards each
// file change to the recorder in execution order.
func (g *Gateway) execute(ctx context.Context, inv *Invocation) {
	tool, err := g.registry.Get(inv.Call.Name)
	if err != nil {
		g.finish(inv, StateFailed, &ports.ToolResult{CallID: inv.ID, Error: err})
		return
	}

	result, err := tool.Execute(ctx, inv.Call)
	if err != nil {
		g.finish(inv, StateFailed, &ports.ToolResult{CallID: inv.ID, Error: err})
		return
	}
	if result == nil {
		g.finish(inv, StateFailed, &ports.ToolResult{CallID: inv.ID, Error: errors.New("tool returned no result")})
		return
	}
	if result.Error != nil {
		g.finish(inv, StateFailed, result)
		return
	}

	if g.recorder != nil {
		for _, change := range result.Changes {
			_, recordErr := g.recorder.Record(inv.Call.SessionID, inv.Call.MessageID, snapshot.Input{
				FilePath:  change.FilePath,
				Operation: snapshot.Operation(change.Operation),
				PrevState: change.PrevState,
				NextState: change.NextState,
			})
			if recordErr != nil {
				// The disk mutation already happened; a recording failure
				// must not retroactively fail the invocation.
				g.logger.Error("Failed to record snapshot for %s: %v", change.FilePath, recordErr)
			}
		}
	}

	g.finish(inv, StateCompleted, result)
}

// finish applies the terminal transition exactly once.
func (g *Gateway) finish(inv *Invocation, state State, result *ports.ToolResult) {
	inv.mu.Lock()
	if inv.state.Terminal() {
		inv.mu.Unlock()
		g.logger.Warn("Invocation %s already terminal (%s), dropping %s", inv.ID, inv.state, state)
		return
	}
	inv.state = state
	inv.result = result
	close(inv.done)
	inv.mu.Unlock()

	outcome := map[State]string{
		StateCompleted: "completed",
		StateFailed:    "failed",
		StateCancelled: "cancelled",
	}[state]
	observability.ApprovalDecisions.WithLabelValues(outcome).Inc()
	g.logger.Info("Invocation %s finished: %s", inv.ID, state)
}

// buildApprovalRequest summarizes the parked call for display. Tools that can
// preview their mutation contribute a diff; argument JSON doubles as the
// summary for the rest.
func (g *Gateway) buildApprovalRequest(ctx context.Context, inv *Invocation) *ports.ApprovalRequest {
	filePath, _ := inv.Call.Arguments["path"].(string)
	summary := ""
	if data, err := json.MarshalIndent(inv.Call.Arguments, "", "  "); err == nil {
		summary = string(data)
	}

	diff := ""
	if tool, err := g.registry.Get(inv.Call.Name); err == nil {
		if previewer, ok := tool.(ports.ChangePreviewer); ok {
			preview, previewErr := previewer.Preview(ctx, inv.Call)
			if previewErr != nil {
				diff = fmt.Sprintf("(preview unavailable: %v)", previewErr)
			} else {
				diff = preview
			}
		}
	}

	return &ports.ApprovalRequest{
		Operation:  inv.Call.Name,
		FilePath:   filePath,
		Summary:    summary,
		Diff:       diff,
		ToolCallID: inv.ID,
		ToolName:   inv.Call.Name,
		Arguments:  inv.Call.Arguments,
	}
}
