package ports

import "context"

// ApprovalRequest is what the gateway shows a user before a confirmed tool
// runs: the call identity plus a rendered summary and, when the tool can
// preview its effect, a prospective diff.
type ApprovalRequest struct {
	Operation  string
	FilePath   string
	Diff       string
	Summary    string
	ToolCallID string
	ToolName   string
	Arguments  map[string]any
}

// ApprovalResponse carries the user's decision back to the gateway. Action
// is one of "approve", "reject" or "quit".
type ApprovalResponse struct {
	Approved bool
	Action   string
	Message  string
}

// Approver turns an approval request into a decision. Implementations block
// until the user answers or ctx expires.
type Approver interface {
	RequestApproval(ctx context.Context, request *ApprovalRequest) (*ApprovalResponse, error)
}
