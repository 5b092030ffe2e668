package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quill/internal/agent/ports"
	"quill/internal/approval"
	"quill/internal/snapshot"
)

// APIResponse is the envelope for every JSON endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, snapshot.ErrSessionNotFound),
		errors.Is(err, snapshot.ErrGroupNotFound),
		errors.Is(err, approval.ErrInvocationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, approval.ErrNotAwaitingApproval),
		errors.Is(err, approval.ErrDuplicateInvocation):
		status = http.StatusConflict
	case errors.Is(err, snapshot.ErrInvalidSnapshot):
		status = http.StatusBadRequest
	}
	c.JSON(status, APIResponse{Success: false, Error: err.Error()})
}

func (s *Server) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{
		"sessions": s.store.Sessions(),
	}})
}

func (s *Server) handlePending(c *gin.Context) {
	sessionID := c.Param("id")
	pending := s.store.PendingFor(sessionID)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{
		"session_id": sessionID,
		"pending":    pending,
		"count":      len(pending),
	}})
}

func (s *Server) handleTimeline(c *gin.Context) {
	sessionID := c.Param("id")
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{
		"session_id": sessionID,
		"timeline":   s.store.TimelineFor(sessionID),
	}})
}

func (s *Server) handleAcceptAll(c *gin.Context) {
	sessionID := c.Param("id")
	accepted, err := s.restorer.AcceptAll(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{
		"session_id": sessionID,
		"accepted":   accepted,
	}})
}

func (s *Server) handleRejectAll(c *gin.Context) {
	sessionID := c.Param("id")
	report, err := s.restorer.RejectAll(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: report})
}

type restoreRequest struct {
	Target string `json:"target" binding:"required"`
}

func (s *Server) handleRestore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "target is required: before | after"})
		return
	}

	target := snapshot.RestoreTarget(req.Target)
	if !target.Valid() {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "unknown restore target: " + req.Target})
		return
	}

	report, err := s.restorer.RestoreToState(c.Param("id"), c.Param("messageId"), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: report})
}

func (s *Server) handleClearSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := s.store.ClearSession(sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"session_id": sessionID}})
}

func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{
		"tools": s.registry.List(),
	}})
}

// invocationView is the wire representation of a gateway invocation.
type invocationView struct {
	ID     string            `json:"id"`
	Tool   string            `json:"tool"`
	State  approval.State    `json:"state"`
	Result *ports.ToolResult `json:"result,omitempty"`
}

func viewOf(inv *approval.Invocation) invocationView {
	return invocationView{
		ID:     inv.ID,
		Tool:   inv.Call.Name,
		State:  inv.State(),
		Result: inv.Result(),
	}
}

func (s *Server) handlePropose(c *gin.Context) {
	var call ports.ToolCall
	if err := c.ShouldBindJSON(&call); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "invalid tool call: " + err.Error()})
		return
	}
	if call.Name == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "tool name is required"})
		return
	}

	inv, err := s.gateway.Propose(c.Request.Context(), call)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: viewOf(inv)})
}

func (s *Server) handleGetInvocation(c *gin.Context) {
	inv, ok := s.gateway.Get(c.Param("id"))
	if !ok {
		respondError(c, approval.ErrInvocationNotFound)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: viewOf(inv)})
}

func (s *Server) handleApprove(c *gin.Context) {
	id := c.Param("id")
	if err := s.gateway.Approve(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	inv, _ := s.gateway.Get(id)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: viewOf(inv)})
}

func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")
	if err := s.gateway.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	inv, _ := s.gateway.Get(id)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: viewOf(inv)})
}
