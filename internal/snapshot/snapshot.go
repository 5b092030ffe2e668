package snapshot

import (
	"errors"
	"fmt"
)

// Operation is the kind of file mutation a snapshot records.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether the operation is one of the known kinds.
func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Status is the resolution state of a snapshot. Only Status may change after
// a snapshot is recorded; every other field is immutable.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusReverted Status = "reverted"
	StatusFailed   Status = "failed"
)

// Structural errors surfaced by the store and restoration engine. Per-file
// failures during restore are never returned as errors; they appear in the
// RestoreReport instead.
var (
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrSessionNotFound = errors.New("session not found")
	ErrGroupNotFound   = errors.New("message group not found")
)

// Snapshot is the atomic unit of change tracking: the before/after content of
// one file for one tool-driven mutation found within one authoring turn.
type Snapshot struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id"`
	FilePath  string    `json:"file_path"`
	Operation Operation `json:"operation"`
	PrevState string    `json:"prev_state"`
	NextState string    `json:"next_state"`
	Status    Status    `json:"status"`
	Timestamp int64     `json:"timestamp"`
}

// Input carries the caller-supplied fields for a new snapshot. Identity,
// status and timestamp are assigned by the store.
type Input struct {
	FilePath  string    `json:"file_path"`
	Operation Operation `json:"operation"`
	PrevState string    `json:"prev_state"`
	NextState string    `json:"next_state"`
}

// Validate enforces the record-time invariants: a create has no prior
// content and a delete leaves none behind.
func (in Input) Validate() error {
	if in.FilePath == "" {
		return fmt.Errorf("%w: file path is required", ErrInvalidSnapshot)
	}
	if !in.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidSnapshot, in.Operation)
	}
	if in.Operation == OpCreate && in.PrevState != "" {
		return fmt.Errorf("%w: create must have empty prev state (%s)", ErrInvalidSnapshot, in.FilePath)
	}
	if in.Operation == OpDelete && in.NextState != "" {
		return fmt.Errorf("%w: delete must have empty next state (%s)", ErrInvalidSnapshot, in.FilePath)
	}
	return nil
}

// MessageGroup is one authoring turn's snapshots in timestamp order. The
// group timestamp is the timestamp of its first snapshot.
type MessageGroup struct {
	MessageID string     `json:"message_id"`
	Snapshots []Snapshot `json:"snapshots"`
	Timestamp int64      `json:"timestamp"`
}
