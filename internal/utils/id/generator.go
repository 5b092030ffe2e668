package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// newIdentifier produces a prefixed identifier so logs stay readable when
// several identifier kinds appear on one line.
func newIdentifier(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s", prefix, raw)
}

// NewSessionID generates a new session identifier with a stable prefix for display.
func NewSessionID() string {
	return newIdentifier("session")
}

// NewInvocationID generates an identifier for one tool invocation.
// A retried tool call must be issued under a fresh invocation id.
func NewInvocationID() string {
	return newIdentifier("inv")
}

// NewSnapshotID generates an identifier for a recorded snapshot.
func NewSnapshotID() string {
	return newIdentifier("snap")
}

// NewMessageID generates an identifier for an authoring turn.
func NewMessageID() string {
	return newIdentifier("msg")
}
