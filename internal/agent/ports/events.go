package ports

import "time"

// Snapshot event types published by the snapshot store.
const (
	EventSnapshotRecorded = "snapshot_recorded"
	EventStatusChanged    = "status_changed"
	EventSessionCleared   = "session_cleared"
)

// SnapshotEvent describes a change in a session's snapshot set. UI layers use
// the Pending/Messages counters to render "N pending changes across M
// messages" badges without re-querying the store.
type SnapshotEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"session_id"`
	MessageID  string    `json:"message_id,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	FilePath   string    `json:"file_path,omitempty"`
	Status     string    `json:"status,omitempty"`
	Pending    int       `json:"pending"`
	Messages   int       `json:"messages"`
	Timestamp  time.Time `json:"timestamp"`
}

// SnapshotListener consumes snapshot events (used by websocket/UI layers)
type SnapshotListener interface {
	OnSnapshotEvent(event SnapshotEvent)
}
