package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quill/internal/snapshot"
	"quill/internal/utils"
)

// Store persists one JSON document per session under baseDir. Every snapshot
// field round-trips exactly: prev/next states are plain strings (no
// omitempty), so the empty states of create/delete snapshots survive reload.
type Store struct {
	baseDir string
	logger  *utils.Logger
}

type sessionDocument struct {
	SessionID string              `json:"session_id"`
	UpdatedAt time.Time           `json:"updated_at"`
	Snapshots []snapshot.Snapshot `json:"snapshots"`
}

// New creates a file-backed snapshot persister rooted at baseDir. A leading
// "~/" is expanded against the user's home directory.
func New(baseDir string) (*Store, error) {
	if strings.HasPrefix(baseDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		baseDir = filepath.Join(home, baseDir[2:])
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{
		baseDir: baseDir,
		logger:  utils.NewComponentLogger("SnapshotFileStore"),
	}, nil
}

// Load returns the persisted snapshots for a session, or (nil, nil) when no
// document exists.
func (s *Store) Load(sessionID string) ([]snapshot.Snapshot, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	var doc sessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Error("Failed to decode session file %s: %v. Preview: %s", sessionID, err, previewJSON(data))
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if doc.Snapshots == nil {
		doc.Snapshots = []snapshot.Snapshot{}
	}
	return doc.Snapshots, nil
}

// Save replaces the persisted document for a session.
func (s *Store) Save(sessionID string, snapshots []snapshot.Snapshot) error {
	doc := sessionDocument{
		SessionID: sessionID,
		UpdatedAt: time.Now(),
		Snapshots: snapshots,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	return os.WriteFile(s.path(sessionID), data, 0644)
}

// Delete removes the persisted document. A missing document is not an error.
func (s *Store) Delete(sessionID string) error {
	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Sessions lists session ids with a persisted document.
func (s *Store) Sessions() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return ids, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s.json", sessionID))
}

func previewJSON(data []byte) string {
	const maxPreview = 512
	preview := strings.TrimSpace(string(data))
	preview = strings.ReplaceAll(preview, "\n", " ")
	preview = strings.ReplaceAll(preview, "\t", " ")
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "... (truncated)"
	}
	return preview
}
