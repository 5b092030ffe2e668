package snapshot

import (
	"fmt"
	"os"
	"time"

	"quill/internal/agent/ports"
	"quill/internal/observability"
	"quill/internal/utils"
)

// RestoreTarget selects which boundary of a message group to restore to.
type RestoreTarget string

const (
	TargetBefore RestoreTarget = "before"
	TargetAfter  RestoreTarget = "after"
)

// Valid reports whether the target is a known boundary.
func (t RestoreTarget) Valid() bool {
	return t == TargetBefore || t == TargetAfter
}

// FileSystem is the raw disk primitive set the engine writes through. The
// default implementation uses the local file system; tests inject failures
// through it.
type FileSystem interface {
	WriteFile(path string, data []byte) error
	Remove(path string) error
}

type osFileSystem struct{}

func (osFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

func (osFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		// Deletion goal achieved.
		return nil
	}
	return err
}

// RestoreResult is the outcome for one file within a restore batch.
type RestoreResult struct {
	FilePath  string `json:"file_path"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// RestoreReport enumerates per-file outcomes of a restore or reject batch.
// Batches never abort on a failing file, so a report can mix successes and
// failures.
type RestoreReport struct {
	SessionID string          `json:"session_id"`
	Target    RestoreTarget   `json:"target"`
	Results   []RestoreResult `json:"results"`
}

// Failed returns the failing entries of the report.
func (r *RestoreReport) Failed() []RestoreResult {
	var failed []RestoreResult
	for _, result := range r.Results {
		if !result.Succeeded {
			failed = append(failed, result)
		}
	}
	return failed
}

// Engine moves the on-disk state of a message group's files to a target
// boundary and resolves snapshot statuses. The editor buffer layer reconciles
// its own in-memory copies after a restore; the engine only writes disk.
type Engine struct {
	store  *Store
	fs     FileSystem
	logger *utils.Logger
}

// NewEngine creates a restoration engine over the given store. fs may be nil,
// in which case the local file system is used.
func NewEngine(store *Store, fs FileSystem) *Engine {
	if fs == nil {
		fs = osFileSystem{}
	}
	return &Engine{
		store:  store,
		fs:     fs,
		logger: utils.NewComponentLogger("RestoreEngine"),
	}
}

// RestoreToState writes every file of the (sessionID, messageID) group back
// to its target boundary, in timestamp order, best-effort per file.
//
// Status transitions: a successful before-restore marks the snapshot
// reverted. A successful after-restore marks a reverted snapshot pending
// again; pending and accepted snapshots keep their status (after-restore does
// not imply re-approval). A failed file write marks the snapshot failed and
// is reported, without aborting the rest of the group.
func (e *Engine) RestoreToState(sessionID, messageID string, target RestoreTarget) (*RestoreReport, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("unknown restore target %q", target)
	}

	coll := e.store.collection(sessionID, false)
	if coll == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	coll.mu.Lock()
	if !groupExistsLocked(coll, messageID) {
		coll.mu.Unlock()
		return nil, fmt.Errorf("%w: %s/%s", ErrGroupNotFound, sessionID, messageID)
	}

	report := &RestoreReport{SessionID: sessionID, Target: target}
	e.restoreGroupLocked(coll, messageID, target, false, report)

	coll.version++
	e.store.persistLocked(sessionID, coll)
	pending, messages := pendingStatsLocked(coll)
	coll.mu.Unlock()

	e.notifyStatus(sessionID, messageID, pending, messages)
	observability.RestoreOperations.WithLabelValues(string(target)).Inc()
	return report, nil
}

// AcceptAll marks every pending snapshot of the session accepted. Acceptance
// is a pure acknowledgment: the mutations already happened at proposal time,
// so no disk I/O occurs. Returns the number of snapshots accepted.
func (e *Engine) AcceptAll(sessionID string) (int, error) {
	coll := e.store.collection(sessionID, false)
	if coll == nil {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	coll.mu.Lock()
	accepted := 0
	for i := range coll.snapshots {
		if coll.snapshots[i].Status == StatusPending {
			coll.snapshots[i].Status = StatusAccepted
			accepted++
		}
	}
	if accepted == 0 {
		coll.mu.Unlock()
		return 0, nil
	}

	coll.version++
	e.store.persistLocked(sessionID, coll)
	pending, messages := pendingStatsLocked(coll)
	coll.mu.Unlock()

	e.notifyStatus(sessionID, "", pending, messages)
	return accepted, nil
}

// RejectAll restores every pending snapshot of the session to its before
// state. Groups are unwound newest first so sequential edits to the same file
// land on the oldest pending prev state; within each group files are
// processed in timestamp order.
func (e *Engine) RejectAll(sessionID string) (*RestoreReport, error) {
	coll := e.store.collection(sessionID, false)
	if coll == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	coll.mu.Lock()
	groups := groupByMessageLocked(coll)
	report := &RestoreReport{SessionID: sessionID, Target: TargetBefore}
	for i := len(groups) - 1; i >= 0; i-- {
		e.restoreGroupLocked(coll, groups[i].MessageID, TargetBefore, true, report)
	}

	coll.version++
	e.store.persistLocked(sessionID, coll)
	pending, messages := pendingStatsLocked(coll)
	coll.mu.Unlock()

	e.notifyStatus(sessionID, "", pending, messages)
	observability.RestoreOperations.WithLabelValues(string(TargetBefore)).Inc()
	return report, nil
}

// restoreGroupLocked applies the restore algorithm to one message group. The
// caller holds the collection mutex. When onlyPending is set, snapshots that
// are not pending are skipped (the reject scope).
func (e *Engine) restoreGroupLocked(coll *collection, messageID string, target RestoreTarget, onlyPending bool, report *RestoreReport) {
	for i := range coll.snapshots {
		snap := &coll.snapshots[i]
		if snap.MessageID != messageID {
			continue
		}
		if onlyPending && snap.Status != StatusPending {
			continue
		}

		if err := e.applyTarget(snap, target); err != nil {
			e.logger.Warn("Restore %s of %s failed: %v", target, snap.FilePath, err)
			snap.Status = StatusFailed
			report.Results = append(report.Results, RestoreResult{
				FilePath: snap.FilePath,
				Error:    err.Error(),
			})
			observability.RestoreFailures.Inc()
			continue
		}

		switch target {
		case TargetBefore:
			snap.Status = StatusReverted
		case TargetAfter:
			// Only a previously reverted snapshot returns to pending:
			// after-restore never re-approves, and restoring an already
			// pending or accepted snapshot is an explicit success no-op.
			if snap.Status == StatusReverted {
				snap.Status = StatusPending
			}
		}
		report.Results = append(report.Results, RestoreResult{FilePath: snap.FilePath, Succeeded: true})
	}
}

// applyTarget performs the single disk write or delete for one snapshot.
func (e *Engine) applyTarget(snap *Snapshot, target RestoreTarget) error {
	switch target {
	case TargetBefore:
		if snap.Operation == OpCreate {
			// The file did not exist before this turn.
			return e.fs.Remove(snap.FilePath)
		}
		return e.fs.WriteFile(snap.FilePath, []byte(snap.PrevState))
	case TargetAfter:
		if snap.Operation == OpDelete {
			return e.fs.Remove(snap.FilePath)
		}
		return e.fs.WriteFile(snap.FilePath, []byte(snap.NextState))
	}
	return fmt.Errorf("unknown restore target %q", target)
}

// notifyStatus publishes a status-change event with the pending counters
// computed before the collection mutex was released.
func (e *Engine) notifyStatus(sessionID, messageID string, pending, messages int) {
	e.store.notify(ports.SnapshotEvent{
		Type:      ports.EventStatusChanged,
		SessionID: sessionID,
		MessageID: messageID,
		Pending:   pending,
		Messages:  messages,
		Timestamp: time.Now(),
	})
}

func groupExistsLocked(coll *collection, messageID string) bool {
	for _, snap := range coll.snapshots {
		if snap.MessageID == messageID {
			return true
		}
	}
	return false
}
