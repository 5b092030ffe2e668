package snapshot

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"quill/internal/agent/ports"
	"quill/internal/observability"
	"quill/internal/utils"
	"quill/internal/utils/id"

	lru "github.com/hashicorp/golang-lru/v2"
)

const timelineCacheSize = 128

// Persister stores one session's snapshot sequence durably. Implementations
// must round-trip every snapshot field exactly, including empty-string
// prev/next states.
type Persister interface {
	// Load returns the persisted snapshots for a session, or (nil, nil) when
	// none were persisted.
	Load(sessionID string) ([]Snapshot, error)

	// Save replaces the persisted snapshots for a session.
	Save(sessionID string, snapshots []Snapshot) error

	// Delete removes a session's persisted snapshots.
	Delete(sessionID string) error

	// Sessions lists session ids with persisted snapshots.
	Sessions() ([]string, error)
}

// collection holds one session's snapshots. Its mutex is the single-writer
// lock for that session: record, accept, revert, restore and clear all take
// it, so mutations on one session are serialized while distinct sessions
// proceed in parallel.
type collection struct {
	mu        sync.Mutex
	snapshots []Snapshot
	version   uint64
}

type timelineEntry struct {
	version uint64
	groups  []MessageGroup
}

// Store is the append-only, session-partitioned home for snapshots.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection

	timelines *lru.Cache[string, timelineEntry]
	persister Persister

	listenerMu sync.RWMutex
	listeners  []ports.SnapshotListener

	clockMu sync.Mutex
	lastTS  int64

	logger *utils.Logger
}

// NewStore creates a snapshot store. persister may be nil for an in-memory
// only store (tests, ephemeral sessions).
func NewStore(persister Persister) *Store {
	cache, _ := lru.New[string, timelineEntry](timelineCacheSize)
	return &Store{
		collections: make(map[string]*collection),
		timelines:   cache,
		persister:   persister,
		logger:      utils.NewComponentLogger("SnapshotStore"),
	}
}

// AddListener registers a listener for snapshot events.
func (s *Store) AddListener(l ports.SnapshotListener) {
	if l == nil {
		return
	}
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenerMu.Unlock()
}

// Record validates input, appends a pending snapshot to the session's
// collection and persists the result. This is the only way snapshots are
// created.
func (s *Store) Record(sessionID, messageID string, in Input) (*Snapshot, error) {
	if sessionID == "" || messageID == "" {
		return nil, fmt.Errorf("%w: session and message ids are required", ErrInvalidSnapshot)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	coll := s.collection(sessionID, true)

	coll.mu.Lock()
	snap := Snapshot{
		ID:        id.NewSnapshotID(),
		SessionID: sessionID,
		MessageID: messageID,
		FilePath:  in.FilePath,
		Operation: in.Operation,
		PrevState: in.PrevState,
		NextState: in.NextState,
		Status:    StatusPending,
		Timestamp: s.nextTimestamp(),
	}
	coll.snapshots = append(coll.snapshots, snap)
	coll.version++
	s.persistLocked(sessionID, coll)
	pending, messages := pendingStatsLocked(coll)
	coll.mu.Unlock()

	observability.SnapshotsRecorded.Inc()
	s.notify(ports.SnapshotEvent{
		Type:       ports.EventSnapshotRecorded,
		SessionID:  sessionID,
		MessageID:  messageID,
		SnapshotID: snap.ID,
		FilePath:   snap.FilePath,
		Status:     string(snap.Status),
		Pending:    pending,
		Messages:   messages,
		Timestamp:  time.Now(),
	})

	return &snap, nil
}

// PendingFor returns every pending snapshot of a session across all messages,
// in timestamp order. Unknown sessions yield an empty slice.
func (s *Store) PendingFor(sessionID string) []Snapshot {
	coll := s.collection(sessionID, false)
	if coll == nil {
		return nil
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()

	var pending []Snapshot
	for _, snap := range coll.snapshots {
		if snap.Status == StatusPending {
			pending = append(pending, snap)
		}
	}
	return pending
}

// TimelineFor groups a session's snapshots by message id, sorted by each
// group's earliest timestamp. The grouping is a pure projection of the
// snapshot sequence, memoized until the collection changes.
func (s *Store) TimelineFor(sessionID string) []MessageGroup {
	coll := s.collection(sessionID, false)
	if coll == nil {
		return nil
	}

	coll.mu.Lock()
	version := coll.version
	if entry, ok := s.timelines.Get(sessionID); ok && entry.version == version {
		coll.mu.Unlock()
		return entry.groups
	}
	groups := groupByMessageLocked(coll)
	coll.mu.Unlock()

	s.timelines.Add(sessionID, timelineEntry{version: version, groups: groups})
	return groups
}

// ClearSession discards a session's collection and its persisted document.
// Clearing an unknown session is a no-op.
func (s *Store) ClearSession(sessionID string) error {
	s.mu.Lock()
	delete(s.collections, sessionID)
	s.mu.Unlock()
	s.timelines.Remove(sessionID)

	if s.persister != nil {
		if err := s.persister.Delete(sessionID); err != nil {
			return fmt.Errorf("clear session %s: %w", sessionID, err)
		}
	}

	s.notify(ports.SnapshotEvent{
		Type:      ports.EventSessionCleared,
		SessionID: sessionID,
		Timestamp: time.Now(),
	})
	return nil
}

// Sessions lists every session known to the store, in-memory or persisted.
func (s *Store) Sessions() []string {
	seen := make(map[string]bool)

	s.mu.RLock()
	for sessionID := range s.collections {
		seen[sessionID] = true
	}
	s.mu.RUnlock()

	if s.persister != nil {
		persisted, err := s.persister.Sessions()
		if err != nil {
			s.logger.Warn("Failed to list persisted sessions: %v", err)
		}
		for _, sessionID := range persisted {
			seen[sessionID] = true
		}
	}

	ids := make([]string, 0, len(seen))
	for sessionID := range seen {
		ids = append(ids, sessionID)
	}
	sort.Strings(ids)
	return ids
}

// collection returns the session's collection, loading it lazily from the
// persister. When create is true a missing collection is initialized.
func (s *Store) collection(sessionID string, create bool) *collection {
	s.mu.RLock()
	coll, ok := s.collections[sessionID]
	s.mu.RUnlock()
	if ok {
		return coll
	}

	var loaded []Snapshot
	if s.persister != nil {
		snaps, err := s.persister.Load(sessionID)
		if err != nil {
			s.logger.Error("Failed to load session %s: %v", sessionID, err)
		}
		loaded = snaps
	}
	if loaded == nil && !create {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[sessionID]; ok {
		return existing
	}
	coll = &collection{snapshots: loaded, version: 1}
	s.collections[sessionID] = coll
	s.advanceClock(loaded)
	return coll
}

// persistLocked writes the collection through the persister. The caller holds
// the collection mutex. Persistence failures are logged, not fatal: the
// store remains authoritative in-process.
func (s *Store) persistLocked(sessionID string, coll *collection) {
	if s.persister == nil {
		return
	}
	snaps := make([]Snapshot, len(coll.snapshots))
	copy(snaps, coll.snapshots)
	if err := s.persister.Save(sessionID, snaps); err != nil {
		s.logger.Warn("Failed to persist session %s: %v", sessionID, err)
	}
}

func (s *Store) notify(event ports.SnapshotEvent) {
	s.listenerMu.RLock()
	listeners := make([]ports.SnapshotListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		l.OnSnapshotEvent(event)
	}
}

// nextTimestamp returns a store-wide monotonically increasing timestamp.
// Wall-clock reversals and same-nanosecond records are bumped forward so
// within-session ordering never ties.
func (s *Store) nextTimestamp() int64 {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	now := time.Now().UnixNano()
	if now <= s.lastTS {
		now = s.lastTS + 1
	}
	s.lastTS = now
	return now
}

// advanceClock moves the monotonic clock past persisted timestamps so new
// snapshots recorded after a reload still order after the loaded ones.
func (s *Store) advanceClock(snaps []Snapshot) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	for _, snap := range snaps {
		if snap.Timestamp > s.lastTS {
			s.lastTS = snap.Timestamp
		}
	}
}

func pendingStatsLocked(coll *collection) (pending, messages int) {
	byMessage := make(map[string]bool)
	for _, snap := range coll.snapshots {
		if snap.Status == StatusPending {
			pending++
			byMessage[snap.MessageID] = true
		}
	}
	return pending, len(byMessage)
}

func groupByMessageLocked(coll *collection) []MessageGroup {
	index := make(map[string]int)
	var groups []MessageGroup
	for _, snap := range coll.snapshots {
		i, ok := index[snap.MessageID]
		if !ok {
			i = len(groups)
			index[snap.MessageID] = i
			groups = append(groups, MessageGroup{MessageID: snap.MessageID, Timestamp: snap.Timestamp})
		}
		groups[i].Snapshots = append(groups[i].Snapshots, snap)
	}

	for i := range groups {
		snaps := groups[i].Snapshots
		sort.SliceStable(snaps, func(a, b int) bool { return snaps[a].Timestamp < snaps[b].Timestamp })
		groups[i].Timestamp = snaps[0].Timestamp
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Timestamp < groups[b].Timestamp })
	return groups
}
