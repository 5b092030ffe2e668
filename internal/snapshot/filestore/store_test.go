package filestore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quill/internal/snapshot"
)

func TestSaveLoadRoundTripPreservesEmptyStates(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	snaps := []snapshot.Snapshot{
		{
			ID:        "snap_1",
			SessionID: "s1",
			MessageID: "m1",
			FilePath:  "/tmp/created.txt",
			Operation: snapshot.OpCreate,
			PrevState: "",
			NextState: "hello",
			Status:    snapshot.StatusPending,
			Timestamp: 100,
		},
		{
			ID:        "snap_2",
			SessionID: "s1",
			MessageID: "m1",
			FilePath:  "/tmp/deleted.txt",
			Operation: snapshot.OpDelete,
			PrevState: "old content",
			NextState: "",
			Status:    snapshot.StatusReverted,
			Timestamp: 101,
		},
	}
	require.NoError(t, store.Save("s1", snaps))

	loaded, err := store.Load("s1")
	require.NoError(t, err)
	require.Equal(t, snaps, loaded)
}

func TestLoadMissingSessionReturnsNil(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	loaded, err := store.Load("absent")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSessionsAndDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("s1", []snapshot.Snapshot{}))
	require.NoError(t, store.Save("s2", []snapshot.Snapshot{}))

	ids, err := store.Sessions()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"s1", "s2"}, ids)

	require.NoError(t, store.Delete("s1"))
	require.NoError(t, store.Delete("s1"), "deleting twice is not an error")

	ids, err = store.Sessions()
	require.NoError(t, err)
	require.Equal(t, []string{"s2"}, ids)
}

func TestStoreReloadsPersistedSessions(t *testing.T) {
	dir := t.TempDir()

	persister, err := New(dir)
	require.NoError(t, err)
	store := snapshot.NewStore(persister)

	_, err = store.Record("s1", "m1", snapshot.Input{
		FilePath:  "/tmp/a.txt",
		Operation: snapshot.OpCreate,
		NextState: "hello",
	})
	require.NoError(t, err)

	// A fresh store over the same directory sees the persisted snapshots.
	reloadedPersister, err := New(dir)
	require.NoError(t, err)
	reloaded := snapshot.NewStore(reloadedPersister)

	pending := reloaded.PendingFor("s1")
	require.Len(t, pending, 1)
	require.Equal(t, "/tmp/a.txt", pending[0].FilePath)
	require.Equal(t, snapshot.OpCreate, pending[0].Operation)
	require.Equal(t, "", pending[0].PrevState)
}
