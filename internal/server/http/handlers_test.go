package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"quill/internal/approval"
	"quill/internal/snapshot"
	"quill/internal/toolregistry"
)

type testEnv struct {
	api       *httptest.Server
	store     *snapshot.Store
	workspace string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	workspace := t.TempDir()
	registry, err := toolregistry.NewRegistry(toolregistry.Config{WorkspaceRoot: workspace})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	store := snapshot.NewStore(nil)
	restorer := snapshot.NewEngine(store, nil)

	// Confirmation disabled for write and edit so propose executes
	// synchronously; file_delete keeps the default policy so the
	// approve/cancel lifecycle stays testable over HTTP.
	policy := toolregistry.DefaultPolicy()
	for _, name := range []string{"file_write", "file_edit"} {
		entry := policy.For(name)
		entry.RequiresConfirmation = false
		policy.Set(name, entry)
	}
	gateway := approval.NewGateway(registry, policy, store)

	srv := NewServer(DefaultConfig(), store, restorer, gateway, registry)
	api := httptest.NewServer(srv.engine)
	t.Cleanup(api.Close)

	return &testEnv{api: api, store: store, workspace: workspace}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(e.api.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decode(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, APIResponse) {
	t.Helper()
	resp, err := http.Get(e.api.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) APIResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, out := env.get(t, "/api/health")
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("health check failed: %d %+v", resp.StatusCode, out)
	}
}

func TestProposeExecutesAndRecordsSnapshot(t *testing.T) {
	env := newTestEnv(t)

	resp, out := env.post(t, "/api/invocations", map[string]any{
		"name":       "file_write",
		"session_id": "sess-http",
		"message_id": "msg-1",
		"arguments": map[string]any{
			"path":    "notes.txt",
			"content": "hello",
		},
	})
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("propose failed: %d %+v", resp.StatusCode, out)
	}

	data, err := os.ReadFile(filepath.Join(env.workspace, "notes.txt"))
	if err != nil {
		t.Fatalf("file was not written: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}

	_, pendingOut := env.get(t, "/api/sessions/sess-http/pending")
	payload := pendingOut.Data.(map[string]any)
	if payload["count"].(float64) != 1 {
		t.Fatalf("expected 1 pending snapshot, got %+v", payload)
	}
}

func TestRestoreEndpointRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	target := filepath.Join(env.workspace, "roundtrip.txt")
	env.post(t, "/api/invocations", map[string]any{
		"name":       "file_write",
		"session_id": "sess-rt",
		"message_id": "msg-rt",
		"arguments":  map[string]any{"path": "roundtrip.txt", "content": "v1"},
	})

	timeline := env.store.TimelineFor("sess-rt")
	if len(timeline) != 1 {
		t.Fatalf("expected one timeline group, got %d", len(timeline))
	}

	resp, out := env.post(t, "/api/sessions/sess-rt/messages/msg-rt/restore", map[string]any{"target": "before"})
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("restore failed: %d %+v", resp.StatusCode, out)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("restore to before should have removed the created file")
	}

	resp, out = env.post(t, "/api/sessions/sess-rt/messages/msg-rt/restore", map[string]any{"target": "after"})
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("restore after failed: %d %+v", resp.StatusCode, out)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "v1" {
		t.Fatalf("restore to after should have rewritten the file: %v %q", err, data)
	}
}

func TestRestoreUnknownTargetsReturn404(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.post(t, "/api/sessions/ghost/messages/m/restore", map[string]any{"target": "before"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", resp.StatusCode)
	}

	env.post(t, "/api/invocations", map[string]any{
		"name":       "file_write",
		"session_id": "sess-404",
		"message_id": "msg-a",
		"arguments":  map[string]any{"path": "x.txt", "content": "x"},
	})
	resp, _ = env.post(t, "/api/sessions/sess-404/messages/ghost/restore", map[string]any{"target": "before"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown message, got %d", resp.StatusCode)
	}
}

func TestRestoreRejectsBadTarget(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.post(t, "/api/sessions/s/messages/m/restore", map[string]any{"target": "sideways"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad target, got %d", resp.StatusCode)
	}
}

func TestAcceptAllEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/api/invocations", map[string]any{
		"name":       "file_write",
		"session_id": "sess-acc",
		"message_id": "msg-1",
		"arguments":  map[string]any{"path": "a.txt", "content": "a"},
	})

	resp, out := env.post(t, "/api/sessions/sess-acc/accept-all", nil)
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("accept-all failed: %d %+v", resp.StatusCode, out)
	}
	if accepted := out.Data.(map[string]any)["accepted"].(float64); accepted != 1 {
		t.Fatalf("expected 1 accepted, got %v", accepted)
	}
	if pending := env.store.PendingFor("sess-acc"); len(pending) != 0 {
		t.Fatalf("accept-all left %d pending snapshots", len(pending))
	}
}

func TestRejectAllEndpointRevertsDisk(t *testing.T) {
	env := newTestEnv(t)

	env.post(t, "/api/invocations", map[string]any{
		"name":       "file_write",
		"session_id": "sess-rej",
		"message_id": "msg-1",
		"arguments":  map[string]any{"path": "doomed.txt", "content": "nope"},
	})

	resp, out := env.post(t, "/api/sessions/sess-rej/reject-all", nil)
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("reject-all failed: %d %+v", resp.StatusCode, out)
	}
	if _, err := os.Stat(filepath.Join(env.workspace, "doomed.txt")); !os.IsNotExist(err) {
		t.Fatal("reject-all should have removed the created file")
	}
}

func TestApproveAndCancelLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// file_delete still requires confirmation in the default policy.
	if err := os.WriteFile(filepath.Join(env.workspace, "keep.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, out := env.post(t, "/api/invocations", map[string]any{
		"id":         "inv_http_1",
		"name":       "file_delete",
		"session_id": "sess-del",
		"message_id": "msg-1",
		"arguments":  map[string]any{"path": "keep.txt"},
	})
	state := out.Data.(map[string]any)["state"].(string)
	if state != string(approval.StateAwaitingApproval) {
		t.Fatalf("expected awaiting_approval, got %s", state)
	}

	resp, out := env.post(t, "/api/invocations/inv_http_1/cancel", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel failed: %d %+v", resp.StatusCode, out)
	}
	if _, err := os.Stat(filepath.Join(env.workspace, "keep.txt")); err != nil {
		t.Fatal("cancelled delete must not touch the file")
	}

	// Cancel outside awaiting_approval conflicts.
	env.post(t, "/api/invocations", map[string]any{
		"id":         "inv_http_2",
		"name":       "file_write",
		"session_id": "sess-del",
		"message_id": "msg-2",
		"arguments":  map[string]any{"path": "new.txt", "content": "n"},
	})
	resp, _ = env.post(t, "/api/invocations/inv_http_2/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 cancelling a completed invocation, got %d", resp.StatusCode)
	}
}

func TestUnknownInvocationReturns404(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{
		"/api/invocations/ghost/approve",
		"/api/invocations/ghost/cancel",
	} {
		resp, _ := env.post(t, path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, resp.StatusCode)
		}
	}
	resp, err := http.Get(env.api.URL + "/api/invocations/ghost")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSessionsEndpointListsKnownSessions(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		env.post(t, "/api/invocations", map[string]any{
			"name":       "file_write",
			"session_id": fmt.Sprintf("sess-%d", i),
			"message_id": "msg",
			"arguments":  map[string]any{"path": fmt.Sprintf("f%d.txt", i), "content": "x"},
		})
	}

	_, out := env.get(t, "/api/sessions")
	sessions := out.Data.(map[string]any)["sessions"].([]any)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
}
