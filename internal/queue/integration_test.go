package queue

import (
	"context"
	"testing"
	"time"

	"github.com/aqljon/aqljon/internal/session"
)

// TestConcurrentUsersShareGate exercises the full pipeline with three users
// against two admission slots: the first two run concurrently, the third is
// admitted only once a slot frees up.
func TestConcurrentUsersShareGate(t *testing.T) {
	entered := make(chan string, 3)
	releases := map[string]chan struct{}{
		"alice": make(chan struct{}),
		"bob":   make(chan struct{}),
		"carol": make(chan struct{}),
	}

	analyzer := AnalyzerFunc(func(ctx context.Context, _ Kind, _ string, snap session.Snapshot) (string, error) {
		entered <- snap.UserID
		select {
		case <-releases[snap.UserID]:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	h := newTestManager(t, analyzer, 2, 5)

	for _, user := range []string{"alice", "bob"} {
		if _, err := h.mgr.Submit(user, KindVoice, "clip.ogg"); err != nil {
			t.Fatalf("Submit for %s failed: %v", user, err)
		}
	}

	// Both early submitters must reach the analysis call concurrently.
	running := map[string]bool{}
	for n_ := 0; n_ < 2; n_++ {
		select {
		case user := <-entered:
			running[user] = true
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for concurrent admissions, got %v", running)
		}
	}
	if !running["alice"] || !running["bob"] {
		t.Fatalf("Expected alice and bob running, got %v", running)
	}

	if _, err := h.mgr.Submit("carol", KindVoice, "clip.ogg"); err != nil {
		t.Fatalf("Submit for carol failed: %v", err)
	}

	// With both slots held, carol must wait at the gate.
	select {
	case user := <-entered:
		t.Fatalf("Unexpected admission of %s while the gate was full", user)
	case <-time.After(100 * time.Millisecond):
	}

	close(releases["alice"])
	done := h.waitCompletion(t, 2*time.Second)
	if done.UserID != "alice" || done.State != StateCompleted {
		t.Fatalf("Expected alice to complete, got %s %s", done.UserID, done.State)
	}

	// The freed slot admits carol.
	select {
	case user := <-entered:
		if user != "carol" {
			t.Fatalf("Expected carol admitted, got %s", user)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for carol's admission")
	}

	close(releases["bob"])
	close(releases["carol"])
	for n_ := 0; n_ < 2; n_++ {
		h.waitCompletion(t, 2*time.Second)
	}

	if got := h.mgr.Stats().GateInUse; got != 0 {
		t.Errorf("Expected all gate slots released, got %d in use", got)
	}
}
