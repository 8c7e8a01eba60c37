package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aqljon/aqljon/internal/queue"
	"github.com/aqljon/aqljon/internal/session"
)

func newTestServer(t *testing.T) (*Server, *queue.Manager, *session.Store) {
	t.Helper()

	store := session.NewStore(10, 10)
	manager, err := queue.NewManager(context.Background(), queue.ManagerConfig{
		Store: store,
		Analyzer: queue.AnalyzerFunc(func(_ context.Context, _ queue.Kind, payloadRef string, _ session.Snapshot) (string, error) {
			return "analysis of " + payloadRef, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = manager.Shutdown(time.Second) })

	return NewServer(":0", manager, store), manager, store
}

func TestHealth(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Unexpected health payload: %v", body)
	}
}

func TestStats(t *testing.T) {
	server, manager, store := newTestServer(t)

	if _, err := manager.Submit("user-1", queue.KindPhoto, "cat.jpg"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Wait for the job to land in session memory so the counters are stable.
	deadline := time.After(2 * time.Second)
	for store.Stats()["content_entries"] == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the job to complete")
		case <-time.After(5 * time.Millisecond):
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Decoding response: %v", err)
	}
	if body.Queue.Submitted != 1 {
		t.Errorf("Expected 1 submitted job, got %d", body.Queue.Submitted)
	}
	if body.Sessions["sessions"] != 1 {
		t.Errorf("Expected 1 session, got %d", body.Sessions["sessions"])
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	server, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for shutdown")
	}
}
