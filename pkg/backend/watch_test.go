package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReloads(t *testing.T) {
	src, err := os.ReadFile(smallGraph)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := os.WriteFile(path, src, 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := OpenLocal(path, LocalOptions{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, l, path, 10*time.Millisecond) }()

	waitFor := func(cond func() bool) bool {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if cond() {
				return true
			}
			time.Sleep(20 * time.Millisecond)
		}
		return false
	}

	// The watcher registers asynchronously; keep touching the file until
	// a reload is observed.
	if !waitFor(func() bool {
		os.WriteFile(path, src, 0o644)
		return l.Version() >= 1
	}) {
		t.Fatal("graph was not reloaded after the file changed")
	}

	// A broken file keeps the previous graph.
	time.Sleep(100 * time.Millisecond)
	v := l.Version()
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if l.Version() != v {
		t.Errorf("Version() = %d after a broken write, want %d", l.Version(), v)
	}
	if n, err := l.Timeslots(context.Background()); err != nil || n != 5 {
		t.Errorf("Timeslots() = %d, %v after a broken write", n, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not return after cancel")
	}
}

func TestWatchMissingDir(t *testing.T) {
	l := NewLocal(nil, LocalOptions{})
	err := Watch(context.Background(), l, filepath.Join(t.TempDir(), "missing", "graph.json"), 0)
	if err == nil {
		t.Error("expected an error watching a missing directory")
	}
}
