package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

func TestDispatcherQueuesAtMostOne(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs, active, overlaps int32
	started := make(chan []string, 10)
	release := make(chan struct{})

	go d.Run(ctx, func(ctx context.Context, changed []string) error {
		if atomic.AddInt32(&active, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		atomic.AddInt32(&runs, 1)
		started <- changed
		<-release
		atomic.AddInt32(&active, -1)
		return nil
	})

	if !d.Trigger("a.ts") {
		t.Fatal("first trigger wasn't accepted")
	}
	<-started

	// the first run is blocked, so these all collapse into a single pending run
	queued := 0
	for _, path := range []string{"b.ts", "c.ts", "b.ts", "d.ts"} {
		if d.Trigger(path) {
			queued++
		}
	}
	if queued != 1 {
		t.Errorf("%d triggers were queued, want 1", queued)
	}

	close(release)

	select {
	case changed := <-started:
		want := []string{"b.ts", "c.ts", "d.ts"}
		if len(changed) != len(want) {
			t.Fatalf("changed = %v, want %v", changed, want)
		}
		for i := range want {
			if changed[i] != want[i] {
				t.Errorf("changed[%d] = %q, want %q", i, changed[i], want[i])
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("queued run never started")
	}

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&runs); n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}
	if n := atomic.LoadInt32(&overlaps); n != 0 {
		t.Errorf("runs overlapped %d times", n)
	}
}

func TestDispatcherContinuesAfterFailure(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	ran := make(chan struct{}, 2)
	done := make(chan error)
	go func() {
		done <- d.Run(ctx, func(ctx context.Context, changed []string) error {
			atomic.AddInt32(&calls, 1)
			ran <- struct{}{}
			return eris.New("compile error")
		})
	}()

	d.Trigger("x.ts")
	<-ran
	d.Trigger("x.ts")
	<-ran

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWatcherRunsOnMatchingChange(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"src/view", "src/common"} {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0755); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewWatcher(Options{
		Root:    root,
		Include: []string{"src/**/*.ts"},
		Exclude: []string{"src/view/**/*.ts"},
		Lull:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	var seen [][]string
	runs := make(chan struct{}, 10)
	done := make(chan error)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context, changed []string) error {
			mu.Lock()
			seen = append(seen, changed)
			mu.Unlock()
			runs <- struct{}{}
			return nil
		})
	}()

	// excluded and non-matching files don't trigger anything
	writeFile(t, filepath.Join(root, "src", "view", "app.ts"))
	writeFile(t, filepath.Join(root, "src", "notes.md"))

	select {
	case <-runs:
		t.Fatalf("unexpected run for ignored files: %v", seen)
	case <-time.After(300 * time.Millisecond):
	}

	target := filepath.Join(root, "src", "common", "helper.ts")
	writeFile(t, target)

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher didn't react to a matching change")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, path := range seen[0] {
		if path == target {
			found = true
		}
	}
	if !found {
		t.Errorf("changed paths %v don't include %s", seen[0], target)
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("export const x = 1;\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherWaitsForMissingRoot(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(Options{
		Root:    root,
		Include: []string{"src/**/*.ts"},
		Lull:    10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWatcher failed without a src directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan []string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context, changed []string) error {
			runs <- changed
			return nil
		})
	}()

	if err := os.Mkdir(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatal(err)
	}

	// the new directory is watched asynchronously, so keep writing until a change arrives
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for waiting := true; waiting; {
		select {
		case <-runs:
			waiting = false
		case <-ticker.C:
			writeFile(t, filepath.Join(root, "src", "extension.ts"))
		case <-deadline:
			cancel()
			t.Fatal("watcher never noticed the new src directory")
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
