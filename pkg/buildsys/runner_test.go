package buildsys

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) action(name string) Action {
	return func(ctx context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return nil
	}
}

func TestRunTaskRunsDepsOnce(t *testing.T) {
	rec := &recorder{}
	tasks := TaskList{}
	tasks.Add(
		&Task{Short: "clean", Action: rec.action("clean")},
		&Task{Short: "a", Deps: []string{"clean"}, Action: rec.action("a")},
		&Task{Short: "b", Deps: []string{"clean"}, Action: rec.action("b")},
		&Task{Short: "all", Deps: []string{"a", "b"}, Action: rec.action("all")},
	)

	err := RunTask(context.Background(), "all", tasks, RunOptions{})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	got := strings.Join(rec.order, ",")
	if got != "clean,a,b,all" {
		t.Errorf("order = %s, want clean,a,b,all", got)
	}
}

func TestRunTaskUnknown(t *testing.T) {
	err := RunTask(context.Background(), "missing", TaskList{}, RunOptions{})
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestRunTaskUnknownDependency(t *testing.T) {
	tasks := TaskList{}
	tasks.Add(&Task{Short: "a", Deps: []string{"nope"}})

	err := RunTask(context.Background(), "a", tasks, RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected error mentioning missing dependency, got %v", err)
	}
}

func TestRunTaskDetectsRecursion(t *testing.T) {
	tasks := TaskList{}
	tasks.Add(
		&Task{Short: "a", Deps: []string{"b"}},
		&Task{Short: "b", Deps: []string{"a"}},
	)

	err := RunTask(context.Background(), "a", tasks, RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "recursively") {
		t.Fatalf("expected recursion error, got %v", err)
	}
}

func TestRunTaskParallel(t *testing.T) {
	var active, maxActive int32
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(2)

	blocking := func(ctx context.Context) error {
		n := atomic.AddInt32(&active, 1)
		for {
			cur := atomic.LoadInt32(&maxActive)
			if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
				break
			}
		}
		started.Done()
		<-release
		atomic.AddInt32(&active, -1)
		return nil
	}

	tasks := TaskList{}
	tasks.Add(
		&Task{Short: "x", Action: blocking},
		&Task{Short: "y", Action: blocking},
		&Task{Short: "both", Parallel: []string{"x", "y"}},
	)

	go func() {
		started.Wait()
		close(release)
	}()

	done := make(chan error)
	go func() {
		done <- RunTask(context.Background(), "both", tasks, RunOptions{})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunTask failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("parallel tasks did not run concurrently")
	}

	if maxActive != 2 {
		t.Errorf("max concurrent tasks = %d, want 2", maxActive)
	}
}

func TestRunTaskParallelSharedDependency(t *testing.T) {
	var count int32
	tasks := TaskList{}
	tasks.Add(
		&Task{Short: "shared", Action: func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			time.Sleep(10 * time.Millisecond)
			return nil
		}},
		&Task{Short: "x", Deps: []string{"shared"}},
		&Task{Short: "y", Deps: []string{"shared"}},
		&Task{Short: "both", Parallel: []string{"x", "y"}},
	)

	if err := RunTask(context.Background(), "both", tasks, RunOptions{}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	if count != 1 {
		t.Errorf("shared dependency ran %d times, want 1", count)
	}
}

func TestRunTaskPropagatesFailure(t *testing.T) {
	tasks := TaskList{}
	tasks.Add(
		&Task{Short: "broken", Action: func(ctx context.Context) error {
			return eris.New("boom")
		}},
		&Task{Short: "ok", Action: func(ctx context.Context) error { return nil }},
		&Task{Short: "all", Parallel: []string{"ok", "broken"}},
	)

	err := RunTask(context.Background(), "all", tasks, RunOptions{})
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected failure from broken task, got %v", err)
	}
}

func TestRunTaskDryRun(t *testing.T) {
	ran := false
	tasks := TaskList{}
	tasks.Add(&Task{Short: "a", Action: func(ctx context.Context) error {
		ran = true
		return nil
	}})

	if err := RunTask(context.Background(), "a", tasks, RunOptions{DryRun: true}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	if ran {
		t.Error("action ran during dry run")
	}
}

func TestRunTaskUpToDate(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.ts")
	output := filepath.Join(dir, "out.js")

	if err := os.WriteFile(input, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(output, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(input, old, old); err != nil {
		t.Fatal(err)
	}

	runs := 0
	tasks := TaskList{}
	tasks.Add(&Task{
		Short:   "compile",
		Base:    dir,
		Inputs:  []string{"*.ts"},
		Outputs: []string{"out.js"},
		Action: func(ctx context.Context) error {
			runs++
			return nil
		},
	})

	if err := RunTask(context.Background(), "compile", tasks, RunOptions{ProjectRoot: dir}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if runs != 0 {
		t.Errorf("up-to-date task ran %d times", runs)
	}

	if err := RunTask(context.Background(), "compile", tasks, RunOptions{ProjectRoot: dir, Force: true}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if runs != 1 {
		t.Errorf("forced task ran %d times, want 1", runs)
	}

	if err := os.Remove(output); err != nil {
		t.Fatal(err)
	}
	if err := RunTask(context.Background(), "compile", tasks, RunOptions{ProjectRoot: dir}); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if runs != 2 {
		t.Errorf("task with missing output ran %d times, want 2", runs)
	}
}

func TestRunTaskCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := TaskList{}
	tasks.Add(&Task{Short: "a", Action: func(ctx context.Context) error { return nil }})

	err := RunTask(ctx, "a", tasks, RunOptions{})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
