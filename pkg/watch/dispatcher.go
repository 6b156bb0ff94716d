package watch

import (
	"context"
	"sort"
	"sync"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
)

// RunFunc is invoked by the dispatcher with the paths that changed since the last run
type RunFunc func(ctx context.Context, changed []string) error

// Dispatcher serializes re-runs of a single task. While a run is in progress at most one
// further run is queued; triggers arriving in the meantime are merged into it.
type Dispatcher struct {
	pending chan struct{}

	lock    sync.Mutex
	changed map[string]bool
}

// NewDispatcher creates an idle dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		pending: make(chan struct{}, 1),
		changed: make(map[string]bool),
	}
}

// Trigger requests a run for the given changed paths. It returns false if a run was
// already queued and the paths were merged into it.
func (d *Dispatcher) Trigger(paths ...string) bool {
	d.lock.Lock()
	for _, path := range paths {
		d.changed[path] = true
	}
	d.lock.Unlock()

	select {
	case d.pending <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) take() []string {
	d.lock.Lock()
	defer d.lock.Unlock()

	paths := make([]string, 0, len(d.changed))
	for path := range d.changed {
		paths = append(paths, path)
	}
	d.changed = make(map[string]bool)

	sort.Strings(paths)
	return paths
}

// Run processes triggers until ctx is cancelled. Failed runs are logged and don't stop the loop.
func (d *Dispatcher) Run(ctx context.Context, fn RunFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.pending:
		}

		changed := d.take()
		if err := fn(ctx, changed); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			buildsys.Log(ctx).Error().Err(err).Msg("run failed, waiting for further changes")
		}
	}
}
