// Package watch re-runs tasks when source files change. Filesystem events from
// fsnotify are filtered through include/exclude globs, coalesced for a short
// lull and handed to a Dispatcher that never runs the bound task twice at once.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
)

// Options configures a Watcher
type Options struct {
	Root    string
	Include []string
	Exclude []string
	// Lull is the quiet period after the last change before a run is triggered
	Lull time.Duration
}

// Watcher watches the directories below the include patterns' roots
type Watcher struct {
	fsw     *fsnotify.Watcher
	matcher *Matcher
	lull    time.Duration
}

// NewWatcher sets up the filesystem watches. Changes are only reported once Run is called.
func NewWatcher(opts Options) (*Watcher, error) {
	matcher, err := NewMatcher(opts.Root, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, eris.Wrap(err, "failed to create filesystem watcher")
	}

	w := &Watcher{
		fsw:     fsw,
		matcher: matcher,
		lull:    opts.Lull,
	}

	for _, root := range matcher.Roots() {
		// directories that don't exist yet are picked up through create events on their parent
		dir, err := existingAncestor(root)
		if err != nil {
			fsw.Close()
			return nil, err
		}

		if err := w.addRecursive(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// existingAncestor returns path or its closest parent that exists
func existingAncestor(path string) (string, error) {
	for {
		info, err := os.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return "", eris.Errorf("can't watch %s: not a directory", path)
			}
			return path, nil
		}

		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "can't watch %s", path)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Wrapf(err, "can't watch %s", path)
		}
		path = parent
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// directories can disappear while we walk them
			if eris.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && (d.Name() == "node_modules" || d.Name()[0] == '.') {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			return eris.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

// Close releases the filesystem watches
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run dispatches fn for matching changes until ctx is cancelled. fn never runs concurrently
// with itself. Run closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, fn RunFunc) error {
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := NewDispatcher()
	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Run(ctx, fn)
	}()

	logger := buildsys.Log(ctx)
	batch := []string{}
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			<-done
			return ctx.Err()

		case err := <-done:
			return err

		case err, ok := <-w.fsw.Errors:
			if !ok {
				cancel()
				<-done
				return eris.New("filesystem watcher closed unexpectedly")
			}
			logger.Warn().Err(err).Msg("watch error")

		case event, ok := <-w.fsw.Events:
			if !ok {
				cancel()
				<-done
				return eris.New("filesystem watcher closed unexpectedly")
			}

			if !w.handleEvent(event) {
				continue
			}

			logger.Debug().Str("path", event.Name).Msgf("%s changed", event.Name)
			batch = append(batch, event.Name)

			if w.lull <= 0 {
				dispatcher.Trigger(batch...)
				batch = batch[:0]
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.lull)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.lull)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			dispatcher.Trigger(batch...)
			batch = batch[:0]
		}
	}
}

// handleEvent starts watching new directories and reports whether the event is relevant
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			// files created inside the new directory before the watch was added are missed
			_ = w.addRecursive(event.Name)
			return false
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	return w.matcher.Match(event.Name)
}
