package buildsys

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// RunOptions controls how RunTask executes a task
type RunOptions struct {
	ProjectRoot string
	// DryRun only logs which tasks would run
	DryRun bool
	// Force skips the up-to-date check for the requested task (not its dependencies)
	Force bool
}

type taskState struct {
	done chan struct{}
	err  error
}

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		lock     sync.Mutex
		runTasks map[string]*taskState
		opts     RunOptions
	}
)

func getRuntimeCtx(ctx context.Context) *runtimeCtx {
	return ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
}

// RunTask executes the given task after its dependencies. Every task runs at most once per call.
func RunTask(ctx context.Context, task string, tasks TaskList, opts RunOptions) error {
	rctx := runtimeCtx{
		opts:     opts,
		runTasks: make(map[string]*taskState),
	}

	ctx = context.WithValue(ctx, runtimeCtxKey{}, &rctx)
	taskMeta, found := tasks[task]
	if !found {
		return eris.Errorf("Task %s not found", task)
	}

	return runTaskInternal(ctx, taskMeta, tasks, nil, opts.Force)
}

func runTaskInternal(ctx context.Context, task *Task, tasks TaskList, callers []string, force bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, caller := range callers {
		if caller == task.Short {
			return eris.Errorf("Task %s was called recursively", task.Short)
		}
	}

	rctx := getRuntimeCtx(ctx)
	rctx.lock.Lock()
	state, ok := rctx.runTasks[task.Short]
	if ok {
		rctx.lock.Unlock()
		// this task has already been run (or is running on another branch of the graph)
		<-state.done
		Log(ctx).Debug().Msgf("Task %s already run", task.Short)
		return state.err
	}

	state = &taskState{done: make(chan struct{})}
	rctx.runTasks[task.Short] = state
	rctx.lock.Unlock()

	state.err = executeTask(ctx, task, tasks, append(callers[:len(callers):len(callers)], task.Short), force)
	close(state.done)
	return state.err
}

func executeTask(ctx context.Context, task *Task, tasks TaskList, callers []string, force bool) error {
	rctx := getRuntimeCtx(ctx)
	logger := TaskLog(ctx, task.Short)

	for _, dep := range task.Deps {
		depTask, ok := tasks[dep]
		if !ok {
			return eris.Errorf("Task %s not found", dep)
		}

		err := runTaskInternal(ctx, depTask, tasks, callers, false)
		if err != nil {
			return eris.Wrapf(err, "Task %s failed due to its dependency %s", task.Short, dep)
		}
	}

	if len(task.Parallel) > 0 {
		group, gctx := errgroup.WithContext(ctx)
		for _, name := range task.Parallel {
			child, ok := tasks[name]
			if !ok {
				return eris.Errorf("Task %s not found", name)
			}

			group.Go(func() error {
				err := runTaskInternal(gctx, child, tasks, callers, false)
				if err != nil {
					return eris.Wrapf(err, "Task %s failed due to %s", task.Short, child.Short)
				}
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return err
		}
	}

	if task.Action == nil {
		return nil
	}

	if !force {
		upToDate, err := isUpToDate(ctx, task)
		if err != nil {
			return err
		}

		if upToDate {
			return nil
		}
	}

	if rctx.opts.DryRun {
		logger.Info().Msg("would run")
		return nil
	}

	start := time.Now()
	logger.Info().Msg("starting")
	err := task.Action(ctx)
	if err != nil {
		return err
	}

	logger.Info().Msgf("finished after %s", time.Since(start).Round(time.Millisecond))
	return ctx.Err()
}

// isUpToDate compares the modification times of the task's inputs and outputs
func isUpToDate(ctx context.Context, task *Task) (bool, error) {
	if len(task.Inputs) == 0 || len(task.Outputs) == 0 {
		return false, nil
	}

	projectRoot := getRuntimeCtx(ctx).opts.ProjectRoot
	logger := TaskLog(ctx, task.Short)

	inputList, err := ResolvePatterns(projectRoot, task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputList, err := ResolvePatterns(projectRoot, task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve output list")
	}

	var newestInput time.Time
	for _, item := range inputList {
		info, err := os.Stat(item)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				logger.Debug().Msgf("input %s is missing", item)
				return false, nil
			}
			return false, eris.Wrapf(err, "Failed to check input %s", item)
		}

		if info.ModTime().After(newestInput) {
			newestInput = info.ModTime()
		}
	}

	if newestInput.IsZero() || len(outputList) == 0 {
		return false, nil
	}

	var newestOutput time.Time
	oldestOutput := time.Now()
	for _, item := range outputList {
		info, err := os.Stat(item)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				// a missing output always means we have to run
				return false, nil
			}
			return false, eris.Wrapf(err, "Failed to check output %s", item)
		}

		mt := info.ModTime()
		if mt.After(newestOutput) {
			newestOutput = mt
		}

		if mt.Before(oldestOutput) {
			oldestOutput = mt
		}
	}

	if newestOutput.Sub(oldestOutput) > 10*time.Minute {
		logger.Warn().
			Msgf("oldest output is %f minutes older than the newest output", newestOutput.Sub(oldestOutput).Minutes())
	}

	if oldestOutput.After(newestInput) {
		logger.Info().
			Msgf("nothing to do (output is %f seconds newer)", oldestOutput.Sub(newestInput).Seconds())
		return true, nil
	}

	return false, nil
}
