package tasks

import (
	"context"

	"github.com/aidarkhanov/nanoid"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/watch"
)

// Watch runs target whenever a watched source file changes. The task isn't run on startup.
// Watch only returns once ctx is cancelled.
func (p *Project) Watch(ctx context.Context, target string, tasks buildsys.TaskList) error {
	cfg := p.Config
	w, err := watch.NewWatcher(watch.Options{
		Root:    p.Root,
		Include: cfg.Watch.Include,
		Exclude: cfg.Watch.Exclude,
		Lull:    cfg.Watch.Lull,
	})
	if err != nil {
		return err
	}

	logger := buildsys.TaskLog(ctx, "watch-"+target)
	logger.Info().Msgf("watching %v for changes", cfg.Watch.Include)

	run := func(ctx context.Context, changed []string) error {
		runLogger := logger.With().Str("run", nanoid.New()).Logger()
		if len(changed) == 0 {
			// a previous run already picked up these changes
			return nil
		}
		runLogger.Info().Strs("changed", changed).Msgf("%s changed, running %s", changed[0], target)

		return buildsys.RunTask(buildsys.WithLogger(ctx, &runLogger), target, tasks, buildsys.RunOptions{
			ProjectRoot: p.Root,
			Force:       true,
		})
	}

	return w.Run(ctx, run)
}
