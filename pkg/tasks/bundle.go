package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rotisserie/eris"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/config"
)

// Bundler wraps an incremental esbuild context. Rebuilds are serialized.
type Bundler struct {
	opts api.BuildOptions

	lock  sync.Mutex
	build api.BuildContext
}

// NewBundler prepares the esbuild options. The esbuild context is created on the first build.
func NewBundler(cfg *config.Config) (*Bundler, error) {
	opts, err := cfg.BuildOptions()
	if err != nil {
		return nil, err
	}

	return &Bundler{opts: opts}, nil
}

// Build bundles the entry point and writes the output files. It returns the written paths.
func (b *Bundler) Build(ctx context.Context) ([]string, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	logger := buildsys.TaskLog(ctx, "bundle")

	if b.build == nil {
		build, ctxErr := api.Context(b.opts)
		if ctxErr != nil {
			return nil, eris.Errorf("failed to set up esbuild:\n%s", formatMessages(ctxErr.Errors, api.ErrorMessage))
		}
		b.build = build
	}

	result := b.build.Rebuild()
	if len(result.Warnings) > 0 {
		logger.Warn().Msg(formatMessages(result.Warnings, api.WarningMessage))
	}

	if len(result.Errors) > 0 {
		return nil, eris.Errorf("bundling failed with %d errors:\n%s",
			len(result.Errors), formatMessages(result.Errors, api.ErrorMessage))
	}

	written := make([]string, 0, len(result.OutputFiles))
	for _, file := range result.OutputFiles {
		if err := os.MkdirAll(filepath.Dir(file.Path), 0o755); err != nil {
			return nil, eris.Wrapf(err, "failed to create directory for %s", file.Path)
		}

		if err := os.WriteFile(file.Path, file.Contents, 0o644); err != nil {
			return nil, eris.Wrapf(err, "failed to write %s", file.Path)
		}

		logger.Debug().Int("size", len(file.Contents)).Msgf("wrote %s", file.Path)
		written = append(written, file.Path)
	}

	return written, nil
}

// Close disposes the esbuild context
func (b *Bundler) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.build != nil {
		b.build.Dispose()
		b.build = nil
	}
}

func formatMessages(msgs []api.Message, kind api.MessageKind) string {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: kind,
	})
	return strings.TrimSpace(strings.Join(formatted, ""))
}

// Bundle runs the bundler for the project
func (p *Project) Bundle(ctx context.Context) error {
	written, err := p.bundler.Build(ctx)
	if err != nil {
		return err
	}

	buildsys.TaskLog(ctx, "bundle").Info().Msgf("wrote %d files", len(written))
	return nil
}
