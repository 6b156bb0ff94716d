package tasks

import (
	"context"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
)

// Clean deletes everything inside the output directory but keeps the directory itself.
// Dotfiles in the output directory are kept, just like `rm -rf out/*` would.
// If the project directory can't be resolved, there's nothing to clean.
func (p *Project) Clean(ctx context.Context) error {
	logger := buildsys.TaskLog(ctx, "clean")

	projectDir, ok := p.Config.ProjectDirectory()
	if !ok {
		logger.Debug().Msg("project directory not found, skipping")
		return nil
	}

	outDir := buildsys.NormalizePath(projectDir, projectDir, p.Config.OutDir)
	entries, err := buildsys.ResolvePatterns(projectDir, outDir, []string{"*"})
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	logger.Debug().Strs("entries", entries).Msg("rm -rf")
	if err := buildsys.Remove(entries, true, true); err != nil {
		return err
	}

	logger.Info().Msgf("deleted %d entries", len(entries))
	return nil
}
