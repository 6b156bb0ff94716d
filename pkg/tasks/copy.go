package tasks

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/config"
)

func (p *Project) getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if !p.Config.Progress || os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.NewOptions64(length,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(p.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
	)
}

// CopyAsset copies the files matched by asset.Src into asset.Dest below the output directory.
// Files are copied concurrently.
func (p *Project) CopyAsset(ctx context.Context, asset config.Asset) error {
	logger := buildsys.TaskLog(ctx, asset.Name)

	sources, err := buildsys.ResolvePatterns(p.Root, p.Root, []string{asset.Src})
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		logger.Warn().Msgf("%s didn't match any files", asset.Src)
		return nil
	}

	dest := filepath.Join(p.OutPath(), filepath.FromSlash(asset.Dest))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		target := filepath.Join(dest, filepath.Base(src))
		group.Go(func() error {
			return p.copyPath(gctx, src, target)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info().Msgf("copied %d entries to %s", len(sources), dest)
	return nil
}

func (p *Project) copyPath(ctx context.Context, src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return eris.Wrapf(err, "failed to read %s", src)
	}

	if !info.IsDir() {
		return p.copyFile(ctx, src, dest, info)
	}

	if err := os.MkdirAll(dest, info.Mode().Perm()|0o700); err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return eris.Wrapf(err, "failed to list %s", src)
	}

	for _, entry := range entries {
		err = p.copyPath(ctx, filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name()))
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Project) copyFile(ctx context.Context, src, dest string, info os.FileInfo) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	buildsys.Log(ctx).Debug().Msgf("copying %s to %s", src, dest)

	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}

	bar := p.getProgressBar(info.Size(), filepath.Base(src))
	_, err = io.Copy(io.MultiWriter(out, bar), in)
	bar.Finish()
	if err != nil {
		out.Close()
		return eris.Wrapf(err, "failed to copy %s", src)
	}

	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "failed to write %s", dest)
	}

	// OpenFile only applies the mode to new files and is subject to the umask
	if err := os.Chmod(dest, info.Mode().Perm()); err != nil {
		return eris.Wrapf(err, "failed to set mode of %s", dest)
	}

	return nil
}
