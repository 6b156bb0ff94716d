package tasks

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/rotisserie/eris"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/diag"
)

// CheckTypes runs the configured type-checker and reports its diagnostics.
// The command's exit status decides whether the task fails.
func (p *Project) CheckTypes(ctx context.Context) error {
	logger := buildsys.TaskLog(ctx, "check-types")

	tsconfig, err := p.Config.Resolve(p.Config.TSConfig)
	if err != nil {
		return err
	}

	var stdout bytes.Buffer
	runErr := buildsys.RunShell(ctx, p.Config.Check.Command, buildsys.ShellOptions{
		Name: "check-types",
		Dir:  p.Root,
		Env: map[string]string{
			"TSCONFIG": tsconfig,
		},
		Stdout: &stdout,
		Stderr: p.Stderr,
	})

	diags, err := diag.Parse(&stdout, p.Root)
	if err != nil {
		return eris.Wrap(err, "failed to read type-checker output")
	}

	reporter := diag.NewReporter(p.stdout(), p.Config.Log.Color)
	reporter.ReportAll(diags)

	if runErr != nil {
		var exitErr buildsys.ExitError
		if errors.As(runErr, &exitErr) {
			return eris.Errorf("type-checker exited with status %d (%d errors)", exitErr.Status, reporter.Errors)
		}
		return runErr
	}

	logger.Info().Msgf("no type errors (%d diagnostics)", len(diags))
	return nil
}

func (p *Project) stdout() io.Writer {
	if p.Stdout == nil {
		return io.Discard
	}
	return p.Stdout
}
