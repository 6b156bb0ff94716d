package buildsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// HelperBinary is the executable that provides the cross-platform rm, mv and mkdir
// subcommands. If it's empty, those commands are looked up in PATH like any other command.
var HelperBinary string

// ExitError is returned by RunShell if the script exits with a non-zero status
type ExitError struct {
	Status uint8
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}

// ShellOptions configures RunShell
type ShellOptions struct {
	// Name is used in parser errors and log messages
	Name   string
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 && HelperBinary != "" {
		switch args[0] {
		case "mv":
			fallthrough
		case "rm":
			fallthrough
		case "mkdir":
			// always use our cross-platform implementation for these operations to make sure
			// they behave consistently
			args = append([]string{HelperBinary}, args...)
		}
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

// RunShell parses script as a POSIX shell script and executes it statement by statement.
// A non-zero exit status is reported as ExitError.
func RunShell(ctx context.Context, script string, opts ShellOptions) error {
	name := opts.Name
	if name == "" {
		name = "script"
	}

	parser := syntax.NewParser()
	file, err := parser.Parse(strings.NewReader(script), name)
	if err != nil {
		return eris.Wrapf(err, "failed to parse command %s", script)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	runner, err := interp.New(
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(getEnvVars(opts.Env)...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, stdout, stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "Failed to initialize runner")
	}

	printer := syntax.NewPrinter(
		syntax.Minify(true),
	)
	strBuffer := strings.Builder{}

	for _, stmt := range file.Stmts {
		strBuffer.Reset()
		err = printer.Print(&strBuffer, stmt)
		if err != nil {
			return eris.Wrap(err, "failed to print command")
		}

		TaskLog(ctx, name).Debug().
			Bool("command", true).
			Msg(strBuffer.String())

		err = runner.Run(ctx, stmt)
		if err != nil {
			if status, ok := interp.IsExitStatus(err); ok {
				return ExitError{Status: status}
			}
			return eris.Wrapf(err, "failed to run %s", strBuffer.String())
		}

		if runner.Exited() {
			return nil
		}
	}

	return nil
}
