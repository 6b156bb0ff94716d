// Package cmd contains the command line glue for the buildsys package
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
)

// LogOptions configures NewLogger
type LogOptions struct {
	Level zerolog.Level
	// JSON writes raw JSON events instead of console messages
	JSON  bool
	Color bool
}

// NewLogger returns the logger used by the CLI. Events are written to stderr.
func NewLogger(opts LogOptions) zerolog.Logger {
	return newLogger(os.Stderr, opts)
}

func newLogger(out io.Writer, opts LogOptions) zerolog.Logger {
	if opts.JSON {
		return zerolog.New(out).Level(opts.Level).With().Timestamp().Logger()
	}

	return zerolog.New(NewConsoleWriter(out, opts.Color)).Level(opts.Level)
}

// PrintTaskList prints the visible tasks and their descriptions
func PrintTaskList(out io.Writer, taskList buildsys.TaskList) {
	fmt.Fprintln(out, "Available tasks:")
	sortedNames := taskList.Visible()

	maxNameLen := 0
	for _, name := range sortedNames {
		if len(name) > maxNameLen {
			maxNameLen = len(name)
		}
	}

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range sortedNames {
		fmt.Fprintf(out, lineFmt, name+":", taskList[name].Desc)
	}
}
