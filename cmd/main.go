package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg"
	buildcmd "github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "extbuild",
	Short: "Build tasks for the ql-vscode extension",
	Long: `This command bundles the extension with esbuild, type-checks it with tsc,
copies the binary modules that can't be bundled and watches the sources for changes.

Settings are read from extbuild.toml in the project root and EXTBUILD_* environment variables.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// errReported is returned once a failure has already been logged
var errReported = eris.New("task failed")

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default: extbuild.toml in the project root)")
	flags.String("project", "", "project directory (default: the closest parent directory with an extbuild.toml or package.json)")
	flags.String("log-level", "", "log level (debug, info, warn or error)")
	flags.Bool("log-json", false, "write log events as JSON")
	flags.Bool("no-color", false, "disable coloured output")
}

// Execute runs the command line interface and exits with a non-zero status on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()

	if err == nil {
		return
	}

	if interrupted {
		os.Exit(130)
	}

	if err != errReported {
		pkg.PrintError(eris.ToString(err, os.Getenv(buildcmd.DebugEnv) != ""))
	}
	os.Exit(1)
}
