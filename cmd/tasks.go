package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
	buildcmd "github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys/cmd"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/config"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/tasks"
)

// loadConfig reads the config file and applies the global flags on top of it
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	projectFlag, err := flags.GetString("project")
	if err != nil {
		return nil, err
	}

	root := projectFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}

		root, err = pkg.FindProjectRoot(wd)
		if err != nil {
			// fall back to the working directory; the config defaults still apply
			root = wd
		}
	}

	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if configFile == "" {
		configFile = filepath.Join(root, config.DefaultFile)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if projectFlag != "" {
		cfg.ProjectDir = projectFlag
	} else if !filepath.IsAbs(cfg.ProjectDir) {
		cfg.ProjectDir = filepath.Join(root, cfg.ProjectDir)
	}

	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON, _ = flags.GetBool("log-json")
	}
	if noColor, _ := flags.GetBool("no-color"); noColor {
		cfg.Log.Color = false
	}
	if flags.Lookup("progress") != nil && flags.Changed("progress") {
		cfg.Progress, _ = flags.GetBool("progress")
	}

	return cfg, cfg.Validate()
}

func runTasks(cmd *cobra.Command, names []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pkg.Colorize.Disable = !cfg.Log.Color
	logger := buildcmd.NewLogger(buildcmd.LogOptions{
		Level: cfg.LogLevel(),
		JSON:  cfg.Log.JSON,
		Color: cfg.Log.Color,
	})
	ctx := buildsys.WithLogger(cmd.Context(), &logger)

	// the embedded shell runs rm, mv and mkdir through our own helper subcommands
	if exe, err := os.Executable(); err == nil {
		buildsys.HelperBinary = exe
	}

	project, err := tasks.NewProject(cfg)
	if err != nil {
		return err
	}
	defer project.Close()

	dryRun, _ := cmd.Flags().GetBool("dry")
	force, _ := cmd.Flags().GetBool("force")
	opts := buildsys.RunOptions{
		ProjectRoot: project.Root,
		DryRun:      dryRun,
		Force:       force,
	}

	taskList := project.Tasks()
	for _, name := range names {
		pkg.PrintTask("Running " + name)
		start := time.Now()

		err = buildsys.RunTask(ctx, name, taskList, opts)
		if err != nil {
			return reportFailure(ctx, &logger, name, err)
		}

		pkg.PrintSubtask(fmt.Sprintf("%s finished after %s", name, time.Since(start).Round(time.Millisecond)))
	}

	return nil
}

func reportFailure(ctx context.Context, logger *zerolog.Logger, name string, err error) error {
	if ctx.Err() != nil {
		logger.Warn().Msgf("%s interrupted", name)
		return ctx.Err()
	}

	logger.Error().Err(err).Msgf("%s failed", name)
	pkg.PrintError(name + " failed")
	return errReported
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("dry", "n", false, "dry run; only print the tasks, don't execute anything")
	cmd.Flags().BoolP("force", "f", false, "force build; always execute the passed tasks even if their outputs are up to date")
	cmd.Flags().Bool("progress", false, "show progress bars while copying files")
}

var runCmd = &cobra.Command{
	Use:   "run <task>...",
	Short: "Runs the given tasks in order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTasks(cmd, args)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the available tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		project, err := tasks.NewProject(cfg)
		if err != nil {
			return err
		}
		defer project.Close()

		buildcmd.PrintTaskList(cmd.OutOrStdout(), project.Tasks())
		return nil
	},
}

func init() {
	names := make([]string, 0, len(tasks.Descriptions))
	for name := range tasks.Descriptions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		name := name
		taskCmd := &cobra.Command{
			Use:   name,
			Short: tasks.Descriptions[name],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTasks(cmd, []string{name})
			},
		}
		addTaskFlags(taskCmd)
		rootCmd.AddCommand(taskCmd)
	}

	addTaskFlags(runCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}
