package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
)

var mvCmd = &cobra.Command{
	Use:    "mv <source>... <dest>",
	Short:  "Cross-platform implementation of the POSIX mv command",
	Hidden: true,
	Args:   cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := buildsys.ExpandArgs(args[:len(args)-1], false)
		if err != nil {
			return err
		}

		return buildsys.Move(items, args[len(args)-1])
	},
}

var rmCmd = &cobra.Command{
	Use:    "rm <path>...",
	Short:  "A cross-platform implementation of the POSIX rm command",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, err := cmd.Flags().GetBool("recursive")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		items, err := buildsys.ExpandArgs(args, force)
		if err != nil {
			return err
		}

		return buildsys.Remove(items, recursive, force)
	},
}

var mkdirCmd = &cobra.Command{
	Use:    "mkdir <dir>...",
	Short:  "A cross-platform implementation of the POSIX mkdir command",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		makeParents, err := cmd.Flags().GetBool("parents")
		if err != nil {
			return err
		}

		return buildsys.MakeDirs(args, makeParents)
	},
}

func init() {
	rmCmd.Flags().BoolP("recursive", "r", false, "recursively delete directories")
	rmCmd.Flags().BoolP("force", "f", false, "suppresses errors caused by missing files/folders")
	mkdirCmd.Flags().BoolP("parents", "p", false, "create parent directories as needed")

	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mkdirCmd)
}
