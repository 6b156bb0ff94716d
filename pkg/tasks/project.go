// Package tasks defines the build steps of the extension: clean, bundle, type-check,
// asset copies and the watch loops, and registers them with the buildsys runner.
package tasks

import (
	"context"
	"io"
	"os"

	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/buildsys"
	"github.com/Prak-hash/vscode-codeql/extbuild/pkg/config"
)

// Descriptions documents the tasks that can be run from the command line
var Descriptions = map[string]string{
	"clean":             "Deletes the contents of the output directory",
	"bundle":            "Bundles the extension with esbuild",
	"check-types":       "Runs the TypeScript compiler without emitting files and reports errors",
	"copy-modules":      "Copies binary dependencies that aren't bundled (WASM files, native addons)",
	"build":             "Cleans the output directory, then bundles, type-checks and copies modules",
	"watch-bundle":      "Re-bundles whenever a source file changes",
	"watch-check-types": "Re-runs the type-checker whenever a source file changes",
}

// Project binds the immutable build config to the tasks operating on it
type Project struct {
	Config *config.Config
	// Root is the absolute project directory
	Root string
	// Stdout receives diagnostics, Stderr the output of external tools
	Stdout io.Writer
	Stderr io.Writer

	assets  []config.Asset
	bundler *Bundler
}

// NewProject resolves the project directory and the asset list
func NewProject(cfg *config.Config) (*Project, error) {
	root, err := cfg.ProjectPath()
	if err != nil {
		return nil, err
	}

	assets, err := cfg.LoadAssets()
	if err != nil {
		return nil, err
	}

	bundler, err := NewBundler(cfg)
	if err != nil {
		return nil, err
	}

	return &Project{
		Config:  cfg,
		Root:    root,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		assets:  assets,
		bundler: bundler,
	}, nil
}

// Close releases the bundler's incremental state
func (p *Project) Close() {
	p.bundler.Close()
}

// OutPath returns the absolute output directory
func (p *Project) OutPath() string {
	return buildsys.NormalizePath(p.Root, p.Root, p.Config.OutDir)
}

// Tasks returns every task of the build
func (p *Project) Tasks() buildsys.TaskList {
	tasks := buildsys.TaskList{}

	tasks.Add(
		&buildsys.Task{
			Short:  "clean",
			Desc:   Descriptions["clean"],
			Action: p.Clean,
		},
		// always runs, its real inputs are only known to esbuild
		&buildsys.Task{
			Short:  "bundle",
			Desc:   Descriptions["bundle"],
			Action: p.Bundle,
		},
		&buildsys.Task{
			Short:  "check-types",
			Desc:   Descriptions["check-types"],
			Action: p.CheckTypes,
		},
	)

	copyNames := make([]string, 0, len(p.assets))
	for _, asset := range p.assets {
		asset := asset
		copyNames = append(copyNames, asset.Name)
		tasks.Add(&buildsys.Task{
			Short:  asset.Name,
			Desc:   "Copies " + asset.Src + " into the output directory",
			Hidden: true,
			Action: func(ctx context.Context) error {
				return p.CopyAsset(ctx, asset)
			},
		})
	}

	tasks.Add(
		&buildsys.Task{
			Short:    "copy-modules",
			Desc:     Descriptions["copy-modules"],
			Parallel: copyNames,
		},
		&buildsys.Task{
			Short:    "build",
			Desc:     Descriptions["build"],
			Deps:     []string{"clean"},
			Parallel: []string{"bundle", "check-types", "copy-modules"},
		},
		&buildsys.Task{
			Short: "watch-bundle",
			Desc:  Descriptions["watch-bundle"],
			Action: func(ctx context.Context) error {
				return p.Watch(ctx, "bundle", tasks)
			},
		},
		&buildsys.Task{
			Short: "watch-check-types",
			Desc:  Descriptions["watch-check-types"],
			Action: func(ctx context.Context) error {
				return p.Watch(ctx, "check-types", tasks)
			},
		},
	)

	return tasks
}
