package config

import (
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

var formats = map[string]api.Format{
	"cjs":  api.FormatCommonJS,
	"esm":  api.FormatESModule,
	"iife": api.FormatIIFE,
}

var platforms = map[string]api.Platform{
	"node":    api.PlatformNode,
	"browser": api.PlatformBrowser,
	"neutral": api.PlatformNeutral,
}

var sourcemaps = map[string]api.SourceMap{
	"none":     api.SourceMapNone,
	"linked":   api.SourceMapLinked,
	"inline":   api.SourceMapInline,
	"external": api.SourceMapExternal,
	"both":     api.SourceMapInlineAndExternal,
}

// BuildOptions translates the bundle section into esbuild options. Paths are absolute.
func (cfg *Config) BuildOptions() (api.BuildOptions, error) {
	root, err := cfg.ProjectPath()
	if err != nil {
		return api.BuildOptions{}, err
	}

	entry, err := cfg.Resolve(cfg.Bundle.Entry)
	if err != nil {
		return api.BuildOptions{}, err
	}

	outDir, err := cfg.Resolve(cfg.OutDir)
	if err != nil {
		return api.BuildOptions{}, err
	}

	loaders := make(map[string]api.Loader, len(cfg.Bundle.CopyExts))
	for _, ext := range cfg.Bundle.CopyExts {
		loaders[ext] = api.LoaderCopy
	}

	return api.BuildOptions{
		AbsWorkingDir: root,
		EntryPoints:   []string{entry},
		Outfile:       filepath.Join(outDir, cfg.Bundle.Outfile),
		Bundle:        true,
		External:      cfg.Bundle.External,
		Format:        formats[cfg.Bundle.Format],
		Platform:      platforms[cfg.Bundle.Platform],
		Target:        targets[cfg.Bundle.Target],
		Sourcemap:     sourcemaps[cfg.Bundle.Sourcemap],
		SourceRoot:    cfg.Bundle.SourceRoot,
		Loader:        loaders,
		LogLevel:      api.LogLevelSilent,
		Write:         false,
	}, nil
}
