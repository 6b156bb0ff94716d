package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultFile is the config file that is loaded when no other file is requested
const DefaultFile = "extbuild.toml"

// Config describes all configuration options
type Config struct {
	ProjectDir string `default:"." toml:"project_dir" env:"PROJECT_DIR" usage:"Directory containing the extension sources"`
	TSConfig   string `default:"tsconfig.json" toml:"tsconfig" env:"TSCONFIG" usage:"TypeScript project file, relative to the project directory"`
	OutDir     string `default:"out" toml:"out_dir" env:"OUT_DIR" usage:"Output directory, relative to the project directory"`
	Assets     string `default:"assets.yml" toml:"assets" env:"ASSETS" usage:"Optional YAML manifest with asset copy rules"`
	Progress   bool   `default:"false" toml:"progress" env:"PROGRESS" usage:"Show progress bars while copying assets"`

	Log struct {
		Level string `default:"info" toml:"level"`
		JSON  bool   `default:"false" toml:"json" usage:"Output JSONND instead of pretty console messages"`
		Color bool   `default:"true" toml:"color"`
	} `toml:"log"`

	Bundle struct {
		Entry      string   `default:"src/extension.ts" toml:"entry"`
		Outfile    string   `default:"extension.js" toml:"outfile"`
		External   []string `default:"vscode,fsevents" toml:"external" usage:"Modules provided by the host at runtime"`
		Format     string   `default:"cjs" toml:"format" usage:"Output module format (cjs, esm or iife)"`
		Platform   string   `default:"node" toml:"platform" usage:"Target platform (node, browser or neutral)"`
		Target     string   `default:"es2020" toml:"target"`
		Sourcemap  string   `default:"linked" toml:"sourcemap" usage:"Source map mode (none, linked, inline, external or both)"`
		SourceRoot string   `default:".." toml:"source_root"`
		CopyExts   []string `default:".node" toml:"copy_exts" usage:"File extensions that are copied verbatim instead of bundled"`
	} `toml:"bundle"`

	Check struct {
		Command string `default:"node_modules/.bin/tsc --noEmit --pretty false --project \"$TSCONFIG\"" toml:"command" usage:"Type-checker command line, $TSCONFIG points to the project file"`
	} `toml:"check"`

	Watch struct {
		Include []string      `default:"src/**/*.ts" toml:"include"`
		Exclude []string      `default:"src/view/**/*.ts" toml:"exclude"`
		Lull    time.Duration `default:"100ms" toml:"lull" usage:"Quiet period after a change before the task is re-run"`
	} `toml:"watch"`
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

var validFormats = map[string]bool{"cjs": true, "esm": true, "iife": true}
var validPlatforms = map[string]bool{"node": true, "browser": true, "neutral": true}
var validSourcemaps = map[string]bool{"none": true, "linked": true, "inline": true, "external": true, "both": true}

// Loader initializes an empty config object and returns a new Loader for this object.
// Flags are handled by the CLI so aconfig only reads defaults, the given file and the environment.
func Loader(file string) (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "EXTBUILD",
		Files:     []string{file},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads the config from defaults, file and environment (in that order) and validates it.
// A missing config file is not an error.
func Load(file string) (*Config, error) {
	if file == "" {
		file = DefaultFile
	}

	cfg, loader := Loader(file)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrapf(err, "Failed to load config from %s", file)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if _, ok := logLevels[cfg.Log.Level]; !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if !validFormats[cfg.Bundle.Format] {
		return eris.Errorf(`Invalid value for bundle.format: %s (must be one of cjs, esm or iife)`, cfg.Bundle.Format)
	}

	if !validPlatforms[cfg.Bundle.Platform] {
		return eris.Errorf(`Invalid value for bundle.platform: %s (must be one of node, browser or neutral)`, cfg.Bundle.Platform)
	}

	if !validSourcemaps[cfg.Bundle.Sourcemap] {
		return eris.Errorf(`Invalid value for bundle.sourcemap: %s`, cfg.Bundle.Sourcemap)
	}

	if _, ok := targets[cfg.Bundle.Target]; !ok {
		return eris.Errorf(`Invalid value for bundle.target: %s`, cfg.Bundle.Target)
	}

	if cfg.Bundle.Entry == "" || cfg.Bundle.Outfile == "" {
		return eris.New("bundle.entry and bundle.outfile must not be empty")
	}

	if cfg.OutDir == "" {
		return eris.New("out_dir must not be empty")
	}

	if len(cfg.Watch.Include) == 0 {
		return eris.New("watch.include must contain at least one pattern")
	}

	if cfg.Watch.Lull < 0 {
		return eris.Errorf("Invalid value for watch.lull: %s", cfg.Watch.Lull)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}

// ProjectPath returns the absolute path of the project directory
func (cfg *Config) ProjectPath() (string, error) {
	path, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		return "", eris.Wrapf(err, "Failed to resolve project directory %s", cfg.ProjectDir)
	}

	return path, nil
}

// ProjectDirectory returns the directory containing the TypeScript project file.
// The second return value is false if that directory doesn't exist.
func (cfg *Config) ProjectDirectory() (string, bool) {
	root, err := cfg.ProjectPath()
	if err != nil {
		return "", false
	}

	dir := filepath.Dir(filepath.Join(root, cfg.TSConfig))
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", false
	}

	return dir, true
}

// Resolve returns path relative to the project directory as an absolute path
func (cfg *Config) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}

	root, err := cfg.ProjectPath()
	if err != nil {
		return "", err
	}

	return filepath.Join(root, path), nil
}
