package config

import (
	"io/ioutil"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Asset describes files that are copied unmodified into the output directory
type Asset struct {
	// Name is used as the task name
	Name string
	// Src is a file or glob, relative to the project directory
	Src string
	// Dest is a directory relative to the output directory
	Dest string `yaml:",omitempty"`
}

type assetManifest struct {
	Assets []Asset
}

// DefaultAssets are copied when no manifest exists
var DefaultAssets = []Asset{
	{
		// source-map loads this from __dirname since node_modules isn't shipped
		Name: "copy-wasm",
		Src:  "node_modules/source-map/lib/mappings.wasm",
	},
	{
		// only Windows x64 is shipped to keep the extension small
		Name: "copy-native-addons",
		Src:  "node_modules/koffi/build/koffi/win32_x64/*.node",
		Dest: "koffi/win32_x64",
	},
}

// LoadAssets reads the asset manifest. If the manifest doesn't exist, DefaultAssets is returned.
func (cfg *Config) LoadAssets() ([]Asset, error) {
	if cfg.Assets == "" {
		return DefaultAssets, nil
	}

	path, err := cfg.Resolve(cfg.Assets)
	if err != nil {
		return nil, err
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return DefaultAssets, nil
		}
		return nil, eris.Wrapf(err, "Could not open file %s.", path)
	}

	var manifest assetManifest
	err = yaml.Unmarshal(data, &manifest)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to parse %s.", path)
	}

	seen := make(map[string]bool, len(manifest.Assets))
	for idx, asset := range manifest.Assets {
		if asset.Name == "" || asset.Src == "" {
			return nil, eris.Errorf("%s: asset %d needs a name and a src", path, idx)
		}

		if seen[asset.Name] {
			return nil, eris.Errorf("%s: duplicate asset %s", path, asset.Name)
		}
		seen[asset.Name] = true
	}

	return manifest.Assets, nil
}
