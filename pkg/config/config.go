// Package config loads the optional machine-level tool configuration from
// ~/.config/depot/config.toml. All fields have working defaults, so a
// missing file is not an error.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/depot/pkg/errors"
)

// Defaults applied when the config file is absent or a field is empty.
const (
	// DefaultRegistryURL is the base URL for registry package archives.
	// Archives are addressed as <base>/<name>/<version>.tar.gz.
	DefaultRegistryURL = "https://packages.depot-lang.org"

	// DefaultCatalogURL is the base URL for package-set snapshots.
	// Snapshots are addressed as <base>/<tag>/packages.json.
	DefaultCatalogURL = "https://raw.githubusercontent.com/depot-lang/package-sets/refs/tags"
)

// Config is the machine-level tool configuration.
type Config struct {
	// RegistryURL overrides the registry archive base URL.
	RegistryURL string `toml:"registry_url"`

	// CatalogURL overrides the package-set snapshot base URL.
	CatalogURL string `toml:"catalog_url"`

	// CacheDir overrides the global package cache directory
	// (default: <user cache dir>/depot).
	CacheDir string `toml:"cache_dir"`
}

// Path returns the config file location (~/.config/depot/config.toml).
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "depot", "config.toml"), nil
}

// Load reads the config from path, falling back to defaults when the file
// does not exist. An empty path loads from [Path].
func Load(path string) (Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeIO, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a Config with every field set to its default.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.RegistryURL == "" {
		c.RegistryURL = DefaultRegistryURL
	}
	if c.CatalogURL == "" {
		c.CatalogURL = DefaultCatalogURL
	}
	if c.CacheDir == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			c.CacheDir = filepath.Join(dir, "depot")
		}
	}
}
