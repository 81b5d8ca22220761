// Package config loads probity's TOML configuration file and resolves
// the environment-variable override chains for cache location and index
// URL.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/probitylabs/probity/pkg/errors"
)

// Environment variables. The specific variable always beats the general
// one: PROBITY_CACHE > cache_dir in the config file > XDG_CACHE_HOME >
// the platform default.
const (
	EnvCache    = "PROBITY_CACHE"
	EnvIndexURL = "PROBITY_INDEX_URL"
	EnvXDGCache = "XDG_CACHE_HOME"
)

// Duration wraps time.Duration so TOML values can be written as "15m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Redis configures an optional Redis backend for the index response
// cache. Artifacts always live on disk.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Config is the on-disk configuration. Every field has a working
// default; an absent file is not an error.
type Config struct {
	CacheDir      string   `toml:"cache_dir"`
	IndexURL      string   `toml:"index_url"`
	JSONIndexURL  string   `toml:"json_index_url"`
	CacheTTL      Duration `toml:"cache_ttl"`
	SkipYanked    bool     `toml:"skip_yanked"`
	Parallelism   int      `toml:"parallelism"`
	PythonVersion string   `toml:"python_version"`
	SysPlatform   string   `toml:"sys_platform"`
	ResponseCache string   `toml:"response_cache"` // "file" (default), "redis", "none"
	Redis         Redis    `toml:"redis"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CacheTTL:      Duration(15 * time.Minute),
		Parallelism:   4,
		PythonVersion: "3.11.9",
		SysPlatform:   "linux",
		ResponseCache: "file",
	}
}

// DefaultPath returns the standard config file location, or "" when the
// user config directory cannot be determined.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "probity", "config.toml")
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file yields the defaults.
func Load(path string) (Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeConfig, err, "load %s", path)
	}
	return cfg, nil
}

// ResolveCacheDir applies the cache location override chain.
func (c Config) ResolveCacheDir() string {
	if dir := os.Getenv(EnvCache); dir != "" {
		return expand(dir)
	}
	if c.CacheDir != "" {
		return expand(c.CacheDir)
	}
	if base := os.Getenv(EnvXDGCache); base != "" {
		return filepath.Join(base, "probity", "pypi")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".probity", "pypi")
	}
	return filepath.Join(home, ".cache", "probity", "pypi")
}

// ResolveIndexURL applies the index URL override chain. The returned
// value may be empty, in which case the index client falls back to its
// own default.
func (c Config) ResolveIndexURL() string {
	if url := os.Getenv(EnvIndexURL); url != "" {
		return url
	}
	return c.IndexURL
}

func expand(path string) string {
	if path == "~" || len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
