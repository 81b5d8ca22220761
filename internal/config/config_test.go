package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope", "config.toml"))
	if err == nil {
		t.Fatal("explicit missing path should fail")
	}

	// Default location missing is fine.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Parallelism != 4 || cfg.ResponseCache != "file" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if time.Duration(cfg.CacheTTL) != 15*time.Minute {
		t.Errorf("default ttl = %v", time.Duration(cfg.CacheTTL))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
cache_dir = "/tmp/probity-test"
index_url = "https://mirror.example/simple/"
cache_ttl = "1h"
skip_yanked = true
parallelism = 8
response_cache = "redis"

[redis]
addr = "localhost:6379"
db = 2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheDir != "/tmp/probity-test" {
		t.Errorf("cache_dir = %q", cfg.CacheDir)
	}
	if cfg.IndexURL != "https://mirror.example/simple/" {
		t.Errorf("index_url = %q", cfg.IndexURL)
	}
	if time.Duration(cfg.CacheTTL) != time.Hour {
		t.Errorf("cache_ttl = %v", time.Duration(cfg.CacheTTL))
	}
	if !cfg.SkipYanked || cfg.Parallelism != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ResponseCache != "redis" || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	// Fields absent from the file keep their defaults.
	if cfg.PythonVersion == "" {
		t.Error("python_version default lost")
	}
}

func TestResolveCacheDirPrecedence(t *testing.T) {
	t.Setenv(EnvCache, "")
	t.Setenv(EnvXDGCache, "")
	t.Setenv("HOME", "/home/probe")

	var cfg Config
	if got, want := cfg.ResolveCacheDir(), "/home/probe/.cache/probity/pypi"; got != want {
		t.Errorf("home fallback = %q, want %q", got, want)
	}

	t.Setenv(EnvXDGCache, "/xdg")
	if got, want := cfg.ResolveCacheDir(), "/xdg/probity/pypi"; got != want {
		t.Errorf("xdg = %q, want %q", got, want)
	}

	cfg.CacheDir = "/from/config"
	if got := cfg.ResolveCacheDir(); got != "/from/config" {
		t.Errorf("config file should beat XDG, got %q", got)
	}

	t.Setenv(EnvCache, "/from/env")
	if got := cfg.ResolveCacheDir(); got != "/from/env" {
		t.Errorf("%s should beat everything, got %q", EnvCache, got)
	}
}

func TestResolveCacheDirExpandsTilde(t *testing.T) {
	t.Setenv(EnvCache, "~/probity-cache")
	t.Setenv("HOME", "/home/probe")
	var cfg Config
	if got, want := cfg.ResolveCacheDir(), "/home/probe/probity-cache"; got != want {
		t.Errorf("tilde expansion = %q, want %q", got, want)
	}
}

func TestResolveIndexURL(t *testing.T) {
	t.Setenv(EnvIndexURL, "")
	cfg := Config{IndexURL: "https://mirror.example/simple/"}
	if got := cfg.ResolveIndexURL(); got != "https://mirror.example/simple/" {
		t.Errorf("config url = %q", got)
	}
	t.Setenv(EnvIndexURL, "https://env.example/simple/")
	if got := cfg.ResolveIndexURL(); got != "https://env.example/simple/" {
		t.Errorf("env should win, got %q", got)
	}
}
