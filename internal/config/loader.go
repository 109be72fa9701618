// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. `Defaults()`.
  2. Optional `<root>/conf/.env`, exported into the process environment.
  3. Optional `<root>/conf/global.yaml`.
  4. Environment variables prefixed `DOGCFG_`, where `__` maps to “.”
     (e.g., `DOGCFG_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled over the defaults, validated,
enriched with the runtime root path, and cached in an `atomic.Pointer` for
lock-free reads.  `Reload()` calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  - DEBUG: root discovery, YAML read, env overlay.
  - ERROR: YAML parse, env overlay, unmarshal, validation failures.
  - INFO:  final “config loaded” with key highlights.
  - Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  - `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`, so
    `go run ./cmd/web` works from any sub-directory.
  - A missing YAML file is not an error; the CLI usually runs without one.
*/
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix is stripped from override variable names.
const EnvPrefix = "DOGCFG_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves DOGCFG_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to the bin/ layout, then the cwd.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load discovers the root and loads from it.
func Load() (*Config, error) {
	return LoadDir(rootDir())
}

// LoadDir reads .env, YAML, and env overrides under root, validates, and
// caches the result.
func LoadDir(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, never overrides variables already set)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	switch err := k.Load(file.Provider(yamlPath), yaml.Parser()); {
	case err == nil:
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	case errors.Is(err, fs.ErrNotExist):
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	default:
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: DOGCFG_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"api_url", cfg.Client.BaseURL,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps DOGCFG_HTTP__LISTEN_ADDR to http.listen_addr.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
