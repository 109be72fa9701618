// internal/config/model.go
//
// Typed configuration model for dogcfg.
//
// Context
// -------
// These structs define the shape of the tree that `loader.go` builds from
// its overlay layers:
//
//   - built-in defaults                        `Defaults()`,
//   - optional `conf/.env`                     dotenv values,
//   - `conf/global.yaml`                       primary static file,
//   - `DOGCFG_`-prefixed environment overrides highest precedence.
//
// A `database.password` of the form `vault:<mount/path>#<key>` is kept as is
// here; cmd/web resolves it through internal/vault before opening the pool.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   - Durations accept Go syntax ("15s", "2m").
//   - The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gt=0"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The template keeps host, port, and flags in YAML.  Its single `%s` verb is
// filled with `Password`, which normally points into Vault so credentials
// stay out of flat files.  Only cmd/web needs this section; see
// `ValidateServer`.
type Database struct {
	DSN       string `koanf:"dsn"        validate:"required"`
	Password  string `koanf:"password"`
	CacheSize int    `koanf:"cache_size" validate:"gte=1"`
}

//
// Client section
//

// Client configures the CLI's connection to the web API.
type Client struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"  validate:"gt=0"`
}

//
// Log section
//

// Log sets the minimum level for both the file and console cores.
type Log struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // DOGCFG_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Client   Client   `koanf:"client"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}

// Defaults returns the values used for keys no layer sets.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:   ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: Database{
			CacheSize: 256,
		},
		Client: Client{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
		Log: Log{Level: "info"},
	}
}
