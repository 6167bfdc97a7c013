// Package config implements the §6 TOML configuration surface: search-path
// resolution, parsing, and the free-form per-driver `cfg` tables.
//
// Grounded on the teacher's config.Loader (sdk/config/config.go): ordered
// search paths, first-parseable-file-wins semantics, defaults filled in via
// creasty/defaults. Ported from the teacher's YAML format to
// github.com/BurntSushi/toml per §6, and from gopkg.in/yaml.v2 to
// BurntSushi/toml's native decoding. mergo still merges the
// `driver_defaults` table under each driver's `cfg` table, and
// mapstructure still handles the driver's free-form `cfg` table, same as
// the teacher's handler-config unmarshal.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/errors"
)

// LogLevel is the subset of levels the top-level `log_level` key accepts.
type LogLevel string

const (
	LogTrace LogLevel = "trace"
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
)

// Backend is the resolved back-end selection plus its parameters. Exactly
// one of Streams is populated with non-defaults when Kind is "streams";
// the in-memory backend takes no parameters.
type Backend struct {
	Kind    string        `toml:"kind"` // "memory" (default) or "streams"
	Streams StreamsConfig `toml:"streams"`
}

// StreamsConfig is the Redis-streams back-end's connection config, per §6.
type StreamsConfig struct {
	Addr string `toml:"addr" default:"127.0.0.1:6379"`
	// DBN defaults to defaultStreamsDBN (0 in release builds, 1 when built
	// with -tags debug) rather than a static struct tag, per §6.
	DBN int `toml:"dbn"`
}

// Driver is one `[[driver]]` table.
type Driver struct {
	Name       string         `toml:"name"`
	Prefix     string         `toml:"prefix"`
	MaxHistory *int           `toml:"max_history"`
	Cfg        map[string]any `toml:"cfg"`
}

// Logic is one `[[logic]]` table.
type Logic struct {
	Name    string   `toml:"name"`
	Summary string   `toml:"summary"`
	Exprs   []string `toml:"exprs"`
}

// Solar is the optional `[solar]` table giving the observer's coordinates
// for the solar provider (§4.7); nil Config.Solar means no solar
// provider runs.
type Solar struct {
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

// Config is the fully-resolved, defaulted configuration for one drmemd
// process.
type Config struct {
	LogLevel LogLevel `toml:"log_level" default:"info"`
	GraphQL  string   `toml:"graphql"`
	Metrics  string   `toml:"metrics_addr"`
	// MaxSettingsPerSec, if positive, caps the dispatcher's SetDevice
	// throughput. Zero (the default) means unlimited.
	MaxSettingsPerSec float64  `toml:"max_settings_per_sec"`
	Backend           Backend  `toml:"backend"`
	Solar             *Solar   `toml:"solar"`
	Driver            []Driver `toml:"driver"`
	Logic             []Logic  `toml:"logic"`

	// DriverDefaults is a "prototype" cfg table merged underneath every
	// [[driver]]'s own cfg table: fields a driver leaves unset fall back
	// to this table rather than the driver's zero value.
	DriverDefaults map[string]any `toml:"driver_defaults"`
}

// defaultSearchPaths is the §6 config search order: "first parseable file
// wins".
func defaultSearchPaths() []string {
	home := os.Getenv("HOME")
	paths := []string{"./drmem.toml"}
	if home != "" {
		paths = append(paths, filepath.Join(home, ".drmem.toml"))
	}
	paths = append(paths,
		"/usr/local/etc/drmem.toml",
		"/usr/pkg/etc/drmem.toml",
		"/etc/drmem.toml",
	)
	return paths
}

// Load resolves and parses the configuration. If explicitPath is non-empty
// (the `-c/--config` flag), only that file is tried; otherwise the §6
// search order is walked and the first file that parses wins.
func Load(explicitPath string) (*Config, error) {
	paths := defaultSearchPaths()
	if explicitPath != "" {
		paths = []string{explicitPath}
	}

	var lastErr error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			lastErr = err
			continue
		}

		cfg := &Config{}
		if err := defaults.Set(cfg); err != nil {
			return nil, errors.Wrap(errors.KindBadConfig, err, "applying config defaults")
		}
		cfg.Backend.Streams.DBN = defaultStreamsDBN
		if _, err := toml.Decode(string(data), cfg); err != nil {
			log.WithFields(log.Fields{"path": p, "error": err}).Warn("[config] failed to parse candidate config file")
			lastErr = err
			continue
		}

		if err := validate(cfg); err != nil {
			return nil, err
		}

		if err := applyDriverDefaults(cfg); err != nil {
			return nil, err
		}

		log.WithField("path", p).Info("[config] loaded configuration")
		return cfg, nil
	}

	if lastErr != nil {
		return nil, errors.Wrap(errors.KindBadConfig, lastErr, "no configuration file could be parsed")
	}
	return nil, errors.BadConfig("no configuration file found in search path")
}

// applyDriverDefaults merges DriverDefaults under each driver's own cfg
// table, via mergo, so a driver only has to set the keys it wants to
// override from the shared prototype.
func applyDriverDefaults(cfg *Config) error {
	if len(cfg.DriverDefaults) == 0 {
		return nil
	}
	for i := range cfg.Driver {
		if cfg.Driver[i].Cfg == nil {
			cfg.Driver[i].Cfg = map[string]any{}
		}
		if err := mergo.Merge(&cfg.Driver[i].Cfg, cfg.DriverDefaults); err != nil {
			return errors.Wrap(errors.KindBadConfig, err, "merging driver_defaults into driver %q cfg", cfg.Driver[i].Name)
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.MaxSettingsPerSec < 0 {
		return errors.BadConfig("max_settings_per_sec must not be negative")
	}

	switch cfg.LogLevel {
	case LogTrace, LogDebug, LogInfo, LogWarn:
	default:
		return errors.BadConfig("invalid log_level %q", cfg.LogLevel)
	}

	seen := make(map[string]bool)
	for _, d := range cfg.Driver {
		if d.Name == "" {
			return errors.BadConfig("driver entry missing required 'name'")
		}
		if d.Prefix == "" {
			return errors.BadConfig("driver %q missing required 'prefix'", d.Name)
		}
		if seen[d.Name] {
			return errors.ConfigError("duplicate driver name %q", d.Name)
		}
		seen[d.Name] = true
		if d.MaxHistory != nil && *d.MaxHistory < 0 {
			return errors.BadConfig("driver %q has negative max_history", d.Name)
		}
	}

	for _, l := range cfg.Logic {
		if l.Name == "" {
			return errors.BadConfig("logic block missing required 'name'")
		}
		if len(l.Exprs) == 0 {
			return errors.BadConfig("logic block %q has no expressions", l.Name)
		}
	}

	return nil
}
