// Package config loads spikeforge settings.
//
// Precedence is environment over file over defaults:
//
//	defaults (struct) -> spikeforge.yaml (or $SPIKEFORGE_CONFIG) -> SPIKEFORGE_* env
//
// Every knob defaults to a small, safe value so zero configuration works.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/HendryAvila/spikeforge/internal/cache"
	"github.com/HendryAvila/spikeforge/internal/engine"
	"github.com/HendryAvila/spikeforge/internal/logging"
	"github.com/HendryAvila/spikeforge/internal/match"
)

const (
	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "SPIKEFORGE_"
	// ConfigPathEnvVar names an explicit config file.
	ConfigPathEnvVar = "SPIKEFORGE_CONFIG"
	// DefaultConfigFile is looked up in the working directory.
	DefaultConfigFile = "spikeforge.yaml"
)

// Config is the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `koanf:"catalog"`
	Match     MatchConfig     `koanf:"match"`
	Cache     CacheConfig     `koanf:"cache"`
	Overrides OverridesConfig `koanf:"overrides"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Log       LogConfig       `koanf:"log"`
}

type CatalogConfig struct {
	// Limit caps enumeration of the synthesized space; 0 means no cap.
	Limit int `koanf:"limit" validate:"gte=0"`
}

type MatchConfig struct {
	BatchMultiplier int     `koanf:"batch_multiplier" validate:"gte=1,lte=1000"`
	AliasBoost      float64 `koanf:"alias_boost" validate:"gte=0,lte=10"`
	Shortlist       int     `koanf:"shortlist" validate:"gte=1,lte=100"`
	Threshold       float64 `koanf:"threshold" validate:"gte=0,lte=1"`
	Aliases         bool    `koanf:"aliases"`
	Workers         int     `koanf:"workers" validate:"gte=1,lte=64"`
}

type CacheConfig struct {
	Capacity int           `koanf:"capacity" validate:"gte=1"`
	TTL      time.Duration `koanf:"ttl" validate:"gt=0"`
}

type OverridesConfig struct {
	// Dir holds project overrides, relative to the working directory.
	Dir string `koanf:"dir"`
	// DB is the user-wide SQLite store. Empty disables it.
	DB    string `koanf:"db"`
	Watch bool   `koanf:"watch"`
}

type MetricsConfig struct {
	// Addr enables the /metrics listener, e.g. "127.0.0.1:9464".
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default returns the zero-configuration settings.
func Default() *Config {
	db := ""
	if home, err := os.UserHomeDir(); err == nil {
		db = filepath.Join(home, ".spikeforge", "overrides.db")
	}
	m := match.DefaultOptions()
	return &Config{
		Catalog: CatalogConfig{Limit: 10000},
		Match: MatchConfig{
			BatchMultiplier: m.BatchMultiplier,
			AliasBoost:      m.AliasBoost,
			Shortlist:       m.Shortlist,
			Threshold:       m.Threshold,
			Aliases:         m.Aliases,
			Workers:         m.Workers,
		},
		Cache:     CacheConfig{Capacity: cache.DefaultCapacity, TTL: cache.DefaultTTL},
		Overrides: OverridesConfig{Dir: filepath.Join(".spikes", "overrides"), DB: db, Watch: true},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load layers defaults, the config file and the environment. path, when
// non-empty, must exist; otherwise $SPIKEFORGE_CONFIG and then
// spikeforge.yaml are tried.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}
	return ""
}

// envKeys maps SPIKEFORGE_* suffixes to config paths. Unlisted variables
// are ignored.
var envKeys = map[string]string{
	"catalog_limit":    "catalog.limit",
	"batch_multiplier": "match.batch_multiplier",
	"alias_boost":      "match.alias_boost",
	"shortlist":        "match.shortlist",
	"threshold":        "match.threshold",
	"aliases":          "match.aliases",
	"workers":          "match.workers",
	"cache_capacity":   "cache.capacity",
	"cache_ttl":        "cache.ttl",
	"overrides_dir":    "overrides.dir",
	"overrides_db":     "overrides.db",
	"overrides_watch":  "overrides.watch",
	"metrics_addr":     "metrics.addr",
	"log_level":        "log.level",
	"log_format":       "log.format",
	"log_caller":       "log.caller",
}

// envTransformFunc turns SPIKEFORGE_SHORTLIST into match.shortlist.
func envTransformFunc(key string) string {
	return envKeys[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))]
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

// Engine converts to engine settings.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		CatalogLimit:  c.Catalog.Limit,
		CacheCapacity: c.Cache.Capacity,
		CacheTTL:      c.Cache.TTL,
		Match: match.Options{
			Shortlist:       c.Match.Shortlist,
			BatchMultiplier: c.Match.BatchMultiplier,
			AliasBoost:      c.Match.AliasBoost,
			Threshold:       c.Match.Threshold,
			Aliases:         c.Match.Aliases,
			Workers:         c.Match.Workers,
		},
	}
}

// Logging converts to logger settings. Output stays on stderr.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Caller: c.Log.Caller,
		Output: os.Stderr,
	}
}
