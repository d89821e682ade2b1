package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent aff4meta configuration stored as
// config.toml in the .aff4/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Resolver ResolverConfig `toml:"resolver"`
	Cache    CacheConfig    `toml:"cache"`
	Index    IndexConfig    `toml:"index"`
	Dump     DumpConfig     `toml:"dump"`
	Volume   VolumeConfig   `toml:"volume"`
	Log      LogConfig      `toml:"log"`
}

// ResolverConfig selects the attribute vocabulary.
type ResolverConfig struct {
	// Lexicon is "standard" or "legacy".
	Lexicon string `toml:"lexicon,omitempty"`
}

// CacheConfig holds object cache settings.
type CacheConfig struct {
	MaxItems int `toml:"max_items,omitempty"`
}

// IndexConfig holds the metadata index settings. With the index enabled,
// volume metadata is converted once into a SQLite database under CacheDir
// and queried from there instead of being parsed into memory.
type IndexConfig struct {
	Enabled bool `toml:"enabled,omitempty"`

	// Converter is "native" or "exec".
	Converter string `toml:"converter,omitempty"`

	// Command is the exec converter's command line. It reads Turtle on
	// stdin and writes N-Triples on stdout.
	Command string `toml:"command,omitempty"`

	// CacheDir overrides where index databases are kept.
	CacheDir string `toml:"cache_dir,omitempty"`
}

// DumpConfig holds metadata serialization settings.
type DumpConfig struct {
	Verbose bool `toml:"verbose,omitempty"`
}

// VolumeConfig holds container settings.
type VolumeConfig struct {
	Compression string `toml:"compression,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug  bool `toml:"debug,omitempty"`
	JSON   bool `toml:"json,omitempty"`
	Pretty bool `toml:"pretty,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"resolver.lexicon": {
		get: func(c *Config) string { return c.Resolver.Lexicon },
		set: func(c *Config, v string) error {
			switch v {
			case LexiconStandard, LexiconLegacy:
				c.Resolver.Lexicon = v
				return nil
			default:
				return fmt.Errorf("invalid value for resolver.lexicon: %q (expected %s or %s)", v, LexiconStandard, LexiconLegacy)
			}
		},
	},
	"cache.max_items": {
		get: func(c *Config) string {
			if c.Cache.MaxItems == 0 {
				return ""
			}
			return strconv.Itoa(c.Cache.MaxItems)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for cache.max_items: %w", err)
			}
			if n <= 0 {
				return fmt.Errorf("invalid value for cache.max_items: %d must be positive", n)
			}
			c.Cache.MaxItems = n
			return nil
		},
	},
	"index.enabled": boolKey("index.enabled", func(c *Config) *bool { return &c.Index.Enabled }),
	"index.converter": {
		get: func(c *Config) string { return c.Index.Converter },
		set: func(c *Config, v string) error {
			switch v {
			case ConverterNative, ConverterExec:
				c.Index.Converter = v
				return nil
			default:
				return fmt.Errorf("invalid value for index.converter: %q (expected %s or %s)", v, ConverterNative, ConverterExec)
			}
		},
	},
	"index.command":      stringKey(func(c *Config) *string { return &c.Index.Command }),
	"index.cache_dir":    stringKey(func(c *Config) *string { return &c.Index.CacheDir }),
	"dump.verbose":       boolKey("dump.verbose", func(c *Config) *bool { return &c.Dump.Verbose }),
	"volume.compression": stringKey(func(c *Config) *string { return &c.Volume.Compression }),
	"log.debug":          boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"log.json":           boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty":         boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
}
