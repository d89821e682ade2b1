package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/aff4meta/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the AFF4_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (AFF4_CACHE_MAX_ITEMS, AFF4_INDEX_ENABLED, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("AFF4")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective configuration.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Resolver: ResolverConfig{
			Lexicon: v.GetString("resolver.lexicon"),
		},
		Cache: CacheConfig{
			MaxItems: v.GetInt("cache.max_items"),
		},
		Index: IndexConfig{
			Enabled:   v.GetBool("index.enabled"),
			Converter: v.GetString("index.converter"),
			Command:   v.GetString("index.command"),
			CacheDir:  v.GetString("index.cache_dir"),
		},
		Dump: DumpConfig{
			Verbose: v.GetBool("dump.verbose"),
		},
		Volume: VolumeConfig{
			Compression: v.GetString("volume.compression"),
		},
		Log: LogConfig{
			Debug:  v.GetBool("log.debug"),
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("resolver.lexicon", d.Resolver.Lexicon)
	v.SetDefault("cache.max_items", d.Cache.MaxItems)

	// Index
	v.SetDefault("index.enabled", d.Index.Enabled)
	v.SetDefault("index.converter", d.Index.Converter)
	v.SetDefault("index.command", d.Index.Command)
	v.SetDefault("index.cache_dir", d.Index.CacheDir)

	v.SetDefault("dump.verbose", d.Dump.Verbose)
	v.SetDefault("volume.compression", d.Volume.Compression)

	// Log
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.pretty", d.Log.Pretty)
}
