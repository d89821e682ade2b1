package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --index
// on both "aff4meta query" and "aff4meta dump").
type Flag struct {
	// Name is the long flag name (e.g. "index").
	Name string

	// Shorthand is the one-letter short flag (e.g. "i"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "index.enabled").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagLexicon        = "lexicon"
	FlagCacheMaxItems  = "cache-max-items"
	FlagIndex          = "index"
	FlagIndexConverter = "index-converter"
	FlagIndexCommand   = "index-command"
	FlagIndexCacheDir  = "index-cache-dir"
	FlagVerbose        = "verbose"
	FlagCompression    = "compression"
	FlagDebug          = "debug"
	FlagJSON           = "json"
	FlagPretty         = "pretty"
)

// Flags is the registry shared by every aff4meta command.
var Flags = FlagSet{
	FlagLexicon: {
		Name:        "lexicon",
		ViperKey:    "resolver.lexicon",
		Description: "Attribute vocabulary (standard, legacy)",
	},
	FlagCacheMaxItems: {
		Name:        "cache-max-items",
		ViperKey:    "cache.max_items",
		Description: "Maximum number of idle objects kept in the object cache",
	},
	FlagIndex: {
		Name:        "index",
		Shorthand:   "i",
		ViperKey:    "index.enabled",
		Description: "Query volume metadata through a SQLite index",
	},
	FlagIndexConverter: {
		Name:        "index-converter",
		ViperKey:    "index.converter",
		Description: "How indexes are built (native, exec)",
	},
	FlagIndexCommand: {
		Name:        "index-command",
		ViperKey:    "index.command",
		Description: "Command converting Turtle on stdin to N-Triples on stdout",
	},
	FlagIndexCacheDir: {
		Name:        "index-cache-dir",
		ViperKey:    "index.cache_dir",
		Description: "Directory holding index databases",
	},
	FlagVerbose: {
		Name:        "verbose",
		Shorthand:   "v",
		ViperKey:    "dump.verbose",
		Description: "Include volatile attributes when serializing",
	},
	FlagCompression: {
		Name:        "compression",
		ViperKey:    "volume.compression",
		Description: "Codec for metadata members (stored, deflate, zstd, lz4)",
	},
	FlagDebug: {
		Name:        "debug",
		Shorthand:   "d",
		ViperKey:    "log.debug",
		Description: "Enable debug logging",
	},
	FlagJSON: {
		Name:        "log-json",
		ViperKey:    "log.json",
		Description: "Write logs as JSON",
	},
	FlagPretty: {
		Name:        "log-pretty",
		ViperKey:    "log.pretty",
		Description: "Write colorized human readable logs",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
