package config

const (
	LexiconStandard = "standard"
	LexiconLegacy   = "legacy"

	ConverterNative = "native"
	ConverterExec   = "exec"
)

const (
	defaultMaxItems    = 10
	defaultConverter   = ConverterNative
	defaultCommand     = "rapper -q -i turtle -o ntriples - aff4://"
	defaultCompression = "deflate"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Resolver: ResolverConfig{
			Lexicon: LexiconStandard,
		},
		Cache: CacheConfig{
			MaxItems: defaultMaxItems,
		},
		Index: IndexConfig{
			Converter: defaultConverter,
			Command:   defaultCommand,
		},
		Volume: VolumeConfig{
			Compression: defaultCompression,
		},
	}
}
