// Package session builds the resolver, logger and volume a command works
// on from flags, environment and config.toml.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/pkg/cache"
	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/config"
	"github.com/papercomputeco/aff4meta/pkg/dotdir"
	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/logger"
	"github.com/papercomputeco/aff4meta/pkg/resolver"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/storage/overlay"
	"github.com/papercomputeco/aff4meta/pkg/storage/sqlite"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

// boundFlags are the registry flags every session command accepts.
var boundFlags = []string{
	config.FlagLexicon,
	config.FlagCacheMaxItems,
	config.FlagIndex,
	config.FlagIndexConverter,
	config.FlagIndexCommand,
	config.FlagIndexCacheDir,
	config.FlagVerbose,
	config.FlagCompression,
	config.FlagDebug,
	config.FlagJSON,
	config.FlagPretty,
}

// Flags holds the flag targets of one command.
type Flags struct {
	Volume string

	lexicon     string
	maxItems    int
	index       bool
	converter   string
	command     string
	cacheDir    string
	verbose     bool
	compression string
	debug       bool
	json        bool
	pretty      bool
}

// AddFlags registers the session flags on cmd.
func (f *Flags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Volume, "volume", "", "Volume directory (default: the volume selected with open)")

	config.AddStringFlag(cmd, config.Flags, config.FlagLexicon, &f.lexicon)
	config.AddIntFlag(cmd, config.Flags, config.FlagCacheMaxItems, &f.maxItems)
	config.AddBoolFlag(cmd, config.Flags, config.FlagIndex, &f.index)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexConverter, &f.converter)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexCommand, &f.command)
	config.AddStringFlag(cmd, config.Flags, config.FlagIndexCacheDir, &f.cacheDir)
	config.AddBoolFlag(cmd, config.Flags, config.FlagVerbose, &f.verbose)
	config.AddStringFlag(cmd, config.Flags, config.FlagCompression, &f.compression)
	config.AddBoolFlag(cmd, config.Flags, config.FlagDebug, &f.debug)
	config.AddBoolFlag(cmd, config.Flags, config.FlagJSON, &f.json)
	config.AddBoolFlag(cmd, config.Flags, config.FlagPretty, &f.pretty)
}

// Session is an open resolver over one volume.
type Session struct {
	Config   *config.Config
	Logger   *slog.Logger
	Resolver *resolver.Resolver
	Volume   *volume.DirVolume
	Overlay  *overlay.Driver

	configDir string
	registry  *prometheus.Registry
	closers   []func() error
}

// Open resolves the configuration for cmd, builds the resolver and loads
// the selected volume's metadata.
func Open(ctx context.Context, cmd *cobra.Command, f *Flags) (*Session, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	logFile, _ := cmd.Flags().GetString("log-file")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, boundFlags)
	cfg := config.FromViper(v)

	s := &Session{Config: cfg, configDir: configDir, registry: prometheus.NewRegistry()}

	s.Logger, err = s.newLogger(logFile)
	if err != nil {
		return nil, err
	}

	var driver storage.Driver
	if cfg.Index.Enabled {
		s.Overlay, err = s.newOverlay()
		if err != nil {
			return nil, s.fail(err)
		}
		driver = s.Overlay
	}

	lex := lexicon.Standard
	if cfg.Resolver.Lexicon == config.LexiconLegacy {
		lex = lexicon.Legacy
	}

	s.Resolver, err = resolver.New(&resolver.Config{
		Lexicon:       lex,
		Driver:        driver,
		CacheMaxItems: cfg.Cache.MaxItems,
		Metrics:       cache.NewMetrics(s.registry),
		Verbose:       cfg.Dump.Verbose,
		Compression:   cfg.Volume.Compression,
		Logger:        s.Logger,
	})
	if err != nil {
		return nil, s.fail(err)
	}
	s.closers = append(s.closers, s.Resolver.Shutdown)

	path, err := volumePath(configDir, f.Volume)
	if err != nil {
		return nil, s.fail(err)
	}
	s.Volume, err = volume.OpenDir(path)
	if err != nil {
		return nil, s.fail(err)
	}

	load := func() error { return s.Resolver.LoadMetadata(ctx, s.Volume) }
	if cfg.Index.Enabled && cliui.IsTerminal(os.Stderr) {
		err = cliui.Step(os.Stderr, "loading metadata index", load)
	} else {
		err = load()
	}
	if err != nil {
		return nil, s.fail(fmt.Errorf("loading metadata of %s: %w", path, err))
	}

	s.Logger.Debug("session opened",
		"volume", s.Volume.URN().String(),
		"path", path,
		"indexed", cfg.Index.Enabled,
	)
	return s, nil
}

func (s *Session) newLogger(logFile string) (*slog.Logger, error) {
	stderr := logger.New(
		logger.WithDebug(s.Config.Log.Debug),
		logger.WithJSON(s.Config.Log.JSON),
		logger.WithPretty(s.Config.Log.Pretty),
	)
	if logFile == "" {
		return stderr, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	s.closers = append(s.closers, f.Close)

	file := logger.New(
		logger.WithDebug(s.Config.Log.Debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(stderr, file), nil
}

// IndexDir is the directory holding index databases.
func (s *Session) IndexDir() (string, error) {
	var fallback string
	if dir, err := dotdir.NewManager().Ensure(s.configDir); err == nil {
		fallback = filepath.Join(dir, "index")
	}
	return sqlite.ResolveCacheDir(s.Config.Index.CacheDir, fallback)
}

func (s *Session) newOverlay() (*overlay.Driver, error) {
	cacheDir, err := s.IndexDir()
	if err != nil {
		return nil, err
	}

	var conv sqlite.Converter = sqlite.NativeConverter{}
	if s.Config.Index.Converter == config.ConverterExec {
		conv = sqlite.ExecConverter{Command: strings.Fields(s.Config.Index.Command)}
	}

	return overlay.NewDriver(nil, &overlay.Config{
		CacheDir:  cacheDir,
		Converter: conv,
		Logger:    s.Logger,
	}), nil
}

// volumePath picks the volume directory: the flag, or the saved selection.
func volumePath(configDir, flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}

	current, err := dotdir.NewManager().LoadCurrentVolume(configDir)
	if err != nil {
		return "", err
	}
	if current == nil {
		return "", errors.New("no volume selected; pass --volume or run aff4meta open <dir>")
	}
	return current.Path, nil
}

// Flush appends the persistent graph to the volume.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.Resolver.Flush(); err != nil {
		return err
	}
	return s.Resolver.DumpToTurtle(ctx, s.Volume)
}

// Close flushes the cache and releases the session in reverse order of
// acquisition.
func (s *Session) Close() error {
	s.logMetrics()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func (s *Session) fail(err error) error {
	return errors.Join(err, s.Close())
}

// logMetrics writes the cache counters at debug level.
func (s *Session) logMetrics() {
	if s.Logger == nil {
		return
	}
	families, err := s.registry.Gather()
	if err != nil {
		s.Logger.Debug("gathering metrics", "error", err)
		return
	}

	attrs := make([]any, 0, 2*len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, mf.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				attrs = append(attrs, mf.GetName(), m.GetGauge().GetValue())
			}
		}
	}
	s.Logger.Debug("object cache metrics", attrs...)
}
