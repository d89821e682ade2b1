// Package resolver ties the fact store, the object cache and the type
// registry together. A Resolver answers metadata queries, opens objects by
// URN and writes its persistent facts back to volumes.
//
// A Resolver is not safe for concurrent use. Objects it constructs call
// back into it, so hosts that share one across goroutines must serialize
// every call behind a single lock.
package resolver

import (
	"fmt"
	"iter"
	"log/slog"
	"regexp"

	"github.com/papercomputeco/aff4meta/pkg/cache"
	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/logger"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/registry"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/storage/inmemory"
	"github.com/papercomputeco/aff4meta/pkg/streams"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

// Config configures a Resolver.
type Config struct {
	// Lexicon selects standard or legacy attribute names. Defaults to
	// lexicon.Standard.
	Lexicon lexicon.Lexicon

	// Driver stores facts. Defaults to an in-memory driver.
	Driver storage.Driver

	// Types maps type URIs and schemes to constructors.
	Types *registry.Types

	// Streams recognizes symbolic streams. Defaults to the standard stream
	// factory for Lexicon.
	Streams registry.StreamFactory

	// ByteRange builds the object behind a content hash reference.
	// Defaults to streams.NewByteRange.
	ByteRange registry.Constructor

	// Values parses literal datatypes on load. Defaults to
	// rdfvalue.DefaultRegistry.
	Values *rdfvalue.Registry

	// CacheMaxItems bounds idle cached objects. Defaults to
	// cache.DefaultMaxItems.
	CacheMaxItems int

	// Metrics records cache activity when set.
	Metrics *cache.Metrics

	// Verbose includes volatile attributes in dumped metadata.
	Verbose bool

	// Compression names the codec for metadata members. Defaults to
	// deflate.
	Compression string

	// Logger is the provided slog logger. Defaults to a no-op logger.
	Logger *slog.Logger
}

type flushCallback struct {
	name string
	fn   func() error
}

// Resolver is the AFF4 metadata resolver.
type Resolver struct {
	lex       lexicon.Lexicon
	driver    storage.Driver
	types     *registry.Types
	streams   registry.StreamFactory
	byteRange registry.Constructor
	values    *rdfvalue.Registry
	cache     *cache.ObjectCache

	verbose     bool
	compression volume.Compression
	logger      *slog.Logger

	callbacks []flushCallback

	// namespace is the AFF4 schema namespace declared by loaded metadata.
	namespace string
}

// New creates a resolver.
func New(c *Config) (*Resolver, error) {
	if c == nil {
		c = &Config{}
	}

	r := &Resolver{
		lex:       c.Lexicon,
		driver:    c.Driver,
		types:     c.Types,
		streams:   c.Streams,
		byteRange: c.ByteRange,
		values:    c.Values,
		verbose:   c.Verbose,
		logger:    c.Logger,
	}
	if r.lex.Base == "" {
		r.lex = lexicon.Standard
	}
	if r.driver == nil {
		r.driver = inmemory.NewDriver()
	}
	if r.types == nil {
		r.types = registry.Empty
	}
	if r.streams == nil {
		r.streams = streams.NewStdStreamFactory(r.lex)
	}
	if r.byteRange == nil {
		r.byteRange = streams.NewByteRange
	}
	if r.values == nil {
		r.values = rdfvalue.DefaultRegistry()
	}
	if r.logger == nil {
		r.logger = logger.Nop()
	}

	r.compression = volume.Deflate
	if c.Compression != "" {
		compression, err := volume.ParseCompression(c.Compression)
		if err != nil {
			return nil, fmt.Errorf("metadata compression: %w", err)
		}
		r.compression = compression
	}

	r.cache = cache.New(&cache.Config{
		MaxItems: c.CacheMaxItems,
		Logger:   r.logger,
		Metrics:  c.Metrics,
	})
	return r, nil
}

// Lexicon returns the attribute vocabulary in use.
func (r *Resolver) Lexicon() lexicon.Lexicon {
	return r.lex
}

// AFF4Namespace returns the AFF4 schema namespace declared by the last
// loaded metadata, or "" if none declared one.
func (r *Resolver) AFF4Namespace() string {
	return r.namespace
}

// Values is the registry parsing stored literals.
func (r *Resolver) Values() *rdfvalue.Registry {
	return r.values
}

// Driver returns the fact store.
func (r *Resolver) Driver() storage.Driver {
	return r.driver
}

// Cache returns the object cache.
func (r *Resolver) Cache() *cache.ObjectCache {
	return r.cache
}

// Add appends value to a slot of g.
func (r *Resolver) Add(g storage.Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error {
	return r.driver.Add(g, subject, attribute, value)
}

// Set overwrites a slot of g with value.
func (r *Resolver) Set(g storage.Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error {
	return r.driver.Set(g, subject, attribute, value)
}

// Get returns the values of a slot; nil when absent.
func (r *Resolver) Get(sel storage.Selector, subject, attribute rdfvalue.URN) []rdfvalue.Value {
	return r.driver.Get(sel, subject, attribute)
}

// QuerySubject yields subjects whose URN matches pattern at its start.
func (r *Resolver) QuerySubject(sel storage.Selector, pattern string) (iter.Seq[rdfvalue.URN], error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("subject pattern: %w", err)
	}
	return r.driver.QuerySubject(sel, re), nil
}

func (r *Resolver) QueryPredicate(sel storage.Selector, predicate rdfvalue.URN) iter.Seq[storage.Triple] {
	return r.driver.QueryPredicate(sel, predicate)
}

func (r *Resolver) QueryPredicateObject(sel storage.Selector, predicate rdfvalue.URN, value rdfvalue.Value) iter.Seq[rdfvalue.URN] {
	return r.driver.QueryPredicateObject(sel, predicate, value)
}

func (r *Resolver) QuerySubjectPredicate(sel storage.Selector, subject, predicate rdfvalue.URN) iter.Seq[rdfvalue.Value] {
	return r.driver.QuerySubjectPredicate(sel, subject, predicate)
}

func (r *Resolver) SelectSubjectsByPrefix(sel storage.Selector, prefix string) iter.Seq[rdfvalue.URN] {
	return r.driver.SelectSubjectsByPrefix(sel, prefix)
}

func (r *Resolver) QueryPredicatesBySubject(sel storage.Selector, subject rdfvalue.URN) iter.Seq[storage.Attribute] {
	return r.driver.QueryPredicatesBySubject(sel, subject)
}

// DeleteSubject removes the persistent facts about subject.
func (r *Resolver) DeleteSubject(subject rdfvalue.URN) {
	r.driver.DeleteSubject(subject)
}

// IsImageStream reports whether subject is typed as a standard or legacy
// image stream in the persistent graph.
func (r *Resolver) IsImageStream(subject rdfvalue.URN) bool {
	for _, v := range r.driver.Get(storage.SelectPersistent, subject, rdfvalue.NewURN(lexicon.Type)) {
		switch v.String() {
		case lexicon.ImageType, lexicon.LegacyImageType:
			return true
		}
	}
	return false
}

// OnFlush registers fn to run after every Flush. Registering a name again
// replaces its callback.
func (r *Resolver) OnFlush(name string, fn func() error) {
	for i := range r.callbacks {
		if r.callbacks[i].name == name {
			r.callbacks[i].fn = fn
			return
		}
	}
	r.callbacks = append(r.callbacks, flushCallback{name: name, fn: fn})
}

// Flush persists and closes every cached object, then runs the flush
// callbacks in registration order. Flushing while objects are still in use
// is a contract violation.
func (r *Resolver) Flush() error {
	if err := r.cache.Flush(); err != nil {
		return err
	}

	for _, cb := range r.callbacks {
		if err := cb.fn(); err != nil {
			return fmt.Errorf("flush callback %s: %w", cb.name, err)
		}
	}
	return nil
}

// Shutdown flushes and closes the fact store.
func (r *Resolver) Shutdown() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.driver.Close()
}
