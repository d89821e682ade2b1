// Package overlay provides a driver that answers persistent graph queries
// from SQLite indexes of volume metadata, merged with an in-memory store
// that receives every write.
package overlay

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"regexp"

	"github.com/papercomputeco/aff4meta/pkg/logger"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/storage/inmemory"
	"github.com/papercomputeco/aff4meta/pkg/storage/sqlite"
)

// Config configures a Driver.
type Config struct {
	// CacheDir holds the index databases.
	CacheDir string

	// Converter builds missing indexes. Defaults to sqlite.NativeConverter.
	Converter sqlite.Converter

	// Values parses stored literals. Defaults to rdfvalue.DefaultRegistry.
	Values *rdfvalue.Registry

	// Logger is the provided slog logger. Defaults to a no-op logger.
	Logger *slog.Logger
}

type attached struct {
	volume rdfvalue.URN
	index  *sqlite.Index
}

// Driver overlays volume indexes on an in-memory driver. With no index
// attached it behaves exactly like the in-memory driver.
type Driver struct {
	*inmemory.Driver

	cacheDir  string
	converter sqlite.Converter
	values    *rdfvalue.Registry
	logger    *slog.Logger

	indexes  []attached
	disabled bool

	// deleted hides index facts of subjects removed with DeleteSubject for
	// the lifetime of the driver.
	deleted map[string]bool
}

// NewDriver wraps base. A nil base gets a fresh in-memory driver.
func NewDriver(base *inmemory.Driver, c *Config) *Driver {
	if base == nil {
		base = inmemory.NewDriver()
	}
	if c == nil {
		c = &Config{}
	}
	d := &Driver{
		Driver:    base,
		cacheDir:  c.CacheDir,
		converter: c.Converter,
		values:    c.Values,
		logger:    c.Logger,
		deleted:   make(map[string]bool),
	}
	if d.converter == nil {
		d.converter = sqlite.NativeConverter{}
	}
	if d.values == nil {
		d.values = rdfvalue.DefaultRegistry()
	}
	if d.logger == nil {
		d.logger = logger.Nop()
	}
	return d
}

// Enabled reports whether indexes are still consulted or built.
func (d *Driver) Enabled() bool {
	return !d.disabled
}

// Disable detaches every index and stops building new ones. The base store
// keeps serving all queries.
func (d *Driver) Disable() {
	d.disabled = true
	d.closeIndexes()
}

// Indexed reports whether an index is attached for volume.
func (d *Driver) Indexed(volume rdfvalue.URN) bool {
	return d.find(volume) >= 0
}

func (d *Driver) find(volume rdfvalue.URN) int {
	for i, a := range d.indexes {
		if a.volume.String() == volume.String() {
			return i
		}
	}
	return -1
}

// AttachIndex opens or builds the index of volume. A failed conversion is
// logged and disables indexing; the caller then loads the metadata itself.
func (d *Driver) AttachIndex(ctx context.Context, volume rdfvalue.URN, src storage.TurtleSource) (bool, error) {
	if d.disabled || d.cacheDir == "" {
		return false, nil
	}
	if d.Indexed(volume) {
		return true, nil
	}

	path := sqlite.CachePath(d.cacheDir, volume)
	ix, built, err := sqlite.Build(ctx, path, src, d.converter, d.values)
	if err != nil {
		var convErr *sqlite.ConvertError
		if errors.As(err, &convErr) {
			d.logger.Error("index build failed, continuing without index",
				"volume", volume.String(), "tool", convErr.Tool, "error", convErr.Err)
			d.Disable()
			return false, nil
		}
		return false, err
	}

	d.logger.Info("attached metadata index", "volume", volume.String(), "path", path, "built", built)
	d.indexes = append(d.indexes, attached{volume: volume, index: ix})
	return true, nil
}

// InvalidateIndex detaches the index of volume and deletes its database so
// the next attach rebuilds it.
func (d *Driver) InvalidateIndex(volume rdfvalue.URN) error {
	var closeErr error
	if i := d.find(volume); i >= 0 {
		closeErr = d.indexes[i].index.Close()
		d.indexes = append(d.indexes[:i], d.indexes[i+1:]...)
	}
	if d.cacheDir == "" {
		return closeErr
	}

	d.logger.Debug("invalidating metadata index", "volume", volume.String())
	return errors.Join(closeErr, sqlite.Remove(sqlite.CachePath(d.cacheDir, volume)))
}

func (d *Driver) closeIndexes() {
	for _, a := range d.indexes {
		if err := a.index.Close(); err != nil {
			d.logger.Warn("closing metadata index", "volume", a.volume.String(), "error", err)
		}
	}
	d.indexes = nil
}

// Close closes the indexes and the base driver.
func (d *Driver) Close() error {
	d.closeIndexes()
	return d.Driver.Close()
}

// consult lists the indexes a read with sel should query. Indexes hold
// persistent facts only.
func (d *Driver) consult(sel storage.Selector) []attached {
	if d.disabled || !sel.Includes(storage.Persistent) {
		return nil
	}
	return d.indexes
}

// DeleteSubject drops the subject from the base store and hides its
// indexed facts, including those of indexes attached later.
func (d *Driver) DeleteSubject(subject rdfvalue.URN) {
	d.Driver.DeleteSubject(subject)
	d.deleted[subject.String()] = true
}

func (d *Driver) hidden(subject rdfvalue.URN) bool {
	return d.deleted[subject.String()]
}

func (d *Driver) queryFailed(op string, a attached, err error) {
	d.logger.Error("index query failed, using in-memory results", "op", op, "volume", a.volume.String(), "error", err)
}

// Get returns index values followed by base values not already present.
func (d *Driver) Get(sel storage.Selector, subject, attribute rdfvalue.URN) []rdfvalue.Value {
	var out []rdfvalue.Value
	for _, a := range d.consult(sel) {
		if d.hidden(subject) {
			break
		}
		values, err := a.index.Values(context.Background(), subject, attribute)
		if err != nil {
			d.queryFailed("get", a, err)
			continue
		}
		out = appendValues(out, values)
	}
	return appendValues(out, d.Driver.Get(sel, subject, attribute))
}

func appendValues(out, values []rdfvalue.Value) []rdfvalue.Value {
	for _, v := range values {
		if !rdfvalue.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// QuerySubject yields index subjects then base subjects, each once.
func (d *Driver) QuerySubject(sel storage.Selector, re *regexp.Regexp) iter.Seq[rdfvalue.URN] {
	return d.subjects(sel, "query subject",
		func(ix *sqlite.Index) ([]rdfvalue.URN, error) {
			all, err := ix.Subjects(context.Background())
			if err != nil {
				return nil, err
			}
			matched := all[:0]
			for _, s := range all {
				if re.MatchString(s.String()) {
					matched = append(matched, s)
				}
			}
			return matched, nil
		},
		d.Driver.QuerySubject(sel, re))
}

// SelectSubjectsByPrefix yields index subjects then base subjects, each once.
func (d *Driver) SelectSubjectsByPrefix(sel storage.Selector, prefix string) iter.Seq[rdfvalue.URN] {
	return d.subjects(sel, "select subjects",
		func(ix *sqlite.Index) ([]rdfvalue.URN, error) {
			return ix.SubjectsWithPrefix(context.Background(), prefix)
		},
		d.Driver.SelectSubjectsByPrefix(sel, prefix))
}

// QueryPredicateObject yields index subjects then base subjects, each once.
func (d *Driver) QueryPredicateObject(sel storage.Selector, predicate rdfvalue.URN, value rdfvalue.Value) iter.Seq[rdfvalue.URN] {
	return d.subjects(sel, "query predicate object",
		func(ix *sqlite.Index) ([]rdfvalue.URN, error) {
			return ix.SubjectsWithObject(context.Background(), predicate, value)
		},
		d.Driver.QueryPredicateObject(sel, predicate, value))
}

func (d *Driver) subjects(sel storage.Selector, op string, query func(*sqlite.Index) ([]rdfvalue.URN, error), base iter.Seq[rdfvalue.URN]) iter.Seq[rdfvalue.URN] {
	return func(yield func(rdfvalue.URN) bool) {
		seen := make(map[string]bool)
		emit := func(s rdfvalue.URN) bool {
			if seen[s.String()] {
				return true
			}
			seen[s.String()] = true
			return yield(s)
		}

		for _, a := range d.consult(sel) {
			found, err := query(a.index)
			if err != nil {
				d.queryFailed(op, a, err)
				continue
			}
			for _, s := range found {
				if d.hidden(s) {
					continue
				}
				if !emit(s) {
					return
				}
			}
		}
		for s := range base {
			if !emit(s) {
				return
			}
		}
	}
}

// QueryPredicate yields index triples then base triples, each once.
func (d *Driver) QueryPredicate(sel storage.Selector, predicate rdfvalue.URN) iter.Seq[storage.Triple] {
	return func(yield func(storage.Triple) bool) {
		seen := make(map[string]bool)
		emit := func(t storage.Triple) bool {
			key := t.Key()
			if seen[key] {
				return true
			}
			seen[key] = true
			return yield(t)
		}

		for _, a := range d.consult(sel) {
			triples, err := a.index.WithPredicate(context.Background(), predicate)
			if err != nil {
				d.queryFailed("query predicate", a, err)
				continue
			}
			for _, t := range triples {
				if d.hidden(t.Subject) {
					continue
				}
				if !emit(t) {
					return
				}
			}
		}
		for t := range d.Driver.QueryPredicate(sel, predicate) {
			if !emit(t) {
				return
			}
		}
	}
}

// QuerySubjectPredicate yields the merged values of one slot.
func (d *Driver) QuerySubjectPredicate(sel storage.Selector, subject, predicate rdfvalue.URN) iter.Seq[rdfvalue.Value] {
	return func(yield func(rdfvalue.Value) bool) {
		var out []rdfvalue.Value
		for _, a := range d.consult(sel) {
			if d.hidden(subject) {
				break
			}
			values, err := a.index.Values(context.Background(), subject, predicate)
			if err != nil {
				d.queryFailed("query subject predicate", a, err)
				continue
			}
			out = appendValues(out, values)
		}
		for v := range d.Driver.QuerySubjectPredicate(sel, subject, predicate) {
			out = appendValues(out, []rdfvalue.Value{v})
		}
		for _, v := range out {
			if !yield(v) {
				return
			}
		}
	}
}

// QueryPredicatesBySubject merges index and base attributes. A predicate
// present in both keeps its index position and gains the base values.
func (d *Driver) QueryPredicatesBySubject(sel storage.Selector, subject rdfvalue.URN) iter.Seq[storage.Attribute] {
	return func(yield func(storage.Attribute) bool) {
		var out []storage.Attribute
		position := make(map[string]int)
		merge := func(attr storage.Attribute) {
			key := attr.Predicate.String()
			i, ok := position[key]
			if !ok {
				position[key] = len(out)
				out = append(out, storage.Attribute{Predicate: attr.Predicate, Values: appendValues(nil, attr.Values)})
				return
			}
			out[i].Values = appendValues(out[i].Values, attr.Values)
		}

		for _, a := range d.consult(sel) {
			if d.hidden(subject) {
				break
			}
			attrs, err := a.index.Attributes(context.Background(), subject)
			if err != nil {
				d.queryFailed("query predicates by subject", a, err)
				continue
			}
			for _, attr := range attrs {
				merge(attr)
			}
		}
		for attr := range d.Driver.QueryPredicatesBySubject(sel, subject) {
			merge(attr)
		}

		for _, attr := range out {
			if !yield(attr) {
				return
			}
		}
	}
}

var (
	_ storage.Driver  = (*Driver)(nil)
	_ storage.Indexer = (*Driver)(nil)
)
