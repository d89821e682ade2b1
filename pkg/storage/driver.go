// Package storage defines the fact store backends used by the resolver.
package storage

import (
	"context"
	"io"
	"iter"
	"regexp"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// Driver is a multi-valued (subject, attribute, value) store holding a
// persistent and a transient graph. Attribute slots are always sequences of
// at least one value; an absent slot is represented by a nil slice.
//
// Query methods return lazy sequences. Each range over a returned sequence
// reruns the query from scratch.
//
// A Driver is not safe for concurrent use.
type Driver interface {
	// Add appends value to the attribute slot unless an equal value is
	// already present.
	Add(g Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error

	// Set overwrites the attribute slot with the single value.
	Set(g Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error

	// Get returns the values in the slot. Any returns the union of the
	// transient and persistent slots, transient values first.
	Get(sel Selector, subject, attribute rdfvalue.URN) []rdfvalue.Value

	// QuerySubject yields subjects whose serialized URN matches re.
	QuerySubject(sel Selector, re *regexp.Regexp) iter.Seq[rdfvalue.URN]

	// QueryPredicate yields every triple with the given predicate.
	QueryPredicate(sel Selector, predicate rdfvalue.URN) iter.Seq[Triple]

	// QueryPredicateObject yields subjects holding value under predicate.
	QueryPredicateObject(sel Selector, predicate rdfvalue.URN, value rdfvalue.Value) iter.Seq[rdfvalue.URN]

	// QuerySubjectPredicate yields the values of one (subject, predicate) slot.
	QuerySubjectPredicate(sel Selector, subject, predicate rdfvalue.URN) iter.Seq[rdfvalue.Value]

	// SelectSubjectsByPrefix yields subjects whose serialized URN starts
	// with prefix.
	SelectSubjectsByPrefix(sel Selector, prefix string) iter.Seq[rdfvalue.URN]

	// QueryPredicatesBySubject yields the attributes of one subject in
	// insertion order.
	QueryPredicatesBySubject(sel Selector, subject rdfvalue.URN) iter.Seq[Attribute]

	// DeleteSubject drops every persistent fact about subject.
	DeleteSubject(subject rdfvalue.URN)

	// Close releases backend resources.
	Close() error
}

// TurtleSource opens the assembled Turtle metadata of a volume.
type TurtleSource func() (io.ReadCloser, error)

// Indexer is implemented by drivers that can answer persistent graph queries
// from an external index built over a volume's metadata.
type Indexer interface {
	// AttachIndex opens the cached index for volume, building it from src
	// when none exists yet. It reports true when the index is active, in
	// which case the volume's metadata need not be loaded into memory.
	AttachIndex(ctx context.Context, volume rdfvalue.URN, src TurtleSource) (bool, error)

	// InvalidateIndex detaches and deletes the cached index for volume.
	InvalidateIndex(volume rdfvalue.URN) error
}
