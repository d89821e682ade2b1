// Package registry maps AFF4 type URIs and URN schemes to object
// constructors, and defines the contract constructed objects fulfil.
package registry

import (
	"iter"
	"maps"
	"slices"

	"github.com/papercomputeco/aff4meta/pkg/cache"
	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

// Object is a constructed AFF4 object.
type Object interface {
	cache.Object

	// LoadFromURN pulls the object's own configuration from the resolver.
	LoadFromURN() error

	// Prepare readies the object for (re)use each time it is handed out.
	Prepare() error
}

// Resolver is the part of the resolver objects may call back into.
type Resolver interface {
	Lexicon() lexicon.Lexicon
	Get(sel storage.Selector, subject, attribute rdfvalue.URN) []rdfvalue.Value
	QuerySubjectPredicate(sel storage.Selector, subject, predicate rdfvalue.URN) iter.Seq[rdfvalue.Value]
	Add(g storage.Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error
	Set(g storage.Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error
}

// Constructor builds the object for u.
type Constructor func(res Resolver, u rdfvalue.URN, version lexicon.Version) (Object, error)

// StreamFactory recognizes self-describing streams whose content is derived
// from the URN alone.
type StreamFactory interface {
	IsSymbolicStream(u rdfvalue.URN) bool
	CreateSymbolic(res Resolver, u rdfvalue.URN) (Object, error)
}

// Builder collects constructors before the table is frozen.
type Builder struct {
	handlers map[string]Constructor
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{handlers: make(map[string]Constructor)}
}

// Register binds tag, a type URI or a URN scheme, to c. A later
// registration of the same tag replaces the earlier one.
func (b *Builder) Register(tag string, c Constructor) *Builder {
	b.handlers[tag] = c
	return b
}

// Build freezes the registrations. The builder may keep being used; the
// returned table does not change.
func (b *Builder) Build() *Types {
	return &Types{handlers: maps.Clone(b.handlers)}
}

// Types is a read-only constructor table.
type Types struct {
	handlers map[string]Constructor
}

// Empty is a table with no registrations.
var Empty = &Types{}

// Lookup returns the constructor registered for tag.
func (t *Types) Lookup(tag string) (Constructor, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.handlers[tag]
	return c, ok
}

// Tags lists the registered tags, sorted.
func (t *Types) Tags() []string {
	if t == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(t.handlers))
}
