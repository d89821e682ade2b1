package resolver

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/registry"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

// Open returns the object for u, constructing it on a cache miss. The
// returned object is in use and must be handed back with Return. A zero
// version means lexicon.Basic.
//
// Construction is tried in order: symbolic streams, content hash
// references, the first registered rdf:type of u, then the URN scheme.
func (r *Resolver) Open(u rdfvalue.URN, version lexicon.Version) (registry.Object, error) {
	if version == (lexicon.Version{}) {
		version = lexicon.Basic
	}

	if obj, ok := r.CacheGet(u); ok {
		return r.prepare(obj)
	}

	obj, cached, err := r.construct(u, version)
	if err != nil {
		return nil, err
	}
	if cached {
		return r.prepare(obj)
	}

	if err := obj.LoadFromURN(); err != nil {
		return nil, errors.Join(fmt.Errorf("loading %s: %w", obj.URN(), err), obj.Close())
	}
	if err := r.cache.Put(obj, true); err != nil {
		return nil, errors.Join(err, obj.Close())
	}

	r.logger.Debug("constructed object", "urn", obj.URN().String())
	return r.prepare(obj)
}

// construct builds the object for u. cached is true when a hash reference
// resolved to an object already pinned in the cache.
func (r *Resolver) construct(u rdfvalue.URN, version lexicon.Version) (obj registry.Object, cached bool, err error) {
	if r.streams.IsSymbolicStream(u) {
		obj, err = r.streams.CreateSymbolic(r, u)
		return obj, false, err
	}

	if u.HasPrefix(lexicon.HashPrefix) {
		return r.constructHashed(u, version)
	}

	for _, v := range r.driver.Get(storage.SelectAny, u, rdfvalue.NewURN(lexicon.Type)) {
		if c, ok := r.types.Lookup(v.String()); ok {
			obj, err = build(c, r, u, version)
			return obj, false, err
		}
	}

	if c, ok := r.types.Lookup(u.Scheme()); ok {
		obj, err = build(c, r, u, version)
		return obj, false, err
	}

	return nil, false, &CannotConstructError{URN: u}
}

// constructHashed resolves a content hash reference to the stream it
// points at and opens a byte range over it.
func (r *Resolver) constructHashed(u rdfvalue.URN, version lexicon.Version) (registry.Object, bool, error) {
	var target rdfvalue.URN
	for _, v := range r.driver.Get(storage.SelectAny, u, rdfvalue.NewURN(r.lex.DataStream)) {
		if t, ok := v.(rdfvalue.URN); ok {
			target = t
			break
		}
	}
	if target.IsZero() {
		return nil, false, &CannotConstructError{URN: u}
	}

	if obj, ok := r.CacheGet(target); ok {
		return obj, true, nil
	}
	obj, err := build(r.byteRange, r, target, version)
	return obj, false, err
}

func build(c registry.Constructor, r *Resolver, u rdfvalue.URN, version lexicon.Version) (registry.Object, error) {
	obj, err := c(r, u, version)
	if err != nil {
		return nil, fmt.Errorf("constructing %s: %w", u, err)
	}
	return obj, nil
}

func (r *Resolver) prepare(obj registry.Object) (registry.Object, error) {
	if err := obj.Prepare(); err != nil {
		return nil, errors.Join(fmt.Errorf("preparing %s: %w", obj.URN(), err), r.cache.Return(obj))
	}
	return obj, nil
}

// With opens u, runs fn and returns the object whatever fn does.
func (r *Resolver) With(u rdfvalue.URN, version lexicon.Version, fn func(registry.Object) error) error {
	obj, err := r.Open(u, version)
	if err != nil {
		return err
	}
	return errors.Join(fn(obj), r.Return(obj))
}

// CacheGet returns the cached instance for u, pinning it.
func (r *Resolver) CacheGet(u rdfvalue.URN) (registry.Object, bool) {
	obj, ok := r.cache.Get(u)
	if !ok {
		return nil, false
	}
	o, ok := obj.(registry.Object)
	if !ok {
		// Put straight into Cache() by a host; the factory cannot hand it out.
		r.logger.Warn("cached object is not constructible", "urn", u.String(), "type", fmt.Sprintf("%T", obj))
		if err := r.cache.Return(obj); err != nil {
			r.logger.Error("returning cached object", "urn", u.String(), "error", err)
		}
		return nil, false
	}
	return o, true
}

// CachePut registers an externally built object as in use.
func (r *Resolver) CachePut(obj registry.Object) (registry.Object, error) {
	if err := r.cache.Put(obj, true); err != nil {
		return nil, err
	}
	return obj, nil
}

// Return releases one use of obj.
func (r *Resolver) Return(obj registry.Object) error {
	return r.cache.Return(obj)
}

// Close drops obj from the cache, flushing and closing it.
func (r *Resolver) Close(obj registry.Object) error {
	return r.cache.Remove(obj)
}
