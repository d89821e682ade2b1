package resolver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/knakk/rdf"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

func metadataSource(vol volume.Container) storage.TurtleSource {
	return func() (io.ReadCloser, error) {
		return vol.OpenMember(turtle.InformationMember)
	}
}

// LoadMetadata loads vol's metadata into the persistent graph. When the
// driver can index volumes the index is attached instead and only the
// namespace declarations are read. A volume without metadata loads
// nothing.
func (r *Resolver) LoadMetadata(ctx context.Context, vol volume.Container) error {
	if !vol.ContainsMember(turtle.InformationMember) {
		r.logger.Debug("volume has no metadata", "volume", vol.URN().String())
		return nil
	}
	src := metadataSource(vol)

	if ix, ok := r.driver.(storage.Indexer); ok {
		attached, err := ix.AttachIndex(ctx, vol.URN(), src)
		if err != nil {
			return fmt.Errorf("attaching index: %w", err)
		}
		if attached {
			rc, err := src()
			if err != nil {
				return err
			}
			defer rc.Close()

			directives, err := turtle.ReadDirectives(rc)
			if err != nil {
				return err
			}
			r.recordNamespace(directives)
			return nil
		}
	}

	rc, err := src()
	if err != nil {
		return err
	}
	defer rc.Close()
	return r.LoadFromTurtle(rc, vol.URN())
}

// LoadFromTurtle parses a Turtle document and adds every triple to the
// persistent graph. Literals are typed through the value registry.
func (r *Resolver) LoadFromTurtle(rd io.Reader, volumeURN rdfvalue.URN) error {
	data, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}

	n := 0
	for t, err := range turtle.Decode(bytes.NewReader(data)) {
		if err != nil {
			return err
		}
		value, err := r.values.FromTerm(t.Obj)
		if err != nil {
			return fmt.Errorf("triple %d: %w", n, err)
		}
		subject, err := r.resourceURN(t.Subj)
		if err != nil {
			return fmt.Errorf("triple %d: %w", n, err)
		}
		predicate := rdfvalue.NewURN(t.Pred.String())
		if err := r.driver.Add(storage.Persistent, subject, predicate, value); err != nil {
			return err
		}
		n++
	}

	directives, _ := turtle.Split(string(data))
	r.recordNamespace(directives)

	r.logger.Debug("loaded metadata", "volume", volumeURN.String(), "triples", n, "namespace", r.namespace)
	return nil
}

func (r *Resolver) resourceURN(term rdf.Term) (rdfvalue.URN, error) {
	v, err := r.values.FromTerm(term)
	if err != nil {
		return rdfvalue.URN{}, err
	}
	u, ok := v.(rdfvalue.URN)
	if !ok {
		return rdfvalue.URN{}, fmt.Errorf("subject %s is not a resource", term.Serialize(rdf.NTriples))
	}
	return u, nil
}

// recordNamespace keeps the AFF4 namespace bound to the aff4 prefix, or
// failing that to any prefix.
func (r *Resolver) recordNamespace(directives string) {
	bindings := turtle.Namespaces(directives)
	if ns := bindings["aff4"]; lexicon.IsAFF4Namespace(ns) {
		r.namespace = ns
		return
	}
	for _, name := range slices.Sorted(maps.Keys(bindings)) {
		if lexicon.IsAFF4Namespace(bindings[name]) {
			r.namespace = bindings[name]
			return
		}
	}
}
