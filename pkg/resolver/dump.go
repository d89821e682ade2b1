package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/knakk/rdf"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

// Prefixes returns the prefixes bound when serializing.
func (r *Resolver) Prefixes() []turtle.Prefix {
	return []turtle.Prefix{
		{Name: "aff4", IRI: r.lex.Base},
		{Name: "rdf", IRI: lexicon.RDFNamespace},
		{Name: "xsd", IRI: lexicon.XSDNamespace},
	}
}

// Serialize renders the persistent graph as Turtle. Container bookkeeping
// and, unless verbose, volatile attributes are left out.
func (r *Resolver) Serialize(verbose bool) (string, error) {
	var encodeErr error
	text, err := turtle.EncodeString(r.Prefixes(), func(yield func(rdf.Triple) bool) {
		for t, err := range r.persistentTriples(verbose) {
			if err != nil {
				encodeErr = err
				return
			}
			if !yield(t) {
				return
			}
		}
	})
	if err != nil {
		return "", err
	}
	if encodeErr != nil {
		return "", encodeErr
	}
	return text, nil
}

func (r *Resolver) persistentTriples(verbose bool) iter.Seq2[rdf.Triple, error] {
	typeURN := rdfvalue.NewURN(lexicon.Type)

	return func(yield func(rdf.Triple, error) bool) {
		for subject := range r.driver.SelectSubjectsByPrefix(storage.SelectPersistent, "") {
			var attrs []storage.Attribute
			typed := subject.HasPrefix(lexicon.HashPrefix)
			for attr := range r.driver.QueryPredicatesBySubject(storage.SelectPersistent, subject) {
				if attr.Predicate == typeURN {
					typed = true
				}
				attrs = append(attrs, attr)
			}
			if !typed {
				continue
			}

			s, err := subject.IRI()
			if err != nil {
				yield(rdf.Triple{}, err)
				return
			}
			for _, attr := range attrs {
				if !verbose && attr.Predicate.HasPrefix(lexicon.VolatileNamespace) {
					continue
				}
				p, err := attr.Predicate.IRI()
				if err != nil {
					yield(rdf.Triple{}, err)
					return
				}
				for _, v := range attr.Values {
					if r.ignored(subject, attr.Predicate, v) {
						continue
					}
					o, err := v.Term()
					if err != nil {
						yield(rdf.Triple{}, err)
						return
					}
					if !yield(rdf.Triple{Subj: s, Pred: p, Obj: o}, nil) {
						return
					}
				}
			}
		}
	}
}

// ignored reports facts that describe the container rather than the
// evidence: zip bookkeeping types and stored locations that are not AFF4
// URNs or that point back at the subject's own prefix.
func (r *Resolver) ignored(subject, predicate rdfvalue.URN, v rdfvalue.Value) bool {
	switch predicate.String() {
	case lexicon.Type:
		switch v.String() {
		case lexicon.ZipSegmentType, lexicon.ZipVolumeType:
			return true
		}
	case lexicon.Stored, r.lex.Base + "stored":
		target := v.String()
		if !strings.HasPrefix(target, "aff4://") {
			return true
		}
		return subject.HasPrefix(target)
	}
	return false
}

// DumpToTurtle writes the persistent graph into vol's metadata member.
//
// The first dump writes the member whole. Every later dump appends: the
// existing document is split once into a directives member and chunk 0,
// each new dump lands in the next free numbered chunk, and the visible
// document is reassembled from the directives followed by every chunk.
// Chunks are never rewritten. An index attached for vol is dropped before
// appending and rebuilt from the stored document afterwards, also when the
// append fails part way.
func (r *Resolver) DumpToTurtle(ctx context.Context, vol volume.Container) (err error) {
	text, err := r.Serialize(r.verbose)
	if err != nil {
		return fmt.Errorf("serializing metadata: %w", err)
	}

	if !vol.ContainsMember(turtle.InformationMember) {
		r.logger.Debug("writing metadata", "volume", vol.URN().String())
		return volume.WriteAll(vol, turtle.InformationMember, []byte(text), r.compression)
	}

	if ix, ok := r.driver.(storage.Indexer); ok {
		if err := ix.InvalidateIndex(vol.URN()); err != nil {
			return fmt.Errorf("invalidating index: %w", err)
		}
		defer func() {
			if _, attachErr := ix.AttachIndex(ctx, vol.URN(), metadataSource(vol)); attachErr != nil {
				err = errors.Join(err, fmt.Errorf("rebuilding index: %w", attachErr))
			}
		}()
	}

	directives, triples := turtle.Split(text)

	var (
		stored string
		chunk  int
	)
	if vol.ContainsMember(turtle.DirectivesMember) {
		data, err := volume.ReadAll(vol, turtle.DirectivesMember)
		if err != nil {
			return err
		}
		stored = string(data)
		chunk = freeChunk(vol)
	} else {
		data, err := volume.ReadAll(vol, turtle.InformationMember)
		if err != nil {
			return err
		}
		var first string
		stored, first = turtle.Split(string(data))
		if err := volume.WriteAll(vol, turtle.ChunkMember(0), []byte(first), r.compression); err != nil {
			return err
		}
		chunk = 1
	}

	// On the first append the directives member is always written, since it
	// does not exist yet.
	if diff := turtle.Difference(stored, directives); diff != "" || !vol.ContainsMember(turtle.DirectivesMember) {
		stored = turtle.Extend(stored, diff)
		if err := volume.WriteAll(vol, turtle.DirectivesMember, []byte(stored), r.compression); err != nil {
			return err
		}
	}

	if err := volume.WriteAll(vol, turtle.ChunkMember(chunk), []byte(triples), r.compression); err != nil {
		return err
	}
	r.logger.Info("appended metadata chunk", "volume", vol.URN().String(), "chunk", chunk)

	return r.reassemble(vol, stored)
}

func freeChunk(vol volume.Container) int {
	i := 0
	for vol.ContainsMember(turtle.ChunkMember(i)) {
		i++
	}
	return i
}

func (r *Resolver) reassemble(vol volume.Container, directives string) error {
	var chunks []string
	for i := 0; vol.ContainsMember(turtle.ChunkMember(i)); i++ {
		data, err := volume.ReadAll(vol, turtle.ChunkMember(i))
		if err != nil {
			return err
		}
		chunks = append(chunks, string(data))
	}
	doc := turtle.Assemble(directives, chunks)
	return volume.WriteAll(vol, turtle.InformationMember, []byte(doc), r.compression)
}

// Dump writes the serialized metadata followed by the cache contents, for
// debugging.
func (r *Resolver) Dump(w io.Writer, verbose bool) error {
	text, err := r.Serialize(verbose)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		return err
	}
	r.cache.Dump(w)
	return nil
}
