// Package rdfvalue provides the typed values held by the resolver's fact
// store: URNs, typed literals and the datatype registry that turns the
// lexical form of a Turtle literal back into a value.
package rdfvalue

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/knakk/rdf"
)

// URN is the canonical identifier of a subject or attribute. Equality and
// map keying always go through String(); two URNs built from the same text
// are interchangeable.
type URN struct {
	value string
}

// NewURN returns the URN for s in canonical form.
func NewURN(s string) URN {
	return URN{value: strings.TrimSpace(s)}
}

func (u URN) String() string {
	return u.value
}

// IsZero reports whether the URN is empty.
func (u URN) IsZero() bool {
	return u.value == ""
}

// Scheme returns the scheme component ("aff4", "urn", "http", ...), or ""
// when the URN has none.
func (u URN) Scheme() string {
	parsed, err := url.Parse(u.value)
	if err == nil && parsed.Scheme != "" {
		return parsed.Scheme
	}

	scheme, _, ok := strings.Cut(u.value, ":")
	if !ok {
		return ""
	}
	return scheme
}

// HasPrefix reports whether the serialized URN starts with prefix.
func (u URN) HasPrefix(prefix string) bool {
	return strings.HasPrefix(u.value, prefix)
}

// Append returns a child URN with component joined by a single slash.
func (u URN) Append(component string) URN {
	return URN{value: strings.TrimSuffix(u.value, "/") + "/" + strings.TrimPrefix(component, "/")}
}

// Datatype of a URN is empty: URNs are resources, not literals.
func (u URN) Datatype() string {
	return ""
}

// Key is the N-Triples form of the URN.
func (u URN) Key() string {
	return "<" + u.value + ">"
}

// Term converts the URN into an IRI term.
func (u URN) Term() (rdf.Object, error) {
	iri, err := rdf.NewIRI(u.value)
	if err != nil {
		return nil, fmt.Errorf("urn %q is not a valid IRI: %w", u.value, err)
	}
	return iri, nil
}

// IRI is Term narrowed to the IRI type, for subject and predicate positions.
func (u URN) IRI() (rdf.IRI, error) {
	iri, err := rdf.NewIRI(u.value)
	if err != nil {
		return rdf.IRI{}, fmt.Errorf("urn %q is not a valid IRI: %w", u.value, err)
	}
	return iri, nil
}
