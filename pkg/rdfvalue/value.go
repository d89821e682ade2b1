package rdfvalue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knakk/rdf"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
)

// XSD datatypes understood by the default registry.
const (
	XSDString   = lexicon.XSDNamespace + "string"
	XSDInteger  = lexicon.XSDNamespace + "integer"
	XSDLong     = lexicon.XSDNamespace + "long"
	XSDInt      = lexicon.XSDNamespace + "int"
	XSDBoolean  = lexicon.XSDNamespace + "boolean"
	XSDDateTime = lexicon.XSDNamespace + "dateTime"
)

// AFF4 hash datatypes.
const (
	HashMD5     = lexicon.Namespace + "MD5"
	HashSHA1    = lexicon.Namespace + "SHA1"
	HashSHA256  = lexicon.Namespace + "SHA256"
	HashSHA512  = lexicon.Namespace + "SHA512"
	HashBlake2b = lexicon.Namespace + "Blake2b"
)

// Value is a typed RDF value.
type Value interface {
	// Datatype is the datatype IRI of a literal, or "" for a URN.
	Datatype() string

	// String is the canonical lexical form.
	String() string

	// Key is the canonical serialization used for equality and
	// de-duplication. Two values are equal iff their keys are equal.
	Key() string

	// Term converts the value to a raw term for graph export.
	Term() (rdf.Object, error)
}

// Equal reports whether a and b denote the same typed value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key() == b.Key()
}

// Contains reports whether values holds a value equal to v.
func Contains(values []Value, v Value) bool {
	for _, existing := range values {
		if Equal(existing, v) {
			return true
		}
	}
	return false
}

func literalKey(lexical, datatype string) string {
	return strconv.Quote(lexical) + "^^<" + datatype + ">"
}

func literalTerm(lexical, datatype string) (rdf.Object, error) {
	dt, err := rdf.NewIRI(datatype)
	if err != nil {
		return nil, fmt.Errorf("datatype %q: %w", datatype, err)
	}
	return rdf.NewTypedLiteral(lexical, dt), nil
}

// String is an xsd:string literal.
type String string

func (s String) Datatype() string          { return XSDString }
func (s String) String() string            { return string(s) }
func (s String) Key() string               { return literalKey(string(s), XSDString) }
func (s String) Term() (rdf.Object, error) { return literalTerm(string(s), XSDString) }

// Integer is an integral literal. The datatype is kept so a value written as
// xsd:int comes back as xsd:int.
type Integer struct {
	Value int64
	Type  string
}

// NewInteger returns an xsd:long literal, the type AFF4 uses for sizes and
// offsets.
func NewInteger(v int64) Integer {
	return Integer{Value: v, Type: XSDLong}
}

func (i Integer) Datatype() string {
	if i.Type == "" {
		return XSDLong
	}
	return i.Type
}

func (i Integer) String() string            { return strconv.FormatInt(i.Value, 10) }
func (i Integer) Key() string               { return literalKey(i.String(), i.Datatype()) }
func (i Integer) Term() (rdf.Object, error) { return literalTerm(i.String(), i.Datatype()) }

// Boolean is an xsd:boolean literal.
type Boolean bool

func (b Boolean) Datatype() string          { return XSDBoolean }
func (b Boolean) String() string            { return strconv.FormatBool(bool(b)) }
func (b Boolean) Key() string               { return literalKey(b.String(), XSDBoolean) }
func (b Boolean) Term() (rdf.Object, error) { return literalTerm(b.String(), XSDBoolean) }

// DateTime is an xsd:dateTime literal.
type DateTime struct {
	Time time.Time
}

func (d DateTime) Datatype() string          { return XSDDateTime }
func (d DateTime) String() string            { return d.Time.Format(time.RFC3339Nano) }
func (d DateTime) Key() string               { return literalKey(d.String(), XSDDateTime) }
func (d DateTime) Term() (rdf.Object, error) { return literalTerm(d.String(), XSDDateTime) }

// Hash is a digest literal typed by its algorithm (aff4:SHA512 and friends).
// The digest is kept lower-case hex.
type Hash struct {
	Algorithm string
	Digest    string
}

// NewHash normalizes digest for comparison.
func NewHash(algorithm, digest string) Hash {
	return Hash{Algorithm: algorithm, Digest: strings.ToLower(strings.TrimSpace(digest))}
}

func (h Hash) Datatype() string          { return h.Algorithm }
func (h Hash) String() string            { return h.Digest }
func (h Hash) Key() string               { return literalKey(h.Digest, h.Algorithm) }
func (h Hash) Term() (rdf.Object, error) { return literalTerm(h.Digest, h.Algorithm) }

var (
	_ Value = URN{}
	_ Value = String("")
	_ Value = Integer{}
	_ Value = Boolean(false)
	_ Value = DateTime{}
	_ Value = Hash{}
)
