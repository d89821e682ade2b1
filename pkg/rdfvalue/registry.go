package rdfvalue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/knakk/rdf"
)

// Parser builds a typed value from the lexical form of a literal.
type Parser func(lexical, datatype string) (Value, error)

// Registry maps datatype IRIs to parsers. A registry is filled once and then
// only read.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns an empty registry; every literal parses as String.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// DefaultRegistry knows the XSD and AFF4 hash datatypes.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(XSDString, parseString)
	for _, dt := range []string{XSDInteger, XSDLong, XSDInt} {
		r.Register(dt, parseInteger)
	}
	r.Register(XSDBoolean, parseBoolean)
	r.Register(XSDDateTime, parseDateTime)
	for _, dt := range []string{HashMD5, HashSHA1, HashSHA256, HashSHA512, HashBlake2b} {
		r.Register(dt, parseHash)
	}
	return r
}

// Register binds datatype to p, replacing any previous parser.
func (r *Registry) Register(datatype string, p Parser) {
	r.parsers[datatype] = p
}

// Known reports whether datatype has a registered parser.
func (r *Registry) Known(datatype string) bool {
	_, ok := r.parsers[datatype]
	return ok
}

// Parse converts lexical into the value registered for datatype. Unknown
// datatypes default to a plain string.
func (r *Registry) Parse(datatype, lexical string) (Value, error) {
	p, ok := r.parsers[datatype]
	if !ok {
		return String(lexical), nil
	}
	return p(lexical, datatype)
}

// FromTerm maps a decoded graph term onto a typed value: IRIs become URNs,
// typed literals go through the registry.
func (r *Registry) FromTerm(term rdf.Term) (Value, error) {
	switch t := term.(type) {
	case rdf.IRI:
		return NewURN(t.String()), nil
	case rdf.Literal:
		return r.Parse(t.DataType.String(), t.String())
	case rdf.Blank:
		// Blank nodes are kept by label so they still compare equal
		// within one document.
		return NewURN(t.Serialize(rdf.NTriples)), nil
	default:
		return nil, fmt.Errorf("unsupported term %T", term)
	}
}

func parseString(lexical, _ string) (Value, error) {
	return String(lexical), nil
}

func parseInteger(lexical, datatype string) (Value, error) {
	v, err := strconv.ParseInt(lexical, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s %q: %w", datatype, lexical, err)
	}
	return Integer{Value: v, Type: datatype}, nil
}

func parseBoolean(lexical, _ string) (Value, error) {
	v, err := strconv.ParseBool(lexical)
	if err != nil {
		return nil, fmt.Errorf("parsing boolean %q: %w", lexical, err)
	}
	return Boolean(v), nil
}

func parseDateTime(lexical, _ string) (Value, error) {
	t, err := time.Parse(time.RFC3339Nano, lexical)
	if err != nil {
		return nil, fmt.Errorf("parsing dateTime %q: %w", lexical, err)
	}
	return DateTime{Time: t}, nil
}

func parseHash(lexical, datatype string) (Value, error) {
	return NewHash(datatype, lexical), nil
}
