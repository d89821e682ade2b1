package session

import (
	"fmt"
	"slices"
	"strings"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
)

// ValueKinds are the accepted --type names.
var ValueKinds = []string{"string", "urn", "long", "integer", "boolean", "datetime", "sha512"}

var kindDatatypes = map[string]string{
	"string":   rdfvalue.XSDString,
	"long":     rdfvalue.XSDLong,
	"integer":  rdfvalue.XSDInteger,
	"boolean":  rdfvalue.XSDBoolean,
	"datetime": rdfvalue.XSDDateTime,
	"sha512":   rdfvalue.HashSHA512,
}

// Expand turns a prefixed name such as aff4:size into a full URN. Names
// with an unknown prefix and content-hash references are taken as written.
func Expand(prefixes []turtle.Prefix, name string) rdfvalue.URN {
	if strings.HasPrefix(name, lexicon.HashPrefix) {
		return rdfvalue.NewURN(name)
	}
	head, local, ok := strings.Cut(name, ":")
	if ok && !strings.HasPrefix(local, "//") {
		for _, p := range prefixes {
			if p.Name == head {
				return rdfvalue.NewURN(p.IRI + local)
			}
		}
	}
	return rdfvalue.NewURN(name)
}

// Compact is the inverse of Expand, used for display.
func Compact(prefixes []turtle.Prefix, u rdfvalue.URN) string {
	s := u.String()
	for _, p := range prefixes {
		if local, ok := strings.CutPrefix(s, p.IRI); ok {
			return p.Name + ":" + local
		}
	}
	return s
}

// Expand resolves name against the resolver's prefixes.
func (s *Session) Expand(name string) rdfvalue.URN {
	return Expand(s.Resolver.Prefixes(), name)
}

// Compact shortens u with the resolver's prefixes.
func (s *Session) Compact(u rdfvalue.URN) string {
	return Compact(s.Resolver.Prefixes(), u)
}

// ParseValue builds a typed value of kind from its lexical form.
func (s *Session) ParseValue(kind, lexical string) (rdfvalue.Value, error) {
	if kind == "urn" {
		return s.Expand(lexical), nil
	}
	datatype, ok := kindDatatypes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown value type %q (valid: %s)", kind, strings.Join(ValueKinds, ", "))
	}
	v, err := s.Resolver.Values().Parse(datatype, lexical)
	if err != nil {
		return nil, fmt.Errorf("parsing %q as %s: %w", lexical, kind, err)
	}
	return v, nil
}

// ValidKind reports whether kind names a value type.
func ValidKind(kind string) bool {
	return slices.Contains(ValueKinds, kind)
}
