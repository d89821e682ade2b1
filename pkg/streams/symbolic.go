// Package streams provides the self-describing streams and byte-range
// references the resolver constructs without consulting the type registry.
package streams

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/registry"
)

// Symbolic is an endless stream repeating a fixed pattern. It is never dirty
// and holds no state beyond its URN.
type Symbolic struct {
	urn     rdfvalue.URN
	pattern []byte
}

// NewSymbolic returns a stream repeating pattern.
func NewSymbolic(u rdfvalue.URN, pattern []byte) *Symbolic {
	return &Symbolic{urn: u, pattern: pattern}
}

func (s *Symbolic) URN() rdfvalue.URN  { return s.urn }
func (s *Symbolic) IsDirty() bool      { return false }
func (s *Symbolic) Flush() error       { return nil }
func (s *Symbolic) Close() error       { return nil }
func (s *Symbolic) LoadFromURN() error { return nil }
func (s *Symbolic) Prepare() error     { return nil }

// Pattern returns the repeated bytes.
func (s *Symbolic) Pattern() []byte {
	return s.pattern
}

// ReadAt fills p with the pattern as it appears at off.
func (s *Symbolic) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("symbolic stream %s: negative offset %d", s.urn, off)
	}
	n := int64(len(s.pattern))
	for i := range p {
		p[i] = s.pattern[(off+int64(i))%n]
	}
	return len(p), nil
}

var (
	_ registry.Object = (*Symbolic)(nil)
	_ io.ReaderAt     = (*Symbolic)(nil)
)

// StdStreamFactory recognizes the symbolic stream URNs of a lexicon.
type StdStreamFactory struct {
	lex lexicon.Lexicon
}

// NewStdStreamFactory returns the factory for lex.
func NewStdStreamFactory(lex lexicon.Lexicon) *StdStreamFactory {
	return &StdStreamFactory{lex: lex}
}

// pattern returns the bytes a symbolic URN repeats.
func (f *StdStreamFactory) pattern(u rdfvalue.URN) ([]byte, bool) {
	switch s := u.String(); s {
	case f.lex.Zero:
		return []byte{0}, true
	case f.lex.UnknownData:
		return []byte("UNKNOWN"), true
	case f.lex.UnreadableData:
		return []byte("UNREADABLEDATA"), true
	default:
		digits, ok := strings.CutPrefix(s, f.lex.SymbolicPrefix)
		if !ok || len(digits) != 2 {
			return nil, false
		}
		b, err := hex.DecodeString(digits)
		if err != nil {
			return nil, false
		}
		return b, true
	}
}

// IsSymbolicStream reports whether u names a symbolic stream.
func (f *StdStreamFactory) IsSymbolicStream(u rdfvalue.URN) bool {
	_, ok := f.pattern(u)
	return ok
}

// CreateSymbolic constructs the stream for u.
func (f *StdStreamFactory) CreateSymbolic(_ registry.Resolver, u rdfvalue.URN) (registry.Object, error) {
	pattern, ok := f.pattern(u)
	if !ok {
		return nil, fmt.Errorf("%s is not a symbolic stream", u)
	}
	return NewSymbolic(u, pattern), nil
}

var _ registry.StreamFactory = (*StdStreamFactory)(nil)
