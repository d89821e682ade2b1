package streams

import (
	"fmt"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/registry"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

// ByteRange is the addressable byte stream a content hash reference
// resolves to. It knows its size and the stream it is stored in, if the
// metadata records them.
type ByteRange struct {
	urn      rdfvalue.URN
	resolver registry.Resolver
	version  lexicon.Version

	size   int64
	target rdfvalue.URN
}

// NewByteRange is a registry.Constructor for byte-range references.
func NewByteRange(res registry.Resolver, u rdfvalue.URN, version lexicon.Version) (registry.Object, error) {
	return &ByteRange{urn: u, resolver: res, version: version}, nil
}

func (b *ByteRange) URN() rdfvalue.URN { return b.urn }
func (b *ByteRange) IsDirty() bool     { return false }
func (b *ByteRange) Flush() error      { return nil }
func (b *ByteRange) Close() error      { return nil }
func (b *ByteRange) Prepare() error    { return nil }

// Size is the recorded length of the range, or 0 if unknown.
func (b *ByteRange) Size() int64 { return b.size }

// Target is the stream holding the bytes, or the zero URN if unknown.
func (b *ByteRange) Target() rdfvalue.URN { return b.target }

// LoadFromURN reads the size and backing stream from the resolver.
func (b *ByteRange) LoadFromURN() error {
	lex := b.resolver.Lexicon()

	for v := range b.resolver.QuerySubjectPredicate(storage.SelectAny, b.urn, rdfvalue.NewURN(lex.Size)) {
		n, ok := v.(rdfvalue.Integer)
		if !ok {
			return fmt.Errorf("byte range %s: size %q is not an integer", b.urn, v.String())
		}
		b.size = n.Value
		break
	}

	for v := range b.resolver.QuerySubjectPredicate(storage.SelectAny, b.urn, rdfvalue.NewURN(lex.DataStream)) {
		if target, ok := v.(rdfvalue.URN); ok {
			b.target = target
			break
		}
	}
	return nil
}

var _ registry.Object = (*ByteRange)(nil)
