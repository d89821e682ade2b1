package volume

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// MemoryVolume keeps members in memory. The framed bytes are retained so a
// member's stored form can be compared across writes.
type MemoryVolume struct {
	urn     rdfvalue.URN
	members map[string][]byte
}

// NewMemory returns an empty volume. A zero URN is replaced by a fresh one.
func NewMemory(u rdfvalue.URN) *MemoryVolume {
	if u.IsZero() {
		u = NewURN()
	}
	return &MemoryVolume{urn: u, members: make(map[string][]byte)}
}

func (v *MemoryVolume) URN() rdfvalue.URN {
	return v.urn
}

func (v *MemoryVolume) ContainsMember(name string) bool {
	_, ok := v.members[name]
	return ok
}

func (v *MemoryVolume) CreateMember(name string) (Segment, error) {
	if name == "" {
		return nil, errors.New("empty member name")
	}
	return newSegment(func(framed []byte) error {
		v.members[name] = bytes.Clone(framed)
		return nil
	}), nil
}

func (v *MemoryVolume) OpenMember(name string) (io.ReadCloser, error) {
	framed, ok := v.members[name]
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", name, v.urn, ErrNoMember)
	}
	data, err := decode(framed)
	if err != nil {
		return nil, fmt.Errorf("decoding member %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Raw returns the stored, framed bytes of a member.
func (v *MemoryVolume) Raw(name string) ([]byte, bool) {
	framed, ok := v.members[name]
	return framed, ok
}

// Members lists member names, sorted.
func (v *MemoryVolume) Members() []string {
	return slices.Sorted(maps.Keys(v.members))
}

var _ Container = (*MemoryVolume)(nil)
