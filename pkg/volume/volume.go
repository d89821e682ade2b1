// Package volume provides the containers the resolver reads metadata from
// and appends metadata to. A container holds named members; a member is
// written through a Segment and read back whole.
package volume

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// ErrNoMember is returned when opening a member the container does not hold.
var ErrNoMember = errors.New("no such member")

// Container is an archive volume.
type Container interface {
	// URN identifies the volume.
	URN() rdfvalue.URN

	// ContainsMember reports whether a member named name exists.
	ContainsMember(name string) bool

	// CreateMember starts writing name, replacing any existing member
	// when the segment is flushed.
	CreateMember(name string) (Segment, error)

	// OpenMember opens name for reading. The content is decompressed.
	OpenMember(name string) (io.ReadCloser, error)
}

// Segment is a member being written. Bytes are buffered until Flush or Close.
type Segment interface {
	io.Writer

	// SetCompression selects the codec used when the segment is stored.
	SetCompression(c Compression)

	// Flush stores the buffered content.
	Flush() error

	// Close flushes and releases the segment. Writes after Close fail.
	Close() error
}

// NewURN returns a fresh volume URN.
func NewURN() rdfvalue.URN {
	return rdfvalue.NewURN("aff4://" + uuid.NewString())
}

// MemberURN returns the URN of name inside c.
func MemberURN(c Container, name string) rdfvalue.URN {
	return c.URN().Append(name)
}

// ReadAll returns the content of member name.
func ReadAll(c Container, name string) ([]byte, error) {
	r, err := c.OpenMember(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading member %s: %w", name, err)
	}
	return data, nil
}

// WriteAll stores data as member name with compression.
func WriteAll(c Container, name string, data []byte, compression Compression) error {
	seg, err := c.CreateMember(name)
	if err != nil {
		return fmt.Errorf("creating member %s: %w", name, err)
	}
	seg.SetCompression(compression)

	if _, err := seg.Write(data); err != nil {
		seg.Close()
		return fmt.Errorf("writing member %s: %w", name, err)
	}
	if err := seg.Close(); err != nil {
		return fmt.Errorf("closing member %s: %w", name, err)
	}
	return nil
}

// Copy streams member name of src into a new member of dst, keeping the name.
func Copy(src, dst Container, name string, compression Compression) error {
	r, err := src.OpenMember(name)
	if err != nil {
		return err
	}
	defer r.Close()

	seg, err := dst.CreateMember(name)
	if err != nil {
		return fmt.Errorf("creating member %s: %w", name, err)
	}
	seg.SetCompression(compression)

	if _, err := io.Copy(seg, r); err != nil {
		seg.Close()
		return fmt.Errorf("copying member %s: %w", name, err)
	}
	return seg.Close()
}
