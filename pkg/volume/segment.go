package volume

import (
	"bytes"
	"errors"
)

var errSegmentClosed = errors.New("segment closed")

// segment buffers member content and hands the framed bytes to store.
type segment struct {
	buf         bytes.Buffer
	compression Compression
	dirty       bool
	closed      bool

	store func(framed []byte) error
}

func newSegment(store func([]byte) error) *segment {
	return &segment{compression: Stored, store: store, dirty: true}
}

func (s *segment) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errSegmentClosed
	}
	s.dirty = true
	return s.buf.Write(p)
}

func (s *segment) SetCompression(c Compression) {
	s.compression = c
	s.dirty = true
}

func (s *segment) Flush() error {
	if s.closed {
		return errSegmentClosed
	}
	if !s.dirty {
		return nil
	}

	framed, err := encode(s.buf.Bytes(), s.compression)
	if err != nil {
		return err
	}
	if err := s.store(framed); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *segment) Close() error {
	if s.closed {
		return nil
	}
	err := s.Flush()
	s.closed = true
	return err
}
