package cache_test

import (
	"errors"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// recorder collects flush and close events across objects in order.
type recorder struct {
	events []string
}

type fakeObject struct {
	urn     rdfvalue.URN
	rec     *recorder
	dirty   bool
	flushes int
	closes  int

	flushErr error
	onFlush  func()
}

func newFake(rec *recorder, u string) *fakeObject {
	return &fakeObject{urn: rdfvalue.NewURN(u), rec: rec}
}

func (f *fakeObject) URN() rdfvalue.URN { return f.urn }
func (f *fakeObject) IsDirty() bool     { return f.dirty }

func (f *fakeObject) Flush() error {
	f.flushes++
	if f.rec != nil {
		f.rec.events = append(f.rec.events, "flush "+f.urn.String())
	}
	if f.flushErr != nil {
		return f.flushErr
	}
	f.dirty = false
	if f.onFlush != nil {
		f.onFlush()
	}
	return nil
}

func (f *fakeObject) Close() error {
	f.closes++
	if f.rec != nil {
		f.rec.events = append(f.rec.events, "close "+f.urn.String())
	}
	return nil
}

var errDiskFull = errors.New("disk full")
