package cache_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/cache"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

var _ = Describe("ObjectCache", func() {
	var (
		oc  *cache.ObjectCache
		rec *recorder
	)

	BeforeEach(func() {
		rec = &recorder{}
		oc = cache.New(&cache.Config{MaxItems: 3})
	})

	Describe("New", func() {
		It("defaults the idle capacity", func() {
			Expect(cache.New(nil).MaxItems()).To(Equal(cache.DefaultMaxItems))
		})
	})

	Describe("Put", func() {
		It("pins in-use objects with a use count of one", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, true)).To(Succeed())

			count, ok := oc.UseCount(a.URN())
			Expect(ok).To(BeTrue())
			Expect(count).To(Equal(1))
			Expect(oc.InUse()).To(Equal(1))
			Expect(oc.Idle()).To(Equal(0))
		})

		It("places idle objects at the most recently used end", func() {
			Expect(oc.Put(newFake(rec, "aff4://a"), false)).To(Succeed())
			Expect(oc.Put(newFake(rec, "aff4://b"), false)).To(Succeed())

			Expect(oc.IdleKeys()).To(Equal([]string{"aff4://b", "aff4://a"}))
		})

		It("rejects double registration in either collection", func() {
			Expect(oc.Put(newFake(rec, "aff4://a"), true)).To(Succeed())
			Expect(oc.Put(newFake(rec, "aff4://b"), false)).To(Succeed())

			err := oc.Put(newFake(rec, "aff4://a"), false)
			Expect(err).To(MatchError(cache.ErrContractViolation))

			err = oc.Put(newFake(rec, "aff4://b"), true)
			Expect(err).To(MatchError(cache.ErrContractViolation))
		})

		It("evicts the older idle object when capacity is exceeded", func() {
			small := cache.New(&cache.Config{MaxItems: 1})
			a := newFake(rec, "obj_a")
			b := newFake(rec, "obj_b")

			Expect(small.Put(a, false)).To(Succeed())
			Expect(small.Put(b, false)).To(Succeed())

			Expect(a.flushes).To(Equal(1))
			Expect(b.flushes).To(Equal(0))
			Expect(small.IdleKeys()).To(Equal([]string{"obj_b"}))
		})
	})

	Describe("Get", func() {
		It("returns a miss without error", func() {
			obj, ok := oc.Get(rdfvalue.NewURN("aff4://missing"))
			Expect(ok).To(BeFalse())
			Expect(obj).To(BeNil())
		})

		It("increments the use count of in-use objects", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, true)).To(Succeed())

			got, ok := oc.Get(a.URN())
			Expect(ok).To(BeTrue())
			Expect(got).To(BeIdenticalTo(a))

			count, _ := oc.UseCount(a.URN())
			Expect(count).To(Equal(2))
		})

		It("moves idle objects into use", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, false)).To(Succeed())

			got, ok := oc.Get(a.URN())
			Expect(ok).To(BeTrue())
			Expect(got).To(BeIdenticalTo(a))
			Expect(oc.Idle()).To(Equal(0))
			Expect(oc.InUse()).To(Equal(1))
		})
	})

	Describe("Return", func() {
		It("demotes an object to idle after the last use", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, true)).To(Succeed())
			_, _ = oc.Get(a.URN())

			Expect(oc.Return(a)).To(Succeed())
			Expect(oc.InUse()).To(Equal(1))

			Expect(oc.Return(a)).To(Succeed())
			Expect(oc.InUse()).To(Equal(0))
			Expect(oc.IdleKeys()).To(Equal([]string{"aff4://a"}))
		})

		It("rejects objects that are not in use", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Return(a)).To(MatchError(cache.ErrContractViolation))

			Expect(oc.Put(a, false)).To(Succeed())
			Expect(oc.Return(a)).To(MatchError(cache.ErrContractViolation))
		})

		It("never evicts pinned objects", func() {
			small := cache.New(&cache.Config{MaxItems: 1})
			pinned := []*fakeObject{newFake(rec, "p1"), newFake(rec, "p2"), newFake(rec, "p3")}
			for _, p := range pinned {
				Expect(small.Put(p, true)).To(Succeed())
			}
			Expect(small.Trim(0)).To(Succeed())

			for _, p := range pinned {
				Expect(p.flushes).To(BeZero())
			}
			Expect(small.InUse()).To(Equal(3))
		})
	})

	Describe("Remove", func() {
		It("flushes and closes an idle object", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, false)).To(Succeed())

			Expect(oc.Remove(a)).To(Succeed())
			Expect(rec.events).To(Equal([]string{"flush aff4://a", "close aff4://a"}))
			_, ok := oc.UseCount(a.URN())
			Expect(ok).To(BeFalse())
		})

		It("removes an in-use object", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, true)).To(Succeed())

			Expect(oc.Remove(a)).To(Succeed())
			Expect(oc.InUse()).To(BeZero())
			Expect(a.closes).To(Equal(1))
		})

		It("allows the URN to be registered again", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, false)).To(Succeed())
			Expect(oc.Remove(a)).To(Succeed())

			Expect(oc.Put(newFake(rec, "aff4://a"), true)).To(Succeed())
		})

		It("rejects objects that were never cached", func() {
			Expect(oc.Remove(newFake(rec, "aff4://ghost"))).To(MatchError(cache.ErrContractViolation))
		})

		It("propagates flush failures", func() {
			a := newFake(rec, "aff4://a")
			a.flushErr = errDiskFull
			Expect(oc.Put(a, false)).To(Succeed())

			Expect(oc.Remove(a)).To(MatchError(errDiskFull))
			Expect(a.closes).To(Equal(1))
		})
	})

	Describe("Trim", func() {
		It("evicts every idle entry least recently used first", func() {
			for _, u := range []string{"a", "b", "c"} {
				Expect(oc.Put(newFake(rec, u), false)).To(Succeed())
			}

			Expect(oc.Trim(0)).To(Succeed())
			Expect(rec.events).To(Equal([]string{
				"flush a", "close a",
				"flush b", "close b",
				"flush c", "close c",
			}))
			Expect(oc.Idle()).To(BeZero())
		})

		It("keeps recently returned objects over older idle ones", func() {
			a := newFake(rec, "a")
			b := newFake(rec, "b")
			Expect(oc.Put(a, false)).To(Succeed())
			Expect(oc.Put(b, false)).To(Succeed())

			_, _ = oc.Get(a.URN())
			Expect(oc.Return(a)).To(Succeed())

			Expect(oc.Trim(1)).To(Succeed())
			Expect(oc.IdleKeys()).To(Equal([]string{"a"}))
			Expect(b.flushes).To(Equal(1))
		})

		It("reuses arena slots after eviction", func() {
			for i := range 20 {
				obj := newFake(rec, "aff4://obj/"+string(rune('a'+i)))
				Expect(oc.Put(obj, false)).To(Succeed())
			}
			Expect(oc.Idle()).To(Equal(3))
			Expect(oc.IdleKeys()[0]).To(Equal("aff4://obj/t"))
		})
	})

	Describe("Flush", func() {
		It("fails while objects are in use and succeeds once returned", func() {
			a := newFake(rec, "aff4://a")
			Expect(oc.Put(a, true)).To(Succeed())

			Expect(oc.Flush()).To(MatchError(cache.ErrContractViolation))

			Expect(oc.Return(a)).To(Succeed())
			Expect(oc.Flush()).To(Succeed())
			Expect(a.closes).To(Equal(1))
			Expect(oc.Idle()).To(BeZero())
		})

		It("sweeps until no idle object is dirty", func() {
			parent := newFake(rec, "aff4://parent")
			child := newFake(rec, "aff4://child")
			child.dirty = true
			child.onFlush = func() { parent.dirty = true }

			Expect(oc.Put(parent, false)).To(Succeed())
			Expect(oc.Put(child, false)).To(Succeed())

			Expect(oc.Flush()).To(Succeed())
			Expect(child.flushes).To(Equal(1))
			Expect(parent.flushes).To(Equal(1))
			Expect(parent.closes).To(Equal(1))
			Expect(child.closes).To(Equal(1))
		})

		It("leaves clean objects unflushed before closing them", func() {
			clean := newFake(rec, "aff4://clean")
			Expect(oc.Put(clean, false)).To(Succeed())

			Expect(oc.Flush()).To(Succeed())
			Expect(rec.events).To(Equal([]string{"close aff4://clean"}))
		})

		It("propagates a dirty object's flush error", func() {
			broken := newFake(rec, "aff4://broken")
			broken.dirty = true
			broken.flushErr = errDiskFull
			Expect(oc.Put(broken, false)).To(Succeed())

			Expect(oc.Flush()).To(MatchError(errDiskFull))
		})
	})

	Describe("Dump", func() {
		It("lists in-use and idle entries", func() {
			Expect(oc.Put(newFake(rec, "aff4://busy"), true)).To(Succeed())
			Expect(oc.Put(newFake(rec, "aff4://idle"), false)).To(Succeed())

			var buf bytes.Buffer
			oc.Dump(&buf)
			Expect(buf.String()).To(ContainSubstring("aff4://busy - 1"))
			Expect(buf.String()).To(ContainSubstring("aff4://idle - 0"))
		})
	})
})
