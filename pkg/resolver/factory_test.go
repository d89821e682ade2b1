package resolver_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/logger"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/registry"
	"github.com/papercomputeco/aff4meta/pkg/resolver"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/streams"
)

var _ = Describe("Open", func() {
	var (
		built *constructors
		res   *resolver.Resolver
		image rdfvalue.URN
	)

	BeforeEach(func() {
		built = newConstructors()
		types := registry.NewBuilder().
			Register(lexicon.ImageType, built.of("image")).
			Register(lexicon.Namespace+"Map", built.of("map")).
			Register("file", built.of("file")).
			Build()

		var err error
		res, err = resolver.New(&resolver.Config{Types: types})
		Expect(err).NotTo(HaveOccurred())
		image = rdfvalue.NewURN("aff4://image")
	})

	It("constructs, loads and prepares by rdf:type", func() {
		Expect(res.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())

		obj, err := res.Open(image, lexicon.Version{})
		Expect(err).NotTo(HaveOccurred())

		o := obj.(*testObject)
		Expect(o.kind).To(Equal("image"))
		Expect(o.version).To(Equal(lexicon.Basic))
		Expect(o.loads).To(Equal(1))
		Expect(o.prepares).To(Equal(1))

		n, ok := res.Cache().UseCount(image)
		Expect(ok).To(BeTrue())
		Expect(n).To(Equal(1))
	})

	It("returns the cached instance on a second open", func() {
		Expect(res.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())

		first, err := res.Open(image, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())
		second, err := res.Open(image, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(BeIdenticalTo(first))
		Expect(built.built["image"]).To(Equal(1))
		Expect(first.(*testObject).loads).To(Equal(1))
		Expect(first.(*testObject).prepares).To(Equal(2))

		n, _ := res.Cache().UseCount(image)
		Expect(n).To(Equal(2))
		Expect(res.Return(first)).To(Succeed())
		Expect(res.Return(second)).To(Succeed())
		Expect(res.Cache().Idle()).To(Equal(1))
	})

	It("uses the first registered type in insertion order", func() {
		unknown := rdfvalue.NewURN(lexicon.Namespace + "Unregistered")
		Expect(res.Add(storage.Persistent, image, typeAttr, unknown)).To(Succeed())
		Expect(res.Add(storage.Persistent, image, typeAttr, mapType)).To(Succeed())
		Expect(res.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())

		obj, err := res.Open(image, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.(*testObject).kind).To(Equal("map"))
	})

	It("considers transient types", func() {
		Expect(res.Add(storage.Transient, image, typeAttr, mapType)).To(Succeed())

		obj, err := res.Open(image, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.(*testObject).kind).To(Equal("map"))
	})

	It("falls back to the URN scheme", func() {
		obj, err := res.Open(rdfvalue.NewURN("file:///tmp/evidence.raw"), lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.(*testObject).kind).To(Equal("file"))
	})

	It("builds symbolic streams without metadata", func() {
		obj, err := res.Open(rdfvalue.NewURN(lexicon.Standard.Zero), lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())

		sym, ok := obj.(*streams.Symbolic)
		Expect(ok).To(BeTrue())
		Expect(sym.Pattern()).To(Equal([]byte{0}))
	})

	It("resolves content hash references through the data stream", func() {
		hash := rdfvalue.NewURN(lexicon.HashPrefix + "abcdef")
		stream := rdfvalue.NewURN("aff4://image/data")
		Expect(res.Add(storage.Persistent, hash, streamAttr, stream)).To(Succeed())
		Expect(res.Add(storage.Persistent, stream, sizeAttr, rdfvalue.NewInteger(4096))).To(Succeed())

		obj, err := res.Open(hash, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())

		br, ok := obj.(*streams.ByteRange)
		Expect(ok).To(BeTrue())
		Expect(br.URN()).To(Equal(stream))
		Expect(br.Size()).To(Equal(int64(4096)))

		again, err := res.Open(hash, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(BeIdenticalTo(obj))

		n, _ := res.Cache().UseCount(stream)
		Expect(n).To(Equal(2))
	})

	It("fails for a hash reference without a data stream", func() {
		_, err := res.Open(rdfvalue.NewURN(lexicon.HashPrefix+"00"), lexicon.Basic)

		var cce *resolver.CannotConstructError
		Expect(errors.As(err, &cce)).To(BeTrue())
	})

	It("fails when nothing can construct the URN", func() {
		u := rdfvalue.NewURN("aff4://nothing")
		_, err := res.Open(u, lexicon.Basic)

		Expect(errors.Is(err, resolver.ErrCannotConstruct)).To(BeTrue())
		Expect(err).To(MatchError("unable to create object aff4://nothing"))
		_, cached := res.Cache().UseCount(u)
		Expect(cached).To(BeFalse())
	})

	It("releases the object when Prepare fails on a cache hit", func() {
		Expect(res.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())
		obj, err := res.Open(image, lexicon.Basic)
		Expect(err).NotTo(HaveOccurred())

		obj.(*testObject).prepareErr = errors.New("not ready")
		_, err = res.Open(image, lexicon.Basic)
		Expect(err).To(MatchError(ContainSubstring("not ready")))

		n, _ := res.Cache().UseCount(image)
		Expect(n).To(Equal(1))
	})

	Describe("With", func() {
		It("returns the object after the callback", func() {
			Expect(res.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())

			err := res.With(image, lexicon.Basic, func(obj registry.Object) error {
				n, _ := res.Cache().UseCount(image)
				Expect(n).To(Equal(1))
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			n, ok := res.Cache().UseCount(image)
			Expect(ok).To(BeTrue())
			Expect(n).To(BeZero())
		})

		It("returns the object when the callback fails", func() {
			Expect(res.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())

			err := res.With(image, lexicon.Basic, func(registry.Object) error {
				return errors.New("read failed")
			})
			Expect(err).To(MatchError(ContainSubstring("read failed")))
			Expect(res.Cache().InUse()).To(BeZero())
		})
	})

	Describe("cache access", func() {
		It("puts, gets and closes external objects", func() {
			obj := &testObject{urn: image, dirty: true}
			_, err := res.CachePut(obj)
			Expect(err).NotTo(HaveOccurred())

			_, err = res.CachePut(obj)
			Expect(errors.Is(err, resolver.ErrContractViolation)).To(BeTrue())

			got, ok := res.CacheGet(image)
			Expect(ok).To(BeTrue())
			Expect(got).To(BeIdenticalTo(obj))

			Expect(res.Close(obj)).To(Succeed())
			Expect(obj.flushes).To(Equal(1))
			Expect(obj.closes).To(Equal(1))
			_, ok = res.CacheGet(image)
			Expect(ok).To(BeFalse())
		})

		It("releases objects the factory cannot hand out", func() {
			var logs bytes.Buffer
			res, err := resolver.New(&resolver.Config{Logger: logger.New(logger.WithWriter(&logs))})
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Cache().Put(plainObject{urn: image}, false)).To(Succeed())

			_, ok := res.CacheGet(image)
			Expect(ok).To(BeFalse())
			Expect(res.Cache().InUse()).To(BeZero())
			Expect(res.Cache().Idle()).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("cached object is not constructible"))
			Expect(logs.String()).NotTo(ContainSubstring("returning cached object"))
		})
	})
})

// plainObject satisfies the cache but not the factory.
type plainObject struct {
	urn rdfvalue.URN
}

func (o plainObject) URN() rdfvalue.URN { return o.urn }
func (o plainObject) IsDirty() bool     { return false }
func (o plainObject) Flush() error      { return nil }
func (o plainObject) Close() error      { return nil }
