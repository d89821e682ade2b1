package resolver_test

import (
	"context"
	"os"
	"slices"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/resolver"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/storage/overlay"
	"github.com/papercomputeco/aff4meta/pkg/storage/sqlite"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

const legacyMetadata = `@prefix aff4: <http://afflib.org/2009/aff4#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

<aff4://image> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> aff4:stream ;
    aff4:size "2048"^^xsd:long .
`

var _ = Describe("LoadFromTurtle", func() {
	It("types literals and records the AFF4 namespace", func() {
		res, err := resolver.New(&resolver.Config{Lexicon: lexicon.Legacy})
		Expect(err).NotTo(HaveOccurred())

		Expect(res.LoadFromTurtle(strings.NewReader(legacyMetadata), rdfvalue.URN{})).To(Succeed())

		image := rdfvalue.NewURN("aff4://image")
		Expect(res.AFF4Namespace()).To(Equal(lexicon.LegacyNamespace))
		Expect(res.Get(storage.SelectPersistent, image, rdfvalue.NewURN(lexicon.Legacy.Size))).
			To(Equal([]rdfvalue.Value{rdfvalue.NewInteger(2048)}))
		Expect(res.IsImageStream(image)).To(BeTrue())
	})

	It("reports syntax errors", func() {
		res, err := resolver.New(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.LoadFromTurtle(strings.NewReader("<aff4://a> <urn:p> ."), rdfvalue.URN{})).NotTo(Succeed())
	})
})

var _ = Describe("LoadMetadata", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("loads nothing from a volume without metadata", func() {
		res, err := resolver.New(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.LoadMetadata(ctx, volume.NewMemory(rdfvalue.URN{}))).To(Succeed())
	})

	It("round trips a dump through a volume", func() {
		writer, err := resolver.New(nil)
		Expect(err).NotTo(HaveOccurred())
		image := rdfvalue.NewURN("aff4://image")
		Expect(writer.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())
		Expect(writer.Add(storage.Persistent, image, sizeAttr, rdfvalue.NewInteger(100))).To(Succeed())

		vol := volume.NewMemory(rdfvalue.URN{})
		Expect(writer.DumpToTurtle(ctx, vol)).To(Succeed())
		Expect(writer.DumpToTurtle(ctx, vol)).To(Succeed())

		reader, err := resolver.New(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reader.LoadMetadata(ctx, vol)).To(Succeed())

		Expect(reader.AFF4Namespace()).To(Equal(lexicon.Namespace))
		Expect(reader.Get(storage.SelectPersistent, image, sizeAttr)).To(Equal([]rdfvalue.Value{rdfvalue.NewInteger(100)}))
	})

	Context("with an indexing driver", func() {
		var (
			cacheDir string
			vol      *volume.MemoryVolume
			driver   *overlay.Driver
			res      *resolver.Resolver
			image    rdfvalue.URN
		)

		BeforeEach(func() {
			cacheDir = GinkgoT().TempDir()
			vol = volume.NewMemory(rdfvalue.URN{})
			image = rdfvalue.NewURN("aff4://image")

			seed, err := resolver.New(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(seed.Add(storage.Persistent, image, typeAttr, imageType)).To(Succeed())
			Expect(seed.Add(storage.Persistent, image, sizeAttr, rdfvalue.NewInteger(100))).To(Succeed())
			Expect(seed.DumpToTurtle(ctx, vol)).To(Succeed())

			driver = overlay.NewDriver(nil, &overlay.Config{CacheDir: cacheDir})
			res, err = resolver.New(&resolver.Config{Driver: driver})
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(res.Shutdown)
		})

		It("answers from the index without loading into memory", func() {
			Expect(res.LoadMetadata(ctx, vol)).To(Succeed())

			Expect(driver.Indexed(vol.URN())).To(BeTrue())
			Expect(driver.Count(storage.Persistent)).To(BeZero())
			Expect(res.AFF4Namespace()).To(Equal(lexicon.Namespace))
			Expect(res.Get(storage.SelectPersistent, image, sizeAttr)).To(Equal([]rdfvalue.Value{rdfvalue.NewInteger(100)}))
			Expect(res.IsImageStream(image)).To(BeTrue())
		})

		It("rebuilds the index after appending", func() {
			Expect(res.LoadMetadata(ctx, vol)).To(Succeed())

			added := rdfvalue.NewURN("aff4://added")
			Expect(res.Add(storage.Persistent, added, typeAttr, mapType)).To(Succeed())
			Expect(res.DumpToTurtle(ctx, vol)).To(Succeed())

			Expect(driver.Indexed(vol.URN())).To(BeTrue())
			Expect(vol.ContainsMember(turtle.ChunkMember(1))).To(BeTrue())

			ix, err := sqlite.Open(sqlite.CachePath(cacheDir, vol.URN()), nil)
			Expect(err).NotTo(HaveOccurred())
			defer ix.Close()
			subjects, err := ix.Subjects(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(subjects).To(ContainElement(added))

			Expect(slices.Collect(res.SelectSubjectsByPrefix(storage.SelectPersistent, "aff4://"))).
				To(ConsistOf(image, added))
		})

		It("keeps the index attached when an append fails", func() {
			Expect(res.LoadMetadata(ctx, vol)).To(Succeed())
			Expect(res.Add(storage.Persistent, rdfvalue.NewURN("aff4://added"), typeAttr, mapType)).To(Succeed())

			broken := brokenVolume{MemoryVolume: vol, refuse: turtle.ChunkMember(1)}
			Expect(res.DumpToTurtle(ctx, broken)).To(MatchError(ContainSubstring("disk full")))

			Expect(driver.Indexed(vol.URN())).To(BeTrue())
			Expect(driver.Count(storage.Persistent)).To(Equal(1))
			Expect(res.Get(storage.SelectPersistent, image, sizeAttr)).To(Equal([]rdfvalue.Value{rdfvalue.NewInteger(100)}))
		})

		It("falls back to in-memory loading when the converter fails", func() {
			driver = overlay.NewDriver(nil, &overlay.Config{
				CacheDir:  cacheDir,
				Converter: sqlite.ExecConverter{Command: []string{cacheDir + "/no-such-tool"}},
			})
			fallback, err := resolver.New(&resolver.Config{Driver: driver})
			Expect(err).NotTo(HaveOccurred())

			Expect(fallback.LoadMetadata(ctx, vol)).To(Succeed())
			Expect(driver.Enabled()).To(BeFalse())
			Expect(driver.Count(storage.Persistent)).To(BeNumerically(">", 0))
			Expect(fallback.Get(storage.SelectPersistent, image, sizeAttr)).To(HaveLen(1))

			_, err = os.Stat(sqlite.CachePath(cacheDir, vol.URN()))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
