package sqlite_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/storage/sqlite"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
)

const metadata = `@prefix aff4: <http://aff4.org/Schema#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

<aff4://volume/image> rdf:type aff4:ImageStream ;
	aff4:size "100"^^xsd:long ;
	aff4:size "200"^^xsd:long ;
	aff4:stored <aff4://volume> .

<aff4://volume/map> rdf:type aff4:Map ;
	aff4:dataStream <aff4://volume/image> .
`

const ntriples = `<aff4://volume/image> <http://aff4.org/Schema#size> "100"^^<http://www.w3.org/2001/XMLSchema#long> .
<aff4://volume/image> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://aff4.org/Schema#ImageStream> .
`

var (
	image    = rdfvalue.NewURN("aff4://volume/image")
	mapURN   = rdfvalue.NewURN("aff4://volume/map")
	size     = rdfvalue.NewURN("http://aff4.org/Schema#size")
	typeAttr = rdfvalue.NewURN("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
)

func source(text string) storage.TurtleSource {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}
}

var _ = Describe("Index", func() {
	var (
		ix  *sqlite.Index
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		ix, err = sqlite.Open(":memory:", nil)
		Expect(err).NotTo(HaveOccurred())

		n, err := ix.Load(ctx, turtle.Decode(strings.NewReader(metadata)))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(6))
	})

	AfterEach(func() {
		Expect(ix.Close()).To(Succeed())
	})

	It("ignores duplicate triples", func() {
		n, err := ix.Load(ctx, turtle.Decode(strings.NewReader(metadata)))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())

		count, err := ix.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(6))
	})

	It("returns typed values in load order", func() {
		values, err := ix.Values(ctx, image, size)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]rdfvalue.Value{rdfvalue.NewInteger(100), rdfvalue.NewInteger(200)}))
	})

	It("returns URN objects", func() {
		values, err := ix.Values(ctx, image, typeAttr)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]rdfvalue.Value{rdfvalue.NewURN("http://aff4.org/Schema#ImageStream")}))
	})

	It("lists subjects in first-seen order", func() {
		subjects, err := ix.Subjects(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(subjects).To(Equal([]rdfvalue.URN{image, mapURN}))

		subjects, err = ix.SubjectsWithPrefix(ctx, "aff4://volume/m")
		Expect(err).NotTo(HaveOccurred())
		Expect(subjects).To(Equal([]rdfvalue.URN{mapURN}))
	})

	It("finds subjects by object", func() {
		subjects, err := ix.SubjectsWithObject(ctx, typeAttr, rdfvalue.NewURN("http://aff4.org/Schema#Map"))
		Expect(err).NotTo(HaveOccurred())
		Expect(subjects).To(Equal([]rdfvalue.URN{mapURN}))
	})

	It("returns triples by predicate", func() {
		triples, err := ix.WithPredicate(ctx, size)
		Expect(err).NotTo(HaveOccurred())
		Expect(triples).To(HaveLen(2))
		Expect(triples[0].Subject).To(Equal(image))
	})

	It("groups attributes by predicate", func() {
		attrs, err := ix.Attributes(ctx, image)
		Expect(err).NotTo(HaveOccurred())
		Expect(attrs).To(HaveLen(3))
		Expect(attrs[0].Predicate).To(Equal(typeAttr))
		Expect(attrs[1].Values).To(HaveLen(2))
	})
})

var _ = Describe("Build", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	It("builds once and reuses the cached database", func() {
		path := sqlite.CachePath(dir, rdfvalue.NewURN("aff4://volume"))

		ix, built, err := sqlite.Build(ctx, path, source(metadata), sqlite.NativeConverter{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(built).To(BeTrue())
		Expect(ix.Close()).To(Succeed())

		ix, built, err = sqlite.Build(ctx, path, source("not turtle"), sqlite.NativeConverter{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(built).To(BeFalse())
		defer ix.Close()

		count, err := ix.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(6))
	})

	It("leaves no database behind on conversion failure", func() {
		path := filepath.Join(dir, "broken.db")

		_, _, err := sqlite.Build(ctx, path, source("<aff4://a> aff4:size"), sqlite.NativeConverter{}, nil)
		var convErr *sqlite.ConvertError
		Expect(errors.As(err, &convErr)).To(BeTrue())
		Expect(convErr.Tool).To(Equal("native"))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("loads N-Triples produced by an external command", func() {
		path := filepath.Join(dir, "exec.db")

		ix, built, err := sqlite.Build(ctx, path, source(ntriples), sqlite.ExecConverter{Command: []string{"cat"}}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(built).To(BeTrue())
		defer ix.Close()

		values, err := ix.Values(ctx, image, size)
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(Equal([]rdfvalue.Value{rdfvalue.NewInteger(100)}))
	})

	It("reports a missing external command", func() {
		path := filepath.Join(dir, "missing.db")

		_, _, err := sqlite.Build(ctx, path, source(metadata),
			sqlite.ExecConverter{Command: []string{filepath.Join(dir, "no-such-rdf-tool")}}, nil)
		var convErr *sqlite.ConvertError
		Expect(errors.As(err, &convErr)).To(BeTrue())
		Expect(convErr.Tool).To(Equal("no-such-rdf-tool"))
	})
})

var _ = Describe("Remove", func() {
	It("deletes the database and its journals", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "volume.db")
		for _, p := range []string{path, path + "-journal", path + "-wal"} {
			Expect(os.WriteFile(p, []byte("x"), 0o644)).To(Succeed())
		}

		Expect(sqlite.Remove(path)).To(Succeed())
		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("tolerates missing files", func() {
		Expect(sqlite.Remove(filepath.Join(GinkgoT().TempDir(), "absent.db"))).To(Succeed())
	})
})

var _ = Describe("CachePath", func() {
	It("strips the scheme and escapes the volume id", func() {
		Expect(sqlite.CachePath("/cache", rdfvalue.NewURN("aff4://c215f9a1/sub"))).To(Equal("/cache/c215f9a1%2Fsub.db"))
	})

	It("resolves the override first", func() {
		dir, err := sqlite.ResolveCacheDir("/override", "/fallback")
		Expect(err).NotTo(HaveOccurred())
		Expect(dir).To(Equal("/override"))
	})

	It("prefers the environment over the fallback", func() {
		GinkgoT().Setenv("AFF4_INDEX_DIR", "/from-env")
		dir, err := sqlite.ResolveCacheDir("", "/fallback")
		Expect(err).NotTo(HaveOccurred())
		Expect(dir).To(Equal("/from-env"))
	})
})
