package turtle_test

import (
	"slices"
	"strings"

	"github.com/knakk/rdf"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/turtle"
)

func iri(s string) rdf.IRI {
	u, err := rdf.NewIRI(s)
	Expect(err).NotTo(HaveOccurred())
	return u
}

func decodeAll(text string) []rdf.Triple {
	var out []rdf.Triple
	for t, err := range turtle.Decode(strings.NewReader(text)) {
		Expect(err).NotTo(HaveOccurred())
		out = append(out, t)
	}
	return out
}

var _ = Describe("codec", func() {
	prefixes := []turtle.Prefix{
		{Name: "aff4", IRI: "http://aff4.org/Schema#"},
		{Name: "xsd", IRI: "http://www.w3.org/2001/XMLSchema#"},
	}

	It("writes directives ahead of the triples", func() {
		triples := []rdf.Triple{{
			Subj: iri("aff4://image"),
			Pred: iri("http://aff4.org/Schema#size"),
			Obj:  rdf.NewTypedLiteral("100", iri("http://www.w3.org/2001/XMLSchema#long")),
		}}

		text, err := turtle.EncodeString(prefixes, slices.Values(triples))
		Expect(err).NotTo(HaveOccurred())

		directives, body := turtle.Split(text)
		Expect(directives).To(Equal("@prefix aff4: <http://aff4.org/Schema#> .\r\n" +
			"@prefix xsd: <http://www.w3.org/2001/XMLSchema#> ."))
		Expect(body).To(ContainSubstring("aff4://image"))
	})

	It("writes the body in full IRIs whatever namespaces it meets", func() {
		triples := []rdf.Triple{
			{
				Subj: iri("aff4://image"),
				Pred: iri("http://example.org/note"),
				Obj:  iri("http://example.org/Other"),
			},
			{
				Subj: iri("aff4://image"),
				Pred: iri("http://aff4.org/Schema#size"),
				Obj:  rdf.NewTypedLiteral("100", iri("http://www.w3.org/2001/XMLSchema#long")),
			},
		}

		text, err := turtle.EncodeString(prefixes, slices.Values(triples))
		Expect(err).NotTo(HaveOccurred())

		directives, body := turtle.Split(text)
		Expect(turtle.PrefixNames(directives)).To(Equal([]string{"aff4", "xsd"}))
		Expect(body).To(ContainSubstring("<http://example.org/Other>"))
		Expect(body).To(ContainSubstring("<http://aff4.org/Schema#size>"))
		Expect(body).To(ContainSubstring("<http://www.w3.org/2001/XMLSchema#long>"))
		Expect(body).NotTo(ContainSubstring("ns0:"))
	})

	It("decodes what it encodes", func() {
		triples := []rdf.Triple{
			{
				Subj: iri("aff4://image"),
				Pred: iri("http://www.w3.org/1999/02/22-rdf-syntax-ns#type"),
				Obj:  iri("http://aff4.org/Schema#ImageStream"),
			},
			{
				Subj: iri("aff4://image"),
				Pred: iri("http://aff4.org/Schema#size"),
				Obj:  rdf.NewTypedLiteral("100", iri("http://www.w3.org/2001/XMLSchema#long")),
			},
			{
				Subj: iri("aff4:sha512:abcd"),
				Pred: iri("http://aff4.org/Schema#dataStream"),
				Obj:  iri("aff4://image"),
			},
		}

		text, err := turtle.EncodeString(prefixes, slices.Values(triples))
		Expect(err).NotTo(HaveOccurred())

		decoded := decodeAll(text)
		Expect(decoded).To(HaveLen(3))
		Expect(decoded[1].Obj.String()).To(Equal("100"))
		Expect(decoded[1].Obj.(rdf.Literal).DataType.String()).To(Equal("http://www.w3.org/2001/XMLSchema#long"))
		Expect(decoded[2].Subj.String()).To(Equal("aff4:sha512:abcd"))
	})

	It("decodes assembled chunk documents", func() {
		doc := turtle.Assemble(
			"@prefix aff4: <http://aff4.org/Schema#> .",
			[]string{"<aff4://a> aff4:size \"1\" .", "<aff4://b> aff4:size \"2\" ."},
		)
		Expect(decodeAll(doc)).To(HaveLen(2))
	})

	It("reports syntax errors", func() {
		var errs []error
		for _, err := range turtle.Decode(strings.NewReader("<aff4://a> aff4:size")) {
			errs = append(errs, err)
		}
		Expect(errs).To(HaveLen(1))
		Expect(errs[0]).To(HaveOccurred())
	})

	It("decodes N-Triples", func() {
		var n int
		for _, err := range turtle.DecodeNTriples(strings.NewReader("<aff4://a> <http://aff4.org/Schema#size> \"1\" .\n")) {
			Expect(err).NotTo(HaveOccurred())
			n++
		}
		Expect(n).To(Equal(1))
	})
})
