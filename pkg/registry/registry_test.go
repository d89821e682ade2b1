package registry_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/registry"
)

var errMarker = errors.New("marker")

func failing(marker error) registry.Constructor {
	return func(registry.Resolver, rdfvalue.URN, lexicon.Version) (registry.Object, error) {
		return nil, marker
	}
}

var _ = Describe("Builder", func() {
	It("freezes registrations on Build", func() {
		b := registry.NewBuilder().Register(lexicon.ImageType, failing(errMarker))
		types := b.Build()

		b.Register("file", failing(errMarker))

		Expect(types.Tags()).To(Equal([]string{lexicon.ImageType}))
		Expect(b.Build().Tags()).To(Equal([]string{"file", lexicon.ImageType}))
	})

	It("replaces a tag registered twice", func() {
		other := errors.New("other")
		types := registry.NewBuilder().
			Register("file", failing(errMarker)).
			Register("file", failing(other)).
			Build()

		c, ok := types.Lookup("file")
		Expect(ok).To(BeTrue())
		_, err := c(nil, rdfvalue.NewURN("file:///tmp/x"), lexicon.Basic)
		Expect(err).To(MatchError(other))
	})
})

var _ = Describe("Types", func() {
	It("misses unknown tags", func() {
		_, ok := registry.NewBuilder().Build().Lookup(lexicon.ImageType)
		Expect(ok).To(BeFalse())
	})

	It("treats a nil table as empty", func() {
		var types *registry.Types
		_, ok := types.Lookup("aff4")
		Expect(ok).To(BeFalse())
		Expect(types.Tags()).To(BeEmpty())
		Expect(registry.Empty.Tags()).To(BeEmpty())
	})
})
