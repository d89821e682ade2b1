package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
	})

	It("returns the string unchanged when exactly at the limit", func() {
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with ellipsis when over the limit", func() {
		result := Truncate("this is a long string", 10)
		Expect(result).To(Equal("this is a ..."))
	})

	It("does not split multi-byte characters", func() {
		// "é" is two bytes; a cut at 2 would land inside it.
		Expect(Truncate("aéb", 2)).To(Equal("a..."))
	})

	It("keeps URNs readable when shortened", func() {
		Expect(Truncate("aff4://0f3c9a4e-volume", 7)).To(Equal("aff4://..."))
	})
})
