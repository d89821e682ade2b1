package versioncmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	versioncmder "github.com/papercomputeco/aff4meta/cmd/version"
	"github.com/papercomputeco/aff4meta/pkg/utils"
)

var _ = Describe("NewVersionCmd", func() {
	var out *bytes.Buffer

	run := func(args ...string) error {
		cmd := versioncmder.NewVersionCmd()
		cmd.SetOut(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	It("prints build details", func() {
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: " + utils.Version))
		Expect(out.String()).To(ContainSubstring("AFF4: 1.0"))
	})

	It("prints only the version with --short", func() {
		Expect(run("--short")).To(Succeed())
		Expect(out.String()).To(Equal(utils.Version + "\n"))
	})
})
