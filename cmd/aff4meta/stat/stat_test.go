package statcmder_test

import (
	"bytes"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	statcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/stat"
	"github.com/papercomputeco/aff4meta/pkg/resolver"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

const metadata = "@prefix aff4: <http://aff4.org/Schema#> .\n" +
	"@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .\n" +
	"@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .\n" +
	"\n" +
	"<aff4:sha512:feed> aff4:dataStream <aff4://image> .\n" +
	"<aff4://image> rdf:type aff4:ImageStream ;\n" +
	"    aff4:size \"4096\"^^xsd:long .\n"

var _ = Describe("NewStatCmd", func() {
	var (
		configDir string
		volDir    string
		out       *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := statcmder.NewStatCmd()
		cmd.Flags().String("config-dir", configDir, "")
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--volume", volDir))
		return cmd.Execute()
	}

	BeforeEach(func() {
		configDir = filepath.Join(GinkgoT().TempDir(), ".aff4")
		volDir = filepath.Join(GinkgoT().TempDir(), "vol")
		out = &bytes.Buffer{}

		vol, err := volume.OpenDir(volDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(volume.WriteAll(vol, turtle.InformationMember, []byte(metadata), volume.Stored)).To(Succeed())
	})

	It("takes exactly one URN", func() {
		cmd := statcmder.NewStatCmd()
		Expect(cmd.Args(cmd, []string{})).NotTo(Succeed())
		Expect(cmd.Args(cmd, []string{"aff4:Zero"})).To(Succeed())
	})

	It("reports symbolic streams", func() {
		Expect(run("aff4:Zero")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("symbolic stream"))
		Expect(out.String()).To(ContainSubstring("00"))
	})

	It("resolves content-hash references to byte ranges", func() {
		Expect(run("aff4:sha512:feed")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("byte range"))
		Expect(out.String()).To(ContainSubstring("aff4://image"))
		Expect(out.String()).To(ContainSubstring("4096"))
		Expect(out.String()).To(ContainSubstring("In use:"))
	})

	It("fails for objects no factory can build", func() {
		err := run("aff4://image")
		Expect(err).To(MatchError(resolver.ErrCannotConstruct))
	})
})
