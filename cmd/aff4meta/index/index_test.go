package indexcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	indexcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/index"
	"github.com/papercomputeco/aff4meta/pkg/storage/sqlite"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

const metadata = "@prefix aff4: <http://aff4.org/Schema#> .\n" +
	"@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .\n" +
	"\n" +
	"<aff4://image> rdf:type aff4:ImageStream .\n"

var _ = Describe("NewIndexCmd", func() {
	var (
		configDir string
		cacheDir  string
		volDir    string
		dbPath    string
		out       *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := indexcmder.NewIndexCmd()
		cmd.PersistentFlags().String("config-dir", configDir, "")
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--volume", volDir, "--index-cache-dir", cacheDir))
		return cmd.Execute()
	}

	BeforeEach(func() {
		configDir = filepath.Join(GinkgoT().TempDir(), ".aff4")
		cacheDir = GinkgoT().TempDir()
		volDir = filepath.Join(GinkgoT().TempDir(), "vol")
		out = &bytes.Buffer{}

		vol, err := volume.OpenDir(volDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(volume.WriteAll(vol, turtle.InformationMember, []byte(metadata), volume.Stored)).To(Succeed())
		dbPath = sqlite.CachePath(cacheDir, vol.URN())
	})

	It("has build and drop subcommands", func() {
		cmd := indexcmder.NewIndexCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("build", "drop"))
	})

	It("builds the index database", func() {
		Expect(run("build")).To(Succeed())
		Expect(dbPath).To(BeAnExistingFile())
		Expect(out.String()).To(ContainSubstring(dbPath))
	})

	It("reuses an existing index", func() {
		Expect(run("build")).To(Succeed())
		before, err := os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())

		Expect(run("build")).To(Succeed())
		after, err := os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.ModTime()).To(Equal(before.ModTime()))
	})

	It("drops the index", func() {
		Expect(run("build")).To(Succeed())
		Expect(run("drop")).To(Succeed())
		Expect(dbPath).NotTo(BeAnExistingFile())

		out.Reset()
		Expect(run("drop")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No index to drop"))
	})

	It("rebuilds on request", func() {
		Expect(run("build")).To(Succeed())
		Expect(run("build", "--rebuild")).To(Succeed())
		Expect(dbPath).To(BeAnExistingFile())
	})

	It("fails without leaving a database when the converter fails", func() {
		err := run("build", "--index-converter", "exec", "--index-command", "false")
		Expect(err).To(MatchError(ContainSubstring("index could not be built")))
		Expect(dbPath).NotTo(BeAnExistingFile())
	})
})
