// Package statcmder provides the stat command, which opens one object
// through the resolver's factory and reports what was built.
package statcmder

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/lexicon"
	"github.com/papercomputeco/aff4meta/pkg/registry"
	"github.com/papercomputeco/aff4meta/pkg/streams"
)

const statLongDesc string = `Open an object and report what it is.

The URN goes through the same factory lookup the resolver uses for every
object: cached objects first, then symbolic streams, content-hash
references and finally the object's rdf:type.

Examples:
  aff4meta stat http://aff4.org/Schema#Zero
  aff4meta stat aff4:sha512:9e10...`

const statShortDesc string = "Open an object and report its kind"

type statCommander struct {
	flags session.Flags
}

func NewStatCmd() *cobra.Command {
	cmder := &statCommander{}

	cmd := &cobra.Command{
		Use:   "stat <urn>",
		Short: statShortDesc,
		Long:  statLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.flags.AddFlags(cmd)

	return cmd
}

func (c *statCommander) run(cmd *cobra.Command, urn string) (err error) {
	s, err := session.Open(cmd.Context(), cmd, &c.flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	return s.Resolver.With(s.Expand(urn), lexicon.Basic, func(obj registry.Object) error {
		return describe(cmd.OutOrStdout(), s, obj)
	})
}

func describe(w io.Writer, s *session.Session, obj registry.Object) error {
	row := func(key, value string) {
		fmt.Fprintf(w, "  %-8s %s\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(value))
	}

	row("URN:", obj.URN().String())
	switch o := obj.(type) {
	case *streams.Symbolic:
		row("Kind:", "symbolic stream")
		row("Pattern:", hex.EncodeToString(o.Pattern()))
	case *streams.ByteRange:
		row("Kind:", "byte range")
		row("Target:", o.Target().String())
		row("Size:", fmt.Sprintf("%d", o.Size()))
	default:
		row("Kind:", fmt.Sprintf("%T", obj))
	}
	if uses, ok := s.Resolver.Cache().UseCount(obj.URN()); ok {
		row("In use:", fmt.Sprintf("%d", uses))
	}
	return nil
}
