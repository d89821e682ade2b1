// Package editcmder provides the set and add commands, which record facts
// in a volume's persistent metadata.
package editcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

const setLongDesc string = `Replace the values of an attribute.

Every existing value of <predicate> on <subject> is dropped and <value>
becomes the only one. The metadata is then appended to the volume's
information.turtle as a new chunk; earlier chunks are never rewritten.

Subjects are written only when they carry an rdf:type, so give new
subjects a type first.

Examples:
  aff4meta set aff4://image rdf:type aff4:ImageStream --type urn
  aff4meta set aff4://image aff4:size 4096 --type long`

const addLongDesc string = `Add a value to an attribute.

<value> joins the existing values of <predicate> on <subject>. Adding a
value that is already present changes nothing. The metadata is then
appended to the volume like set does.

Examples:
  aff4meta add aff4://image aff4:hash 9e10... --type sha512
  aff4meta add aff4://image aff4:category aff4:Evidence --type urn`

type editCommander struct {
	flags session.Flags
	kind  string
	add   bool
}

func NewSetCmd() *cobra.Command {
	return newEditCmd("set", "Replace the values of an attribute", setLongDesc, false)
}

func NewAddCmd() *cobra.Command {
	return newEditCmd("add", "Add a value to an attribute", addLongDesc, true)
}

func newEditCmd(use, short, long string, add bool) *cobra.Command {
	cmder := &editCommander{add: add}

	cmd := &cobra.Command{
		Use:   use + " <subject> <predicate> <value>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(3),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if !session.ValidKind(cmder.kind) {
				return fmt.Errorf("unknown value type %q", cmder.kind)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0], args[1], args[2])
		},
	}

	cmder.flags.AddFlags(cmd)
	cmd.Flags().StringVarP(&cmder.kind, "type", "t", "string", "Value type (string, urn, long, integer, boolean, datetime, sha512)")

	return cmd
}

func (c *editCommander) run(cmd *cobra.Command, subject, predicate, lexical string) (err error) {
	s, err := session.Open(cmd.Context(), cmd, &c.flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	value, err := s.ParseValue(c.kind, lexical)
	if err != nil {
		return err
	}
	subj, pred := s.Expand(subject), s.Expand(predicate)

	if c.add {
		err = s.Resolver.Add(storage.Persistent, subj, pred, value)
	} else {
		err = s.Resolver.Set(storage.Persistent, subj, pred, value)
	}
	if err != nil {
		return err
	}

	if err := s.Flush(cmd.Context()); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(subj.String()),
		s.Compact(pred),
		cliui.ValueStyle.Render(display(s, value)),
	)
	return nil
}

func display(s *session.Session, v rdfvalue.Value) string {
	if u, ok := v.(rdfvalue.URN); ok {
		return s.Compact(u)
	}
	return v.String()
}
