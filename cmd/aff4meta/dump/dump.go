// Package dumpcmder provides the dump command, which prints a volume's
// metadata as Turtle.
package dumpcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

const dumpLongDesc string = `Print the metadata of the selected volume as Turtle.

By default the resolver's persistent graph is serialized the way it would
be written back to the volume: container bookkeeping is left out and
volatile attributes only appear with --verbose.

With --stored the information.turtle member is printed exactly as it is
stored. With --objects the object cache contents follow the Turtle.

Examples:
  aff4meta dump
  aff4meta dump --volume ./evidence --verbose
  aff4meta dump --stored`

const dumpShortDesc string = "Print volume metadata as Turtle"

type dumpCommander struct {
	flags   session.Flags
	stored  bool
	objects bool
}

func NewDumpCmd() *cobra.Command {
	cmder := &dumpCommander{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: dumpShortDesc,
		Long:  dumpLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.flags.AddFlags(cmd)
	cmd.Flags().BoolVar(&cmder.stored, "stored", false, "Print the stored information.turtle member")
	cmd.Flags().BoolVar(&cmder.objects, "objects", false, "Also print the object cache")

	return cmd
}

func (c *dumpCommander) run(cmd *cobra.Command) (err error) {
	s, err := session.Open(cmd.Context(), cmd, &c.flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	w := cmd.OutOrStdout()
	if c.stored {
		return printStored(w, s.Volume)
	}
	if c.objects {
		return s.Resolver.Dump(w, s.Config.Dump.Verbose)
	}

	text, err := s.Resolver.Serialize(s.Config.Dump.Verbose)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

func printStored(w io.Writer, vol volume.Container) error {
	if !vol.ContainsMember(turtle.InformationMember) {
		return fmt.Errorf("volume %s has no %s", vol.URN(), turtle.InformationMember)
	}
	data, err := volume.ReadAll(vol, turtle.InformationMember)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
