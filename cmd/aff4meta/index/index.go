// Package indexcmder provides the index commands, which manage the SQLite
// metadata index of a volume.
package indexcmder

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/config"
	"github.com/papercomputeco/aff4meta/pkg/storage/sqlite"
	"github.com/papercomputeco/aff4meta/pkg/turtle"
)

const indexLongDesc string = `Manage the metadata index of the selected volume.

An index is a SQLite database built once from a volume's information.turtle
and answering queries afterwards, so large volumes need not be parsed on
every run. Indexes live in index.cache_dir, AFF4_INDEX_DIR,
$XDG_CACHE_HOME/aff4/index or .aff4/index, in that order.

Subcommands:
  aff4meta index build     Build the index unless it exists
  aff4meta index drop      Delete the index`

const indexShortDesc string = "Manage volume metadata indexes"

func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
	}

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newDropCmd())

	return cmd
}

type indexCommander struct {
	flags   session.Flags
	rebuild bool
}

func newBuildCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index of the volume",
		Long: `Build the index of the volume.

An index that already exists is reused; pass --rebuild to drop it first.
When the converter fails the command reports the cause and leaves no
partial database behind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runBuild(cmd)
		},
	}

	cmder.flags.AddFlags(cmd)
	cmd.Flags().BoolVar(&cmder.rebuild, "rebuild", false, "Drop an existing index before building")

	return cmd
}

func newDropCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the index of the volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runDrop(cmd)
		},
	}

	cmder.flags.AddFlags(cmd)

	return cmd
}

// open starts a session with indexing forced on or off.
func (c *indexCommander) open(cmd *cobra.Command, indexed bool) (*session.Session, error) {
	if err := cmd.Flags().Set(config.Flags[config.FlagIndex].Name, fmt.Sprint(indexed)); err != nil {
		return nil, err
	}
	return session.Open(cmd.Context(), cmd, &c.flags)
}

func (c *indexCommander) runBuild(cmd *cobra.Command) (err error) {
	if c.rebuild {
		if err := c.runDrop(cmd); err != nil {
			return err
		}
	}

	s, err := c.open(cmd, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	w := cmd.OutOrStdout()
	if !s.Overlay.Indexed(s.Volume.URN()) {
		if !s.Volume.ContainsMember(turtle.InformationMember) {
			fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Volume has no metadata to index."))
			return nil
		}
		return errors.New("index could not be built; metadata was loaded in memory instead (see the log for the cause)")
	}

	dir, err := s.IndexDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s Indexed %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(s.Volume.URN().String()))
	fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(sqlite.CachePath(dir, s.Volume.URN())))
	return nil
}

func (c *indexCommander) runDrop(cmd *cobra.Command) (err error) {
	s, err := c.open(cmd, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	dir, err := s.IndexDir()
	if err != nil {
		return err
	}
	path := sqlite.CachePath(dir, s.Volume.URN())

	w := cmd.OutOrStdout()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No index to drop."))
		return nil
	}
	if err := sqlite.Remove(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s Dropped %s\n", cliui.SuccessMark, cliui.DimStyle.Render(path))
	return nil
}
