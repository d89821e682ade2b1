// Package opencmder provides the open command, which selects the volume
// later commands work on.
package opencmder

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/dotdir"
	"github.com/papercomputeco/aff4meta/pkg/volume"
)

const openLongDesc string = `Select the volume later commands work on.

Opens the volume directory, creating an empty volume with a fresh URN when
the directory holds none, and records it in the .aff4/ directory. Commands
run without --volume then use this volume.

Run with no argument to show the selected volume, or with --clear to
forget it.

Examples:
  aff4meta open ./evidence
  aff4meta open
  aff4meta open --clear`

const openShortDesc string = "Select the working volume"

type openCommander struct {
	clear bool
}

func NewOpenCmd() *cobra.Command {
	cmder := &openCommander{}

	cmd := &cobra.Command{
		Use:   "open [dir]",
		Short: openShortDesc,
		Long:  openLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			w := cmd.OutOrStdout()
			switch {
			case cmder.clear:
				return cmder.runClear(w, configDir)
			case len(args) == 0:
				return cmder.runShow(w, configDir)
			default:
				return cmder.runOpen(w, args[0], configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&cmder.clear, "clear", false, "Forget the selected volume")

	return cmd
}

func (c *openCommander) runOpen(w io.Writer, dir, configDir string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	vol, err := volume.OpenDir(root)
	if err != nil {
		return err
	}

	current := &dotdir.CurrentVolume{
		Path:     root,
		URN:      vol.URN().String(),
		OpenedAt: time.Now().UTC(),
	}
	if err := dotdir.NewManager().SaveCurrentVolume(current, configDir); err != nil {
		return fmt.Errorf("saving selected volume: %w", err)
	}

	fmt.Fprintf(w, "  %s Opened %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(current.URN))
	fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(root))
	return nil
}

func (c *openCommander) runShow(w io.Writer, configDir string) error {
	current, err := dotdir.NewManager().LoadCurrentVolume(configDir)
	if err != nil {
		return err
	}
	if current == nil {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No volume selected."))
		return nil
	}

	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Volume:"), cliui.ValueStyle.Render(current.URN))
	fmt.Fprintf(w, "  %s   %s\n", cliui.KeyStyle.Render("Path:"), current.Path)
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Opened:"), current.OpenedAt.Local().Format(time.RFC1123))
	return nil
}

func (c *openCommander) runClear(w io.Writer, configDir string) error {
	if err := dotdir.NewManager().ClearCurrentVolume(configDir); err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s Cleared the selected volume\n", cliui.SuccessMark)
	return nil
}
