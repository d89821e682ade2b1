// Package aff4metacmder
package aff4metacmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/config"
	dumpcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/dump"
	editcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/edit"
	indexcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/index"
	opencmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/open"
	querycmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/query"
	statcmder "github.com/papercomputeco/aff4meta/cmd/aff4meta/stat"
	versioncmder "github.com/papercomputeco/aff4meta/cmd/version"
	"github.com/papercomputeco/aff4meta/pkg/cliui"
)

const aff4metaLongDesc string = `aff4meta reads and appends the metadata of AFF4 volumes.

Select a volume, then inspect or extend its information.turtle:
  aff4meta open <dir>                   Select the working volume
  aff4meta dump                         Print the metadata as Turtle
  aff4meta query describe <subject>     Show every attribute of a subject
  aff4meta set <s> <p> <value>          Replace an attribute and append
  aff4meta index build                  Index large volumes in SQLite`

const aff4metaShortDesc string = "aff4meta - AFF4 metadata resolver"

func NewAFF4MetaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "aff4meta",
		Short:         aff4metaShortDesc,
		Long:          aff4metaLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !cliui.IsTerminal(cmd.OutOrStdout()) {
				cliui.PlainOutput(cmd.OutOrStdout())
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml and the selected volume (default: ./.aff4 or ~/.aff4)")
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	// Add subcommands
	cmd.AddCommand(opencmder.NewOpenCmd())
	cmd.AddCommand(dumpcmder.NewDumpCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(editcmder.NewSetCmd())
	cmd.AddCommand(editcmder.NewAddCmd())
	cmd.AddCommand(statcmder.NewStatCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
