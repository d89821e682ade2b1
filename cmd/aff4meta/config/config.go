// Package configcmder provides the config command for managing persistent
// aff4meta configuration stored in the .aff4/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/config"
)

const configLongDesc string = `Manage persistent aff4meta configuration.

Configuration is stored as config.toml in the .aff4/ directory and provides
default values for command flags. CLI flags and AFF4_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  resolver.lexicon, cache.max_items,
  index.enabled, index.converter, index.command, index.cache_dir,
  dump.verbose, volume.compression,
  log.debug, log.json, log.pretty

Use subcommands to get, set, or list configuration values:
  aff4meta config set <key> <value>    Set a configuration value
  aff4meta config get <key>            Get a configuration value
  aff4meta config list                 List all configuration values

Examples:
  aff4meta config set index.enabled true
  aff4meta config set resolver.lexicon legacy
  aff4meta config get cache.max_items
  aff4meta config list`

const configShortDesc string = "Manage persistent aff4meta configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
