// Package querycmder provides the query commands over a volume's metadata.
package querycmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/storage"
	"github.com/papercomputeco/aff4meta/pkg/utils"
)

const queryLongDesc string = `Query the metadata of the selected volume.

Names may use the aff4:, rdf: and xsd: prefixes, for example aff4:size or
rdf:type. By default both the persistent and the transient graph answer;
use --graph to pick one.

Subcommands:
  aff4meta query subjects <regex>              Subjects matching a regex
  aff4meta query prefix <prefix>               Subjects starting with a prefix
  aff4meta query predicate <predicate>         Triples using a predicate
  aff4meta query object <predicate> <value>    Subjects holding a value
  aff4meta query get <subject> <predicate>     Values of one attribute
  aff4meta query describe <subject>            Every attribute of a subject

Examples:
  aff4meta query subjects 'aff4://.*'
  aff4meta query object rdf:type aff4:ImageStream --type urn
  aff4meta query describe aff4://image --output yaml`

const queryShortDesc string = "Query volume metadata"

const (
	outputText = "text"
	outputYAML = "yaml"

	previewLen = 96
)

// options are shared by every query subcommand.
type options struct {
	flags  session.Flags
	graph  string
	output string
	full   bool
}

func (o *options) addFlags(cmd *cobra.Command) {
	o.flags.AddFlags(cmd)
	cmd.Flags().StringVar(&o.graph, "graph", "any", "Graph to query (persistent, transient, any)")
	cmd.Flags().StringVarP(&o.output, "output", "o", outputText, "Output format (text, yaml)")
	cmd.Flags().BoolVar(&o.full, "full", false, "Do not shorten long values")
}

func (o *options) selector() (storage.Selector, error) {
	switch o.graph {
	case "any", "":
		return storage.SelectAny, nil
	case "persistent":
		return storage.SelectPersistent, nil
	case "transient":
		return storage.SelectTransient, nil
	default:
		return 0, fmt.Errorf("unknown graph %q (valid: persistent, transient, any)", o.graph)
	}
}

func (o *options) validate() error {
	if o.output != outputText && o.output != outputYAML {
		return fmt.Errorf("unknown output format %q (valid: text, yaml)", o.output)
	}
	_, err := o.selector()
	return err
}

func (o *options) preview(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if o.full {
		return s
	}
	return utils.Truncate(s, previewLen)
}

// withSession runs fn on a session opened for cmd and closes it after.
func (o *options) withSession(cmd *cobra.Command, fn func(*session.Session, storage.Selector) error) (err error) {
	if err := o.validate(); err != nil {
		return err
	}
	sel, _ := o.selector()

	s, err := session.Open(cmd.Context(), cmd, &o.flags)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(s, sel)
}

// emit writes rows as text lines or as one YAML document.
func (o *options) emit(w io.Writer, doc any, lines []string) error {
	if o.output == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: queryShortDesc,
		Long:  queryLongDesc,
	}

	cmd.AddCommand(newSubjectsCmd())
	cmd.AddCommand(newPrefixCmd())
	cmd.AddCommand(newPredicateCmd())
	cmd.AddCommand(newObjectCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDescribeCmd())

	return cmd
}
