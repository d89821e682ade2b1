package querycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

// valueDoc is the YAML form of one value.
type valueDoc struct {
	Value    string `yaml:"value"`
	Datatype string `yaml:"datatype,omitempty"`
}

type tripleDoc struct {
	Subject string `yaml:"subject"`
	valueDoc `yaml:",inline"`
}

func (o *options) describeValue(s *session.Session, v rdfvalue.Value) valueDoc {
	doc := valueDoc{Value: o.preview(v.String())}
	if dt := v.Datatype(); dt != "" {
		doc.Datatype = s.Compact(rdfvalue.NewURN(dt))
	}
	return doc
}

func (d valueDoc) text() string {
	if d.Datatype == "" {
		return "<" + d.Value + ">"
	}
	return fmt.Sprintf("%q^^%s", d.Value, d.Datatype)
}

func newPredicateCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "predicate <predicate>",
		Short: "List triples using a predicate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *session.Session, sel storage.Selector) error {
				var (
					doc   = []tripleDoc{}
					lines []string
				)
				for t := range s.Resolver.QueryPredicate(sel, s.Expand(args[0])) {
					d := tripleDoc{Subject: t.Subject.String(), valueDoc: o.describeValue(s, t.Object)}
					doc = append(doc, d)
					lines = append(lines, fmt.Sprintf("<%s> %s", d.Subject, d.text()))
				}
				return o.emit(cmd.OutOrStdout(), doc, lines)
			})
		},
	}
	o.addFlags(cmd)
	return cmd
}

func newGetCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "get <subject> <predicate>",
		Short: "Print the values of one attribute",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *session.Session, sel storage.Selector) error {
				var (
					doc   = []valueDoc{}
					lines []string
				)
				for v := range s.Resolver.QuerySubjectPredicate(sel, s.Expand(args[0]), s.Expand(args[1])) {
					d := o.describeValue(s, v)
					doc = append(doc, d)
					lines = append(lines, d.text())
				}
				return o.emit(cmd.OutOrStdout(), doc, lines)
			})
		},
	}
	o.addFlags(cmd)
	return cmd
}
