package querycmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/cliui"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

type attributeDoc struct {
	Predicate string     `yaml:"predicate"`
	Values    []valueDoc `yaml:"values"`
}

type subjectDoc struct {
	Subject    string         `yaml:"subject"`
	Image      bool           `yaml:"image_stream"`
	Attributes []attributeDoc `yaml:"attributes"`
}

func newDescribeCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "describe <subject>",
		Short: "Print every attribute of a subject",
		Long: `Print every attribute of a subject.

On a terminal the attributes render as a table; otherwise plain
markdown is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *session.Session, sel storage.Selector) error {
				doc := o.describe(s, sel, s.Expand(args[0]))
				if o.output == outputYAML {
					return o.emit(cmd.OutOrStdout(), doc, nil)
				}
				return writeMarkdown(cmd.OutOrStdout(), doc.markdown())
			})
		},
	}
	o.addFlags(cmd)
	return cmd
}

func (o *options) describe(s *session.Session, sel storage.Selector, subject rdfvalue.URN) subjectDoc {
	doc := subjectDoc{
		Subject:    subject.String(),
		Image:      s.Resolver.IsImageStream(subject),
		Attributes: []attributeDoc{},
	}
	for attr := range s.Resolver.QueryPredicatesBySubject(sel, subject) {
		a := attributeDoc{Predicate: s.Compact(attr.Predicate)}
		for _, v := range attr.Values {
			a.Values = append(a.Values, o.describeValue(s, v))
		}
		doc.Attributes = append(doc.Attributes, a)
	}
	return doc
}

func (d subjectDoc) markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Subject)
	if d.Image {
		b.WriteString("Image stream.\n\n")
	}
	if len(d.Attributes) == 0 {
		b.WriteString("_No attributes._\n")
		return b.String()
	}

	b.WriteString("| Predicate | Value |\n|---|---|\n")
	for _, a := range d.Attributes {
		for i, v := range a.Values {
			name := a.Predicate
			if i > 0 {
				name = ""
			}
			fmt.Fprintf(&b, "| %s | %s |\n", escapeCell(name), escapeCell(v.text()))
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeMarkdown(w io.Writer, md string) error {
	if cliui.IsTerminal(w) {
		rendered, err := cliui.RenderMarkdown(md)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(w, md)
	return err
}
