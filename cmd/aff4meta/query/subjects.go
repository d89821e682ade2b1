package querycmder

import (
	"iter"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aff4meta/cmd/aff4meta/session"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

func newSubjectsCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "subjects <regex>",
		Short: "List subjects matching a regular expression",
		Long: `List subjects matching a regular expression.

The expression is anchored at the start of the subject, so 'aff4://ab'
matches aff4://abc but not urn:aff4://ab.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *session.Session, sel storage.Selector) error {
				subjects, err := s.Resolver.QuerySubject(sel, args[0])
				if err != nil {
					return err
				}
				return o.emitSubjects(cmd, subjects)
			})
		},
	}
	o.addFlags(cmd)
	return cmd
}

func newPrefixCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "prefix <prefix>",
		Short: "List subjects starting with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *session.Session, sel storage.Selector) error {
				return o.emitSubjects(cmd, s.Resolver.SelectSubjectsByPrefix(sel, args[0]))
			})
		},
	}
	o.addFlags(cmd)
	return cmd
}

func newObjectCmd() *cobra.Command {
	o := &options{}
	var kind string
	cmd := &cobra.Command{
		Use:   "object <predicate> <value>",
		Short: "List subjects holding a value under a predicate",
		Long: `List subjects holding a value under a predicate.

Values compare by type as well as text: "512" as a string does not
match 512 as an xsd:long. Pick the type with --type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(s *session.Session, sel storage.Selector) error {
				value, err := s.ParseValue(kind, args[1])
				if err != nil {
					return err
				}
				return o.emitSubjects(cmd, s.Resolver.QueryPredicateObject(sel, s.Expand(args[0]), value))
			})
		},
	}
	o.addFlags(cmd)
	cmd.Flags().StringVarP(&kind, "type", "t", "urn", "Value type (string, urn, long, integer, boolean, datetime, sha512)")
	return cmd
}

func (o *options) emitSubjects(cmd *cobra.Command, subjects iter.Seq[rdfvalue.URN]) error {
	var (
		doc   = []string{}
		lines []string
	)
	for u := range subjects {
		doc = append(doc, u.String())
		lines = append(lines, u.String())
	}
	return o.emit(cmd.OutOrStdout(), doc, lines)
}
