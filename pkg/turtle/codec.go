package turtle

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/knakk/rdf"
)

// Prefix binds a prefix name to a namespace IRI.
type Prefix struct {
	Name string
	IRI  string
}

// Directive renders the prefix as a Turtle directive line.
func (p Prefix) Directive() string {
	return fmt.Sprintf("@prefix %s: <%s> .", p.Name, p.IRI)
}

// Encode writes a Turtle document: one directive line per prefix followed by
// the triples. Triple terms are always written as full IRIs, so the body
// never depends on the directives and no prefix lines appear past the
// header.
func Encode(w io.Writer, prefixes []Prefix, triples iter.Seq[rdf.Triple]) error {
	for _, p := range prefixes {
		if _, err := io.WriteString(w, p.Directive()+"\n"); err != nil {
			return fmt.Errorf("writing directives: %w", err)
		}
	}
	if len(prefixes) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("writing directives: %w", err)
		}
	}

	enc := rdf.NewTripleEncoder(w, rdf.Turtle)
	enc.GenerateNamespaces = false
	for t := range triples {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encoding triple %s: %w", t.Serialize(rdf.NTriples), err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding triples: %w", err)
	}
	return nil
}

// EncodeString is Encode into a string.
func EncodeString(prefixes []Prefix, triples iter.Seq[rdf.Triple]) (string, error) {
	var b strings.Builder
	if err := Encode(&b, prefixes, triples); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Decode yields the triples of a Turtle document. Iteration stops at the
// first syntax error, which is yielded with a zero triple.
func Decode(r io.Reader) iter.Seq2[rdf.Triple, error] {
	return decode(r, rdf.Turtle)
}

// DecodeNTriples is Decode for N-Triples input.
func DecodeNTriples(r io.Reader) iter.Seq2[rdf.Triple, error] {
	return decode(r, rdf.NTriples)
}

func decode(r io.Reader, format rdf.Format) iter.Seq2[rdf.Triple, error] {
	return func(yield func(rdf.Triple, error) bool) {
		dec := rdf.NewTripleDecoder(r, format)
		for {
			t, err := dec.Decode()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(rdf.Triple{}, fmt.Errorf("parsing turtle: %w", err))
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}
