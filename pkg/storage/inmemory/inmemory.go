// Package inmemory provides the in-memory fact store driver.
package inmemory

import (
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
	"github.com/papercomputeco/aff4meta/pkg/storage"
)

// slot holds the values of one attribute in insertion order.
type slot struct {
	predicate rdfvalue.URN
	values    []rdfvalue.Value
}

// facts is the ordered attribute mapping of one subject.
type facts struct {
	subject rdfvalue.URN
	order   []string
	slots   map[string]*slot
}

func (f *facts) slot(attribute rdfvalue.URN) *slot {
	key := attribute.String()
	s, ok := f.slots[key]
	if !ok {
		s = &slot{predicate: attribute}
		f.slots[key] = s
		f.order = append(f.order, key)
	}
	return s
}

// graph is an ordered mapping of subject to facts.
type graph struct {
	order    []string
	subjects map[string]*facts
}

func newGraph() *graph {
	return &graph{subjects: make(map[string]*facts)}
}

func (g *graph) facts(subject rdfvalue.URN) *facts {
	key := subject.String()
	f, ok := g.subjects[key]
	if !ok {
		f = &facts{subject: subject, slots: make(map[string]*slot)}
		g.subjects[key] = f
		g.order = append(g.order, key)
	}
	return f
}

func (g *graph) lookup(subject, attribute rdfvalue.URN) *slot {
	f, ok := g.subjects[subject.String()]
	if !ok {
		return nil
	}
	return f.slots[attribute.String()]
}

func (g *graph) delete(subject rdfvalue.URN) {
	key := subject.String()
	if _, ok := g.subjects[key]; !ok {
		return
	}
	delete(g.subjects, key)
	if i := slices.Index(g.order, key); i >= 0 {
		g.order = slices.Delete(g.order, i, i+1)
	}
}

// each walks subjects in insertion order. Subjects added by the consumer
// during the walk are not visited.
func (g *graph) each(yield func(*facts) bool) bool {
	for _, key := range g.order {
		f, ok := g.subjects[key]
		if !ok {
			continue
		}
		if !yield(f) {
			return false
		}
	}
	return true
}

// Driver implements storage.Driver with two ordered in-memory graphs.
type Driver struct {
	persistent *graph
	transient  *graph
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		persistent: newGraph(),
		transient:  newGraph(),
	}
}

func (d *Driver) graph(g storage.Graph) *graph {
	if g == storage.Transient {
		return d.transient
	}
	return d.persistent
}

// graphs lists the graphs read by sel, persistent first.
func (d *Driver) graphs(sel storage.Selector) []*graph {
	switch sel {
	case storage.SelectTransient:
		return []*graph{d.transient}
	case storage.SelectAny:
		return []*graph{d.persistent, d.transient}
	default:
		return []*graph{d.persistent}
	}
}

func checkWrite(op string, subject, attribute rdfvalue.URN, value rdfvalue.Value) error {
	switch {
	case value == nil:
		return &storage.ContractError{Op: op, Subject: subject.String(), Attribute: attribute.String(), Reason: "value must be a typed value"}
	case subject.IsZero():
		return &storage.ContractError{Op: op, Attribute: attribute.String(), Reason: "empty subject"}
	case attribute.IsZero():
		return &storage.ContractError{Op: op, Subject: subject.String(), Reason: "empty attribute"}
	}
	return nil
}

// Add appends value to the slot. Equal values are stored once; a second
// distinct value extends the slot in insertion order.
func (d *Driver) Add(g storage.Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error {
	if err := checkWrite("add", subject, attribute, value); err != nil {
		return err
	}

	s := d.graph(g).facts(subject).slot(attribute)
	if rdfvalue.Contains(s.values, value) {
		return nil
	}
	s.values = append(s.values, value)
	return nil
}

// Set replaces the slot with value. The slot keeps its position.
func (d *Driver) Set(g storage.Graph, subject, attribute rdfvalue.URN, value rdfvalue.Value) error {
	if err := checkWrite("set", subject, attribute, value); err != nil {
		return err
	}

	d.graph(g).facts(subject).slot(attribute).values = []rdfvalue.Value{value}
	return nil
}

// Get returns a copy of the slot. With SelectAny the transient values come
// first, followed by persistent values not already present.
func (d *Driver) Get(sel storage.Selector, subject, attribute rdfvalue.URN) []rdfvalue.Value {
	var order []*graph
	switch sel {
	case storage.SelectAny:
		order = []*graph{d.transient, d.persistent}
	default:
		order = d.graphs(sel)
	}

	var out []rdfvalue.Value
	for _, g := range order {
		s := g.lookup(subject, attribute)
		if s == nil {
			continue
		}
		for _, v := range s.values {
			if !rdfvalue.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// QuerySubject yields matching subjects, persistent graph first.
func (d *Driver) QuerySubject(sel storage.Selector, re *regexp.Regexp) iter.Seq[rdfvalue.URN] {
	return func(yield func(rdfvalue.URN) bool) {
		for _, g := range d.graphs(sel) {
			ok := g.each(func(f *facts) bool {
				if !re.MatchString(f.subject.String()) {
					return true
				}
				return yield(f.subject)
			})
			if !ok {
				return
			}
		}
	}
}

// QueryPredicate yields one triple per value stored under predicate.
func (d *Driver) QueryPredicate(sel storage.Selector, predicate rdfvalue.URN) iter.Seq[storage.Triple] {
	key := predicate.String()
	return func(yield func(storage.Triple) bool) {
		for _, g := range d.graphs(sel) {
			ok := g.each(func(f *facts) bool {
				s, ok := f.slots[key]
				if !ok {
					return true
				}
				for _, v := range s.values {
					if !yield(storage.Triple{Subject: f.subject, Predicate: s.predicate, Object: v}) {
						return false
					}
				}
				return true
			})
			if !ok {
				return
			}
		}
	}
}

// QueryPredicateObject yields subjects whose predicate slot contains value.
func (d *Driver) QueryPredicateObject(sel storage.Selector, predicate rdfvalue.URN, value rdfvalue.Value) iter.Seq[rdfvalue.URN] {
	key := predicate.String()
	return func(yield func(rdfvalue.URN) bool) {
		for _, g := range d.graphs(sel) {
			ok := g.each(func(f *facts) bool {
				s, ok := f.slots[key]
				if !ok || !rdfvalue.Contains(s.values, value) {
					return true
				}
				return yield(f.subject)
			})
			if !ok {
				return
			}
		}
	}
}

// QuerySubjectPredicate yields the values of one slot, persistent first.
func (d *Driver) QuerySubjectPredicate(sel storage.Selector, subject, predicate rdfvalue.URN) iter.Seq[rdfvalue.Value] {
	return func(yield func(rdfvalue.Value) bool) {
		for _, g := range d.graphs(sel) {
			s := g.lookup(subject, predicate)
			if s == nil {
				continue
			}
			for _, v := range slices.Clone(s.values) {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// SelectSubjectsByPrefix yields subjects starting with prefix.
func (d *Driver) SelectSubjectsByPrefix(sel storage.Selector, prefix string) iter.Seq[rdfvalue.URN] {
	return func(yield func(rdfvalue.URN) bool) {
		for _, g := range d.graphs(sel) {
			ok := g.each(func(f *facts) bool {
				if !strings.HasPrefix(f.subject.String(), prefix) {
					return true
				}
				return yield(f.subject)
			})
			if !ok {
				return
			}
		}
	}
}

// QueryPredicatesBySubject yields the subject's attributes in insertion
// order. Values are copies.
func (d *Driver) QueryPredicatesBySubject(sel storage.Selector, subject rdfvalue.URN) iter.Seq[storage.Attribute] {
	key := subject.String()
	return func(yield func(storage.Attribute) bool) {
		for _, g := range d.graphs(sel) {
			f, ok := g.subjects[key]
			if !ok {
				continue
			}
			for _, attr := range f.order {
				s := f.slots[attr]
				if !yield(storage.Attribute{Predicate: s.predicate, Values: slices.Clone(s.values)}) {
					return
				}
			}
		}
	}
}

// DeleteSubject removes the subject from the persistent graph only.
func (d *Driver) DeleteSubject(subject rdfvalue.URN) {
	d.persistent.delete(subject)
}

// Count returns the number of subjects in g.
func (d *Driver) Count(g storage.Graph) int {
	return len(d.graph(g).subjects)
}

// Reset drops every fact in g.
func (d *Driver) Reset(g storage.Graph) {
	if g == storage.Transient {
		d.transient = newGraph()
		return
	}
	d.persistent = newGraph()
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
