package storage

import "github.com/papercomputeco/aff4meta/pkg/rdfvalue"

// Triple is one (subject, predicate, object) fact.
type Triple struct {
	Subject   rdfvalue.URN
	Predicate rdfvalue.URN
	Object    rdfvalue.Value
}

// Key identifies the fact for de-duplication.
func (t Triple) Key() string {
	return t.Subject.Key() + " " + t.Predicate.Key() + " " + t.Object.Key()
}

// Attribute is one predicate slot of a subject.
type Attribute struct {
	Predicate rdfvalue.URN
	Values    []rdfvalue.Value
}
