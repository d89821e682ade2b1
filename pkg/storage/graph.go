package storage

import "fmt"

// Graph names a writable graph.
type Graph int

const (
	// Persistent facts are serialized into container metadata.
	Persistent Graph = iota

	// Transient facts live for the lifetime of the process only.
	Transient
)

func (g Graph) String() string {
	switch g {
	case Persistent:
		return "persistent"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("graph(%d)", int(g))
	}
}

// Selector returns the read selector for exactly this graph.
func (g Graph) Selector() Selector {
	if g == Transient {
		return SelectTransient
	}
	return SelectPersistent
}

// Selector picks the graphs a read consults. Only reads accept Any.
type Selector int

const (
	SelectPersistent Selector = iota
	SelectTransient
	SelectAny
)

func (s Selector) String() string {
	switch s {
	case SelectPersistent:
		return "persistent"
	case SelectTransient:
		return "transient"
	case SelectAny:
		return "any"
	default:
		return fmt.Sprintf("selector(%d)", int(s))
	}
}

// Includes reports whether the selector reads g.
func (s Selector) Includes(g Graph) bool {
	switch s {
	case SelectAny:
		return true
	case SelectTransient:
		return g == Transient
	default:
		return g == Persistent
	}
}

// ParseSelector maps "persistent", "transient" and "any" to a selector.
func ParseSelector(s string) (Selector, error) {
	switch s {
	case "", "persistent":
		return SelectPersistent, nil
	case "transient":
		return SelectTransient, nil
	case "any":
		return SelectAny, nil
	default:
		return 0, fmt.Errorf("unknown graph %q", s)
	}
}
