package resolver

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/aff4meta/pkg/cache"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// ErrContractViolation is returned, wrapped, for every misuse of the
// resolver or its cache.
var ErrContractViolation = cache.ErrContractViolation

// ErrCannotConstruct marks a URN no handler could build.
var ErrCannotConstruct = errors.New("no handler for object")

// CannotConstructError names the URN that could not be resolved to an
// object type.
type CannotConstructError struct {
	URN rdfvalue.URN
}

func (e *CannotConstructError) Error() string {
	return fmt.Sprintf("unable to create object %s", e.URN)
}

func (e *CannotConstructError) Unwrap() error {
	return ErrCannotConstruct
}
