package storage

import (
	"fmt"

	"github.com/papercomputeco/aff4meta/pkg/cache"
)

// ErrContractViolation is the object cache sentinel, shared so callers test
// a single value for every misuse of the resolver.
var ErrContractViolation = cache.ErrContractViolation

// ContractError reports a write the store refuses.
type ContractError struct {
	Op        string
	Subject   string
	Attribute string
	Reason    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("storage %s %s %s: %s", e.Op, e.Subject, e.Attribute, e.Reason)
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}
