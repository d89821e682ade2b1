package cache

import "errors"

// ErrContractViolation marks misuse of the cache: double registration,
// unbalanced Return, removing an absent object, or flushing while objects
// are pinned. Continuing after one would corrupt the cache invariants.
var ErrContractViolation = errors.New("contract violation")

// ContractError describes a contract violation on a single cache operation.
type ContractError struct {
	Op     string
	Key    string
	Reason string
}

func contractError(op, key, reason string) error {
	return &ContractError{Op: op, Key: key, Reason: reason}
}

func (e *ContractError) Error() string {
	if e.Key == "" {
		return "cache " + e.Op + ": " + e.Reason
	}
	return "cache " + e.Op + " " + e.Key + ": " + e.Reason
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}
