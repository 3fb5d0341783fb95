package fd

import (
	"errors"
	"fmt"
)

// ErrContradiction is the root of every failure that the search recovers from
// by backtracking. Propagators and decisions report contradictions by returning
// an error that wraps it; any other error aborts the search.
var ErrContradiction = errors.New("contradiction")

// ErrDomainExhausted indicates that a domain operation left a variable with no
// remaining values. It wraps ErrContradiction.
var ErrDomainExhausted = fmt.Errorf("%w: domain exhausted", ErrContradiction)

// ErrInvalidConfiguration indicates malformed model inputs detected while the
// model is being built. It is never retried.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrSearchLimitReached indicates a search terminated due to a configured search limit
// (e.g., node limit). The returned incumbent is valid but optimality may not be proven.
var ErrSearchLimitReached = errors.New("search limit reached")

// IsContradiction reports whether err is a search-level failure.
func IsContradiction(err error) bool {
	return errors.Is(err, ErrContradiction)
}
