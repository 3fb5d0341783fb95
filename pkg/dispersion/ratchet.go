package dispersion

import "sync/atomic"

// Ratchet holds the best objective bound found so far. It only ever rises.
//
// A Ratchet is not part of the solver's trailed state: a raise made at one
// leaf survives every later backtrack, so an improving solution found in one
// branch prunes all the others. Propagators that depend on it keep their own
// trailed copy (see RatchetDistance).
//
// The zero value holds 0 and is ready to use. A Ratchet is safe for
// concurrent use, so one instance can be shared by a portfolio of searches.
type Ratchet struct {
	v atomic.Int64
}

// Get returns the current value.
func (r *Ratchet) Get() int { return int(r.v.Load()) }

// RaiseTo raises the value to v if v is larger and reports whether this call
// raised it. Losing a race to a concurrent raise that already reached v or
// more is not an error; RaiseTo then reports false.
func (r *Ratchet) RaiseTo(v int) bool {
	target := int64(v)
	for {
		cur := r.v.Load()
		if cur >= target {
			return false
		}
		if r.v.CompareAndSwap(cur, target) {
			return true
		}
	}
}
