package fd

// Constraint propagation for the finite-domain solver.
//
// Propagation narrows variable domains by removing values that cannot
// participate in any solution of a constraint. Propagators:
//   - Read domains and cells through the Solver for a given SolverState
//   - Write by returning a new SolverState (copy-on-write)
//   - Report inconsistency with an error wrapping ErrContradiction
//
// The scheduler only re-invokes a propagator when an event it declared
// interest in occurs on one of its variables.

import (
	"fmt"
	"strings"
)

// PropagationConstraint extends ModelConstraint with active domain pruning.
//
// Propagate must be idempotent with respect to its own changes: calling it
// again on the returned state must not prune further. Stateless propagators
// are safe to share between solvers; stateful ones keep their state in
// trailed cells.
type PropagationConstraint interface {
	ModelConstraint

	// Propagate applies the constraint's filtering algorithm.
	// Takes current solver and state, returns new state with pruned domains.
	// Returns an error wrapping ErrContradiction if a domain is wiped out.
	Propagate(solver *Solver, state *SolverState) (*SolverState, error)
}

// Propagator is a PropagationConstraint that tells the scheduler when and how
// eagerly it wants to run.
type Propagator interface {
	PropagationConstraint

	// Priority is the cost class used to order the queue.
	Priority() Priority

	// PropagationConditions returns the events on the variable at scope
	// position pos that should re-invoke the propagator.
	PropagationConditions(pos int) EventMask

	// IsEntailed classifies the constraint against the current domains.
	IsEntailed(solver *Solver, state *SolverState) Entailment
}

// coarsePropagator schedules a plain PropagationConstraint on every event.
type coarsePropagator struct {
	PropagationConstraint
}

func (coarsePropagator) Priority() Priority                  { return PriorityLinear }
func (coarsePropagator) PropagationConditions(int) EventMask { return EventAll }
func (coarsePropagator) IsEntailed(*Solver, *SolverState) Entailment {
	return Undetermined
}

// AllDifferent ensures all variables take distinct values.
//
// Filtering is forward checking plus a pigeonhole test: a fixed variable's
// value is removed from every other domain, and the constraint fails when
// fewer distinct values remain than variables.
type AllDifferent struct {
	variables []*FDVariable
}

// NewAllDifferent creates an AllDifferent constraint over the given variables.
func NewAllDifferent(variables []*FDVariable) (*AllDifferent, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("%w: AllDifferent requires at least one variable", ErrInvalidConfiguration)
	}
	for i, v := range variables {
		if v == nil {
			return nil, fmt.Errorf("%w: AllDifferent variable %d is nil", ErrInvalidConfiguration, i)
		}
	}
	vars := make([]*FDVariable, len(variables))
	copy(vars, variables)
	return &AllDifferent{variables: vars}, nil
}

// Variables implements ModelConstraint.
func (c *AllDifferent) Variables() []*FDVariable { return c.variables }

// Type implements ModelConstraint.
func (c *AllDifferent) Type() string { return "AllDifferent" }

// String implements ModelConstraint.
func (c *AllDifferent) String() string {
	names := make([]string, len(c.variables))
	for i, v := range c.variables {
		names[i] = v.Name()
	}
	return fmt.Sprintf("AllDifferent(%s)", strings.Join(names, ", "))
}

// Priority implements Propagator.
func (c *AllDifferent) Priority() Priority { return PriorityLinear }

// PropagationConditions implements Propagator.
func (c *AllDifferent) PropagationConditions(int) EventMask { return EventInstantiate }

// Propagate implements PropagationConstraint.
func (c *AllDifferent) Propagate(solver *Solver, state *SolverState) (*SolverState, error) {
	current := state
	done := make([]bool, len(c.variables))
	for changed := true; changed; {
		changed = false
		for i, v := range c.variables {
			if done[i] {
				continue
			}
			d := solver.GetDomain(current, v.ID())
			if !d.IsSingleton() {
				continue
			}
			done[i] = true
			val := d.SingletonValue()
			for j, w := range c.variables {
				if j == i {
					continue
				}
				wd := solver.GetDomain(current, w.ID())
				if !wd.Has(val) {
					continue
				}
				next, err := solver.SetDomain(current, w.ID(), wd.Remove(val))
				if err != nil {
					return nil, err
				}
				current = next
				changed = true
			}
		}
	}

	seen := make(map[int]struct{})
	for _, v := range c.variables {
		for val := range solver.GetDomain(current, v.ID()).Values() {
			seen[val] = struct{}{}
		}
	}
	if len(seen) < len(c.variables) {
		return nil, fmt.Errorf("%w: %s has %d values for %d variables", ErrContradiction, c.Type(), len(seen), len(c.variables))
	}
	return current, nil
}

// IsEntailed implements Propagator.
func (c *AllDifferent) IsEntailed(solver *Solver, state *SolverState) Entailment {
	fixed := make(map[int]struct{}, len(c.variables))
	all := true
	for _, v := range c.variables {
		d := solver.GetDomain(state, v.ID())
		if !d.IsSingleton() {
			all = false
			continue
		}
		val := d.SingletonValue()
		if _, dup := fixed[val]; dup {
			return Violated
		}
		fixed[val] = struct{}{}
	}
	if all {
		return Satisfied
	}
	return Undetermined
}
