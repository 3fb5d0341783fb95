package dispersion

import (
	"fmt"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// RatchetDistance enforces dist[F1][F2] >= T where T follows a shared Ratchet.
//
// The scope is only {F1, F2}; no objective variable is involved. T lives in a
// trailed cell initialised to max(dlb+1, ratchet) and raised on each
// invocation when the ratchet has moved, so along one root-to-node path it
// never decreases, and backtracking above a raise restores the smaller value
// recorded for that ancestor.
//
// The cell is only refreshed when the propagator runs: a raise of the ratchet
// does not by itself wake anything, so a branch may briefly keep filtering
// against a stale threshold until one of its facility domains changes.
type RatchetDistance struct {
	pair
	ratchet *Ratchet
	cell    *fd.Cell
}

// NewRatchetDistance creates the propagator for facilities f1 and f2 and
// registers its threshold cell with model.
func NewRatchetDistance(model *fd.Model, f1, f2 *fd.FDVariable, r *Ratchet, m *DistanceMatrix, dlb int) (*RatchetDistance, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", fd.ErrInvalidConfiguration)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: nil ratchet", fd.ErrInvalidConfiguration)
	}
	p, err := newPair(f1, f2, m, dlb)
	if err != nil {
		return nil, err
	}
	return &RatchetDistance{
		pair:    p,
		ratchet: r,
		cell:    model.NewCell(max(p.base(), r.Get())),
	}, nil
}

// Variables implements fd.ModelConstraint.
func (c *RatchetDistance) Variables() []*fd.FDVariable {
	return []*fd.FDVariable{c.f1, c.f2}
}

// Type implements fd.ModelConstraint.
func (c *RatchetDistance) Type() string { return "RatchetDistance" }

func (c *RatchetDistance) String() string { return c.describe(c.Type(), "") }

// Priority implements fd.Propagator.
func (c *RatchetDistance) Priority() fd.Priority { return fd.PriorityBinary }

// PropagationConditions implements fd.Propagator.
func (c *RatchetDistance) PropagationConditions(int) fd.EventMask {
	return fd.EventRemove | fd.EventBound | fd.EventInstantiate
}

// Threshold returns the trailed threshold in st.
func (c *RatchetDistance) Threshold(s *fd.Solver, st *fd.SolverState) int {
	return s.CellValue(st, c.cell)
}

// Propagate implements fd.PropagationConstraint.
func (c *RatchetDistance) Propagate(s *fd.Solver, st *fd.SolverState) (*fd.SolverState, error) {
	for {
		if desired := max(c.base(), c.ratchet.Get()); desired > s.CellValue(st, c.cell) {
			st = s.SetCell(st, c.cell, desired)
		}
		next, changed, err := c.revise(s, st, s.CellValue(st, c.cell))
		if err != nil {
			return nil, err
		}
		st = next
		if !changed {
			return st, nil
		}
	}
}

// IsEntailed implements fd.Propagator.
func (c *RatchetDistance) IsEntailed(s *fd.Solver, st *fd.SolverState) fd.Entailment {
	return c.entailment(s, st, c.Threshold(s, st))
}
