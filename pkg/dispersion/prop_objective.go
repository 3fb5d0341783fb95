package dispersion

import (
	"fmt"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// ObjectiveDistance enforces dist[F1][F2] >= max(minDist.Min(), dlb+1).
//
// minDist is the objective variable maximised by the engine. Raising its
// lower bound (the engine's incumbent cut) strengthens every pair at once;
// in return each pair caps minDist from above by the best distance it can
// still achieve.
type ObjectiveDistance struct {
	pair
	minDist *fd.FDVariable
}

// NewObjectiveDistance creates the propagator for facilities f1 and f2.
func NewObjectiveDistance(f1, f2, minDist *fd.FDVariable, m *DistanceMatrix, dlb int) (*ObjectiveDistance, error) {
	p, err := newPair(f1, f2, m, dlb)
	if err != nil {
		return nil, err
	}
	if minDist == nil || minDist == f1 || minDist == f2 {
		return nil, fmt.Errorf("%w: objective variable must be distinct from the facilities", fd.ErrInvalidConfiguration)
	}
	return &ObjectiveDistance{pair: p, minDist: minDist}, nil
}

// Variables implements fd.ModelConstraint.
func (c *ObjectiveDistance) Variables() []*fd.FDVariable {
	return []*fd.FDVariable{c.f1, c.f2, c.minDist}
}

// Type implements fd.ModelConstraint.
func (c *ObjectiveDistance) Type() string { return "ObjectiveDistance" }

func (c *ObjectiveDistance) String() string {
	return c.describe(c.Type(), ", "+c.minDist.Name())
}

// Priority implements fd.Propagator.
func (c *ObjectiveDistance) Priority() fd.Priority { return fd.PriorityTernary }

// PropagationConditions implements fd.Propagator. Only bound changes of the
// objective matter: its lower bound is the threshold.
func (c *ObjectiveDistance) PropagationConditions(pos int) fd.EventMask {
	if pos <= 1 {
		return fd.EventRemove | fd.EventBound | fd.EventInstantiate
	}
	return fd.EventBound | fd.EventInstantiate
}

// Threshold returns the distance the pair must reach in st.
func (c *ObjectiveDistance) Threshold(s *fd.Solver, st *fd.SolverState) int {
	return max(s.GetDomain(st, c.minDist.ID()).Min(), c.base())
}

// Propagate implements fd.PropagationConstraint.
func (c *ObjectiveDistance) Propagate(s *fd.Solver, st *fd.SolverState) (*fd.SolverState, error) {
	for {
		next, changed, err := c.revise(s, st, c.Threshold(s, st))
		if err != nil {
			return nil, err
		}
		st = next

		obj := s.GetDomain(st, c.minDist.ID())
		if ub := c.maxDistance(s, st); ub < obj.Max() {
			if st, err = s.SetDomain(st, c.minDist.ID(), obj.RemoveAbove(ub)); err != nil {
				return nil, err
			}
		}
		if !changed {
			return st, nil
		}
	}
}

// IsEntailed implements fd.Propagator.
func (c *ObjectiveDistance) IsEntailed(s *fd.Solver, st *fd.SolverState) fd.Entailment {
	return c.entailment(s, st, c.Threshold(s, st))
}
