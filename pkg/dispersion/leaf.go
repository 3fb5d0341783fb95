package dispersion

import (
	"fmt"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// LeafBranchAndBound decorates a base strategy with leaf-time bounding.
//
// While the base strategy proposes decisions they are passed through
// unchanged. Once it has none left and every facility is fixed, the
// realized objective d is computed and the ratchet is raised to d+1, so that
// from then on only strictly better placements survive propagation. The
// strategy then reports no decision, which makes the node a solution.
type LeafBranchAndBound struct {
	base    fd.Strategy
	vars    []*fd.FDVariable
	ratchet *Ratchet
	matrix  *DistanceMatrix

	// OnLeaf, when set, is called at every evaluated leaf with the realized
	// objective and whether it raised the ratchet.
	OnLeaf func(objective int, raised bool)
}

// NewLeafBranchAndBound wraps base.
func NewLeafBranchAndBound(vars []*fd.FDVariable, r *Ratchet, m *DistanceMatrix, base fd.Strategy) (*LeafBranchAndBound, error) {
	if r == nil || m == nil || base == nil {
		return nil, fmt.Errorf("%w: leaf strategy needs a ratchet, a matrix and a base strategy", fd.ErrInvalidConfiguration)
	}
	return &LeafBranchAndBound{base: base, vars: vars, ratchet: r, matrix: m}, nil
}

// Init implements fd.Strategy.
func (l *LeafBranchAndBound) Init(s *fd.Solver) error { return l.base.Init(s) }

// Remove implements fd.Strategy.
func (l *LeafBranchAndBound) Remove() { l.base.Remove() }

// Decision implements fd.Strategy.
func (l *LeafBranchAndBound) Decision(s *fd.Solver, st *fd.SolverState) fd.Decision {
	if d := l.base.Decision(s, st); d != nil {
		return d
	}
	if len(l.vars) < 2 {
		return nil
	}
	points := make([]int, len(l.vars))
	for i, v := range l.vars {
		d := s.GetDomain(st, v.ID())
		if !d.IsSingleton() {
			return nil
		}
		points[i] = d.SingletonValue()
	}
	obj, _ := MinPairwiseDistance(l.matrix, points)
	raised := l.ratchet.RaiseTo(obj + 1)
	if l.OnLeaf != nil {
		l.OnLeaf(obj, raised)
	}
	return nil
}

// MinPairwiseDistance returns the smallest distance between two of the given
// points, or false when there are fewer than two.
func MinPairwiseDistance(m *DistanceMatrix, points []int) (int, bool) {
	if len(points) < 2 {
		return 0, false
	}
	best := m.At(points[0], points[1])
	for i := 0; i < len(points)-1; i++ {
		for j := i + 1; j < len(points); j++ {
			best = min(best, m.At(points[i], points[j]))
		}
	}
	return best, true
}
