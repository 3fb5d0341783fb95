package dispersion

import (
	"fmt"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// Problem is one p-dispersion instance: F facilities over the points of a
// distance matrix, with a strict lower bound on the distance of every pair
// of facilities.
type Problem struct {
	Distances  *DistanceMatrix
	Facilities int

	// bounds[i*F+j] is the pair lower bound of facilities i and j.
	bounds []int
}

// NewProblem validates bounds, an F×F symmetric table, and builds a Problem.
// Only the entries above the diagonal are used.
func NewProblem(m *DistanceMatrix, facilities int, bounds [][]int) (*Problem, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil distance matrix", fd.ErrInvalidConfiguration)
	}
	if facilities <= 0 {
		return nil, fmt.Errorf("%w: %d facilities", fd.ErrInvalidConfiguration, facilities)
	}
	if len(bounds) != facilities {
		return nil, fmt.Errorf("%w: pair bounds have %d rows, want %d", fd.ErrInvalidConfiguration, len(bounds), facilities)
	}
	p := &Problem{Distances: m, Facilities: facilities, bounds: make([]int, facilities*facilities)}
	for i, row := range bounds {
		if len(row) != facilities {
			return nil, fmt.Errorf("%w: pair bounds row %d has %d entries, want %d",
				fd.ErrInvalidConfiguration, i, len(row), facilities)
		}
		copy(p.bounds[i*facilities:], row)
	}
	for i := 0; i < facilities; i++ {
		for j := i + 1; j < facilities; j++ {
			p.bounds[j*facilities+i] = p.bounds[i*facilities+j]
		}
	}
	return p, nil
}

// PairBound returns the lower bound of facilities i and j.
func (p *Problem) PairBound(i, j int) int {
	return p.bounds[i*p.Facilities+j]
}

// Points returns P.
func (p *Problem) Points() int { return p.Distances.Size() }

// Objective evaluates a complete placement: the minimum pairwise distance.
// The second result is false when the placement violates a pair bound.
func (p *Problem) Objective(placement []int) (int, bool) {
	for i := 0; i < len(placement); i++ {
		for j := i + 1; j < len(placement); j++ {
			if p.Distances.At(placement[i], placement[j]) <= p.PairBound(i, j) {
				return 0, false
			}
		}
	}
	return MinPairwiseDistance(p.Distances, placement)
}
