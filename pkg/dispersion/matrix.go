// Package dispersion solves the p-dispersion problem with pairwise distance
// constraints on top of the fd engine.
//
// F facility slots are placed on P candidate points so that every pair of
// facilities (i, j) is further apart than its pair lower bound, and the
// smallest pairwise distance is maximised. Two propagator variants enforce
// the pair constraints:
//
//   - ObjectiveDistance couples each pair to an explicit objective variable
//     that the engine maximises by branch-and-bound.
//   - RatchetDistance couples each pair to a Ratchet, a monotone best value
//     shared across the whole search tree, and LeafBranchAndBound raises the
//     ratchet whenever the search reaches a complete placement.
package dispersion

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// DistanceMatrix is a symmetric P×P table of non-negative integer distances
// with a zero diagonal. Its contents never change after construction, so one
// matrix is shared by every propagator of a model (and of every model of a
// portfolio).
type DistanceMatrix struct {
	p    int
	dist []int
	max  int

	mu      sync.Mutex
	support map[int]*SupportIndex
}

// NewDistanceMatrix validates rows and copies them into a matrix.
func NewDistanceMatrix(rows [][]int) (*DistanceMatrix, error) {
	p := len(rows)
	if p == 0 {
		return nil, fmt.Errorf("%w: distance matrix has no points", fd.ErrInvalidConfiguration)
	}
	flat := make([]int, 0, p*p)
	for i, row := range rows {
		if len(row) != p {
			return nil, fmt.Errorf("%w: distance matrix row %d has %d entries, want %d",
				fd.ErrInvalidConfiguration, i, len(row), p)
		}
		flat = append(flat, row...)
	}
	return newMatrix(flat, p)
}

// NewDistanceMatrixFromFlat builds a matrix from p*p row-major entries.
func NewDistanceMatrixFromFlat(flat []int, p int) (*DistanceMatrix, error) {
	if p <= 0 {
		return nil, fmt.Errorf("%w: distance matrix size %d", fd.ErrInvalidConfiguration, p)
	}
	if len(flat) != p*p {
		return nil, fmt.Errorf("%w: distance matrix has %d entries, want %d",
			fd.ErrInvalidConfiguration, len(flat), p*p)
	}
	return newMatrix(slices.Clone(flat), p)
}

func newMatrix(flat []int, p int) (*DistanceMatrix, error) {
	m := &DistanceMatrix{p: p, dist: flat, support: make(map[int]*SupportIndex)}
	for a := 0; a < p; a++ {
		if d := flat[a*p+a]; d != 0 {
			return nil, fmt.Errorf("%w: dist[%d][%d] = %d, want 0", fd.ErrInvalidConfiguration, a, a, d)
		}
		for b := a + 1; b < p; b++ {
			d := flat[a*p+b]
			if d < 0 {
				return nil, fmt.Errorf("%w: dist[%d][%d] = %d is negative", fd.ErrInvalidConfiguration, a, b, d)
			}
			if d != flat[b*p+a] {
				return nil, fmt.Errorf("%w: dist[%d][%d] = %d but dist[%d][%d] = %d",
					fd.ErrInvalidConfiguration, a, b, d, b, a, flat[b*p+a])
			}
			m.max = max(m.max, d)
		}
	}
	return m, nil
}

// Size returns P, the number of points.
func (m *DistanceMatrix) Size() int { return m.p }

// At returns dist[a][b].
func (m *DistanceMatrix) At(a, b int) int { return m.dist[a*m.p+b] }

// Max returns the largest distance in the matrix.
func (m *DistanceMatrix) Max() int { return m.max }

// DistinctValues returns the sorted distinct off-diagonal distances.
func (m *DistanceMatrix) DistinctValues() []int {
	seen := make(map[int]struct{})
	for a := 0; a < m.p; a++ {
		for b := a + 1; b < m.p; b++ {
			seen[m.At(a, b)] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Support returns the support index for pair lower bound dlb. Indexes are
// built once per distinct bound and shared by every caller.
func (m *DistanceMatrix) Support(dlb int) *SupportIndex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok := m.support[dlb]; ok {
		return idx
	}
	idx := NewSupportIndex(m, dlb)
	m.support[dlb] = idx
	return idx
}
