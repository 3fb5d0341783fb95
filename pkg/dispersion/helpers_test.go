package dispersion

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// scenarioMatrix is the four-point matrix used throughout the tests:
//
//	dist[0][1]=5 dist[0][2]=2 dist[0][3]=9
//	dist[1][2]=7 dist[1][3]=1 dist[2][3]=4
func scenarioMatrix(t testing.TB) *DistanceMatrix {
	t.Helper()
	m, err := NewDistanceMatrix([][]int{
		{0, 5, 2, 9},
		{5, 0, 7, 1},
		{2, 7, 0, 4},
		{9, 1, 4, 0},
	})
	require.NoError(t, err)
	return m
}

func randomMatrix(t testing.TB, rng *rand.Rand, p, maxDist int) *DistanceMatrix {
	t.Helper()
	rows := make([][]int, p)
	for i := range rows {
		rows[i] = make([]int, p)
	}
	for i := 0; i < p; i++ {
		for j := i + 1; j < p; j++ {
			d := 1 + rng.IntN(maxDist)
			rows[i][j], rows[j][i] = d, d
		}
	}
	m, err := NewDistanceMatrix(rows)
	require.NoError(t, err)
	return m
}

func randomProblem(t testing.TB, rng *rand.Rand, p, f, maxDist, maxBound int) *Problem {
	t.Helper()
	m := randomMatrix(t, rng, p, maxDist)
	bounds := make([][]int, f)
	for i := range bounds {
		bounds[i] = make([]int, f)
	}
	for i := 0; i < f; i++ {
		for j := i + 1; j < f; j++ {
			b := rng.IntN(maxBound + 1)
			bounds[i][j], bounds[j][i] = b, b
		}
	}
	prob, err := NewProblem(m, f, bounds)
	require.NoError(t, err)
	return prob
}

func uniformBounds(f, dlb int) [][]int {
	out := make([][]int, f)
	for i := range out {
		out[i] = make([]int, f)
		for j := range out[i] {
			if i != j {
				out[i][j] = dlb
			}
		}
	}
	return out
}

// bruteForce enumerates every placement and returns the best objective.
func bruteForce(p *Problem) (best int, found bool) {
	placement := make([]int, p.Facilities)
	var rec func(i int)
	rec = func(i int) {
		if i == p.Facilities {
			if obj, ok := p.Objective(placement); ok && (!found || obj > best) {
				best, found = obj, true
			}
			return
		}
		for v := 0; v < p.Points(); v++ {
			placement[i] = v
			rec(i + 1)
		}
	}
	rec(0)
	return best, found
}

// pairModel builds a model holding two facility variables over the given
// domains of a P-point matrix.
func pairModel(m *DistanceMatrix, d1, d2 []int) (*fd.Model, *fd.FDVariable, *fd.FDVariable) {
	model := fd.NewModel()
	f1 := model.NewVariableWithName(fd.NewBitSetDomainFromValues(m.Size(), d1), "F1")
	f2 := model.NewVariableWithName(fd.NewBitSetDomainFromValues(m.Size(), d2), "F2")
	return model, f1, f2
}

func values(d fd.Domain) []int {
	out := []int{}
	for v := range d.Values() {
		out = append(out, v)
	}
	return out
}
