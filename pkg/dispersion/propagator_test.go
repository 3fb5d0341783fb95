package dispersion

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

func all4() []int { return []int{0, 1, 2, 3} }

func TestRatchetDistanceRevise(t *testing.T) {
	m := scenarioMatrix(t)

	tests := []struct {
		name    string
		ratchet int
		d1, d2  []int
		want1   []int
		want2   []int
		failing bool
	}{
		// At T=4 every point keeps a partner: 0-1, 1-2, 2-3, 3-0.
		{name: "base threshold", d1: all4(), d2: all4(), want1: all4(), want2: all4()},
		// At T=8 only the 0-3 pair (9) survives.
		{name: "raised threshold", ratchet: 8, d1: all4(), d2: all4(), want1: []int{0, 3}, want2: []int{0, 3}},
		// Against F2=2, F1 needs dist >= 4: 1 (7) and 3 (4).
		{name: "fixed partner", d1: all4(), d2: []int{2}, want1: []int{1, 3}, want2: []int{2}},
		{name: "nothing reaches", ratchet: 10, d1: all4(), d2: all4(), failing: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, f1, f2 := pairModel(m, tt.d1, tt.d2)
			r := &Ratchet{}
			r.RaiseTo(tt.ratchet)
			c, err := NewRatchetDistance(model, f1, f2, r, m, 3)
			require.NoError(t, err)
			model.AddConstraint(c)

			s := fd.NewSolver(model)
			st, err := s.Propagate(nil)
			if tt.failing {
				require.True(t, fd.IsContradiction(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want1, values(s.GetDomain(st, f1.ID())))
			require.Equal(t, tt.want2, values(s.GetDomain(st, f2.ID())))
			require.Equal(t, max(4, tt.ratchet), c.Threshold(s, st))
		})
	}
}

// randomSubset returns a non-empty random subset of [0, p).
func randomSubset(rng *rand.Rand, p int) []int {
	var out []int
	for v := 0; v < p; v++ {
		if rng.IntN(3) > 0 {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = append(out, rng.IntN(p))
	}
	return out
}

// requireArcConsistent checks that a value of the initial domains survives
// exactly when it has a partner at distance >= thr in the other final domain.
func requireArcConsistent(t *testing.T, iter int, m *DistanceMatrix, d1, d2 []int, final1, final2 fd.Domain, thr int) {
	t.Helper()
	for _, v := range d1 {
		supported := false
		for w := range final2.Values() {
			supported = supported || m.At(v, w) >= thr
		}
		require.Equal(t, supported, final1.Has(v), "iter %d: F1 value %d", iter, v)
	}
	for _, w := range d2 {
		supported := false
		for v := range final1.Values() {
			supported = supported || m.At(v, w) >= thr
		}
		require.Equal(t, supported, final2.Has(w), "iter %d: F2 value %d", iter, w)
	}
}

// TestReviseIsArcConsistentAndIdempotent checks, on random instances, that
// RatchetDistance leaves its pair arc consistent and that a second run
// prunes nothing.
func TestReviseIsArcConsistentAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for iter := 0; iter < 200; iter++ {
		p := 3 + rng.IntN(10)
		m := randomMatrix(t, rng, p, 20)
		dlb := rng.IntN(10)
		d1, d2 := randomSubset(rng, p), randomSubset(rng, p)
		model, f1, f2 := pairModel(m, d1, d2)
		r := &Ratchet{}
		r.RaiseTo(rng.IntN(15))
		c, err := NewRatchetDistance(model, f1, f2, r, m, dlb)
		require.NoError(t, err)

		s := fd.NewSolver(model)
		st, err := c.Propagate(s, nil)
		if err != nil {
			require.True(t, fd.IsContradiction(err))
			continue
		}
		thr := c.Threshold(s, st)
		require.Equal(t, max(dlb+1, r.Get()), thr)

		requireArcConsistent(t, iter, m, d1, d2, s.GetDomain(st, f1.ID()), s.GetDomain(st, f2.ID()), thr)

		again, err := c.Propagate(s, st)
		require.NoError(t, err)
		require.Same(t, st, again, "iter %d: second run must not prune", iter)
	}
}

// TestObjectiveReviseIsArcConsistentAndIdempotent is the same property for
// ObjectiveDistance, with the threshold coming from the lower bound of
// minDist, plus the cap on minDist.
func TestObjectiveReviseIsArcConsistentAndIdempotent(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 17))
	for iter := 0; iter < 200; iter++ {
		p := 3 + rng.IntN(10)
		m := randomMatrix(t, rng, p, 20)
		dlb := rng.IntN(10)
		d1, d2 := randomSubset(rng, p), randomSubset(rng, p)
		model, f1, f2 := pairModel(m, d1, d2)
		lb := rng.IntN(21)
		minDist := model.NewVariableWithName(fd.NewSparseRangeDomain(lb, 25), "minDist")
		c, err := NewObjectiveDistance(f1, f2, minDist, m, dlb)
		require.NoError(t, err)

		s := fd.NewSolver(model)
		st, err := c.Propagate(s, nil)
		if err != nil {
			require.True(t, fd.IsContradiction(err))
			continue
		}
		obj := s.GetDomain(st, minDist.ID())
		require.Equal(t, lb, obj.Min(), "iter %d: the lower bound is never raised", iter)
		thr := c.Threshold(s, st)
		require.Equal(t, max(obj.Min(), dlb+1), thr)

		final1, final2 := s.GetDomain(st, f1.ID()), s.GetDomain(st, f2.ID())
		requireArcConsistent(t, iter, m, d1, d2, final1, final2, thr)

		reach := 0
		for v := range final1.Values() {
			for w := range final2.Values() {
				reach = max(reach, m.At(v, w))
			}
		}
		require.LessOrEqual(t, obj.Max(), reach, "iter %d: minDist above every remaining distance", iter)

		again, err := c.Propagate(s, st)
		require.NoError(t, err)
		require.Same(t, st, again, "iter %d: second run must not prune", iter)
	}
}

func TestRatchetThresholdIsTrailed(t *testing.T) {
	m := scenarioMatrix(t)
	model, f1, f2 := pairModel(m, all4(), all4())
	r := &Ratchet{}
	c, err := NewRatchetDistance(model, f1, f2, r, m, 3)
	require.NoError(t, err)
	model.AddConstraint(c)
	s := fd.NewSolver(model)

	root, err := s.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, 4, c.Threshold(s, root))

	// A leaf elsewhere in the tree raised the ratchet.
	require.True(t, r.RaiseTo(8))
	child, err := s.Propagate(root)
	require.NoError(t, err)
	require.Equal(t, 8, c.Threshold(s, child))
	require.Equal(t, []int{0, 3}, values(s.GetDomain(child, f1.ID())))

	// Backtracking to root restores the old threshold and domains, but not
	// the ratchet itself.
	require.Equal(t, 4, c.Threshold(s, root))
	require.Equal(t, all4(), values(s.GetDomain(root, f1.ID())))
	require.Equal(t, 8, r.Get())

	// The cell never goes down when the ratchet is behind it.
	model2, g1, g2 := pairModel(m, all4(), all4())
	c2, err := NewRatchetDistance(model2, g1, g2, &Ratchet{}, m, 6)
	require.NoError(t, err)
	s2 := fd.NewSolver(model2)
	st, err := c2.Propagate(s2, nil)
	require.NoError(t, err)
	require.Equal(t, 7, c2.Threshold(s2, st))
}

func TestObjectiveDistanceThreshold(t *testing.T) {
	m := scenarioMatrix(t)
	model, f1, f2 := pairModel(m, all4(), all4())

	tests := []struct {
		lb, want int
	}{
		{0, 4},
		{4, 4},
		{6, 6},
	}
	for _, tt := range tests {
		minDist := model.NewVariableWithName(fd.NewSparseRangeDomain(tt.lb, 20), "minDist")
		c, err := NewObjectiveDistance(f1, f2, minDist, m, 3)
		require.NoError(t, err)
		require.Equal(t, tt.want, c.Threshold(fd.NewSolver(model), nil))
	}
}

func TestObjectiveDistancePropagate(t *testing.T) {
	m := scenarioMatrix(t)
	model, f1, f2 := pairModel(m, all4(), all4())
	minDist := model.NewVariableWithName(fd.NewSparseDomain([]int{0, 1, 2, 4, 5, 7, 9}), "minDist")
	c, err := NewObjectiveDistance(f1, f2, minDist, m, 3)
	require.NoError(t, err)
	model.AddConstraint(c)
	s := fd.NewSolver(model)

	st, err := s.Propagate(nil)
	require.NoError(t, err)
	require.Equal(t, 9, s.GetDomain(st, minDist.ID()).Max())

	// Raising the objective raises the threshold: at 9 only 0-3 remains.
	st, err = s.UpdateLowerBound(st, minDist, 8)
	require.NoError(t, err)
	st, err = s.Propagate(st)
	require.NoError(t, err)
	require.Equal(t, []int{0, 3}, values(s.GetDomain(st, f1.ID())))
	require.Equal(t, []int{0, 3}, values(s.GetDomain(st, f2.ID())))

	st, err = s.Instantiate(st, f1, 3)
	require.NoError(t, err)
	st, err = s.Propagate(st)
	require.NoError(t, err)
	require.Equal(t, 0, s.GetDomain(st, f2.ID()).SingletonValue())
	require.Equal(t, 9, s.GetDomain(st, minDist.ID()).SingletonValue())
	require.Equal(t, fd.Satisfied, c.IsEntailed(s, st))

	again, err := c.Propagate(s, st)
	require.NoError(t, err)
	require.Same(t, st, again)
}

func TestObjectiveDistanceCapsObjective(t *testing.T) {
	m := scenarioMatrix(t)
	model, f1, f2 := pairModel(m, []int{0}, []int{1, 2})
	minDist := model.NewVariableWithName(fd.NewSparseRangeDomain(0, 9), "minDist")
	c, err := NewObjectiveDistance(f1, f2, minDist, m, 0)
	require.NoError(t, err)
	s := fd.NewSolver(model)

	st, err := c.Propagate(s, nil)
	require.NoError(t, err)
	require.Equal(t, 5, s.GetDomain(st, minDist.ID()).Max(), "best remaining distance from 0 is 5")

	st, err = s.UpdateLowerBound(st, minDist, 5)
	require.NoError(t, err)
	st, err = c.Propagate(s, st)
	require.NoError(t, err)
	require.Equal(t, 1, s.GetDomain(st, f2.ID()).SingletonValue())
	require.Equal(t, 5, s.GetDomain(st, minDist.ID()).SingletonValue())

	_, err = s.UpdateLowerBound(st, minDist, 6)
	require.True(t, fd.IsContradiction(err))
}

func TestPairEntailment(t *testing.T) {
	m := scenarioMatrix(t)

	tests := []struct {
		name   string
		d1, d2 []int
		want   fd.Entailment
	}{
		{"all reach", []int{0}, []int{1, 3}, fd.Satisfied},
		{"none reach", []int{1}, []int{3}, fd.Violated},
		{"some reach", []int{0, 1}, []int{3}, fd.Undetermined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, f1, f2 := pairModel(m, tt.d1, tt.d2)
			c, err := NewRatchetDistance(model, f1, f2, &Ratchet{}, m, 3)
			require.NoError(t, err)
			require.Equal(t, tt.want, c.IsEntailed(fd.NewSolver(model), nil))
		})
	}
}

func TestPropagatorValidation(t *testing.T) {
	m := scenarioMatrix(t)
	model, f1, f2 := pairModel(m, all4(), all4())
	wide := model.NewVariableWithName(fd.NewBitSetDomain(10), "wide")
	minDist := model.NewVariableWithName(fd.NewSparseRangeDomain(0, 9), "minDist")

	_, err := NewRatchetDistance(model, f1, f2, nil, m, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	_, err = NewRatchetDistance(nil, f1, f2, &Ratchet{}, m, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	_, err = NewRatchetDistance(model, f1, f1, &Ratchet{}, m, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	_, err = NewRatchetDistance(model, f1, wide, &Ratchet{}, m, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	_, err = NewObjectiveDistance(f1, f2, nil, m, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	_, err = NewObjectiveDistance(f1, f2, f1, m, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	_, err = NewObjectiveDistance(f1, f2, minDist, nil, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)

	err = RatchetCoupling{Ratchet: &Ratchet{}, Matrix: m}.Post(model, f1, nil, 0)
	require.ErrorIs(t, err, fd.ErrInvalidConfiguration)
	require.Contains(t, err.Error(), "F1-<nil>")
}

func TestPropagatorSchedulingContract(t *testing.T) {
	m := scenarioMatrix(t)
	model, f1, f2 := pairModel(m, all4(), all4())
	minDist := model.NewVariableWithName(fd.NewSparseRangeDomain(0, 9), "minDist")

	obj, err := NewObjectiveDistance(f1, f2, minDist, m, 3)
	require.NoError(t, err)
	require.Len(t, obj.Variables(), 3)
	require.Equal(t, fd.PriorityTernary, obj.Priority())
	require.True(t, obj.PropagationConditions(0).Has(fd.EventRemove))
	require.False(t, obj.PropagationConditions(2).Has(fd.EventRemove), "interior objective removals do not move the threshold")
	require.Equal(t, "ObjectiveDistance(F1, F2, minDist, dlb=3)", obj.String())

	rat, err := NewRatchetDistance(model, f1, f2, &Ratchet{}, m, 3)
	require.NoError(t, err)
	require.Len(t, rat.Variables(), 2, "the ratchet variant watches no objective variable")
	require.Equal(t, fd.PriorityBinary, rat.Priority())
	require.Equal(t, fd.EventAll, rat.PropagationConditions(1))
	require.Equal(t, "RatchetDistance(F1, F2, dlb=3)", rat.String())
}
