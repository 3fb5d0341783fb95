package fd

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// forbidEqual never prunes; it only rejects leaves where x == y.
type forbidEqual struct{ x, y *FDVariable }

func (c forbidEqual) Variables() []*FDVariable            { return []*FDVariable{c.x, c.y} }
func (c forbidEqual) Type() string                        { return "ForbidEqual" }
func (c forbidEqual) String() string                      { return "forbidEqual" }
func (c forbidEqual) Priority() Priority                  { return PriorityBinary }
func (c forbidEqual) PropagationConditions(int) EventMask { return EventInstantiate }

func (c forbidEqual) Propagate(_ *Solver, st *SolverState) (*SolverState, error) {
	return st, nil
}

func (c forbidEqual) IsEntailed(s *Solver, st *SolverState) Entailment {
	dx, dy := s.GetDomain(st, c.x.ID()), s.GetDomain(st, c.y.ID())
	if dx.IsSingleton() && dy.IsSingleton() && dx.SingletonValue() == dy.SingletonValue() {
		return Violated
	}
	return Undetermined
}

// pruneAt closes every node where v is fixed to value.
type pruneAt struct {
	Strategy
	v     *FDVariable
	value int
}

func (p pruneAt) Decision(s *Solver, st *SolverState) Decision {
	if d := s.GetDomain(st, p.v.ID()); d.IsSingleton() && d.SingletonValue() == p.value {
		return PruneDecision{Reason: fmt.Sprintf("%s fixed to %d", p.v.Name(), p.value)}
	}
	return p.Strategy.Decision(s, st)
}

func permutationModel(n int) (*Model, []*FDVariable) {
	m := NewModel()
	vars := m.NewVariablesWithPrefix(n, NewBitSetDomain(n), "q")
	c, err := NewAllDifferent(vars)
	if err != nil {
		panic(err)
	}
	m.AddConstraint(c)
	return m, vars
}

func TestSolveEnumeratesAllSolutions(t *testing.T) {
	m, _ := permutationModel(3)
	sols, err := NewSolver(m).Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sols, 6)

	seen := make(map[[3]int]bool)
	for _, s := range sols {
		require.NotEqual(t, s[0], s[1])
		require.NotEqual(t, s[1], s[2])
		require.NotEqual(t, s[0], s[2])
		seen[[3]int{s[0], s[1], s[2]}] = true
	}
	require.Len(t, seen, 6, "solutions must be distinct")
}

func TestSolveRespectsSolutionLimit(t *testing.T) {
	m, _ := permutationModel(4)
	sols, err := NewSolver(m).Solve(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, sols, 2)
}

func TestSolveInfeasibleIsNotAnError(t *testing.T) {
	m := NewModel()
	vars := m.NewVariablesWithPrefix(3, NewBitSetDomain(2), "q")
	c, err := NewAllDifferent(vars)
	require.NoError(t, err)
	m.AddConstraint(c)

	sols, err := NewSolver(m).Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, sols)
}

func TestSolveWhenRootPropagationChangesNothing(t *testing.T) {
	m := NewModel()
	x := m.NewVariableWithName(NewBitSetDomain(2), "x")
	y := m.NewVariableWithName(NewBitSetDomain(2), "y")
	m.AddConstraint(forbidEqual{x, y})
	m.SetStrategy(NewIntVarSearch(InputOrder, ValueMin, x, y))

	s := NewSolver(m)
	root, err := s.Propagate(nil)
	require.NoError(t, err)
	require.Nil(t, root, "nothing to prune at the root")

	sols, err := s.Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, [][]int{{0, 1}, {1, 0}}, sols)

	var again [][]int
	err = s.SolveWith(context.Background(), func(sol []int) bool {
		again = append(again, sol)
		return true
	}, WithRestartOnSolution(), WithSolutionLimit(2))
	require.NoError(t, err)
	require.Equal(t, [][]int{{0, 1}, {0, 1}}, again)

	free := NewModel()
	free.NewVariable(NewBitSetDomain(3))
	sols, err = NewSolver(free).Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, [][]int{{0}, {1}, {2}}, sols)
}

func TestSolveRejectsInvalidModel(t *testing.T) {
	m := NewModel()
	m.NewVariable(NewBitSetDomain(0))
	_, err := NewSolver(m).Solve(context.Background(), 0)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestLeafAcceptedOnlyWithoutViolation(t *testing.T) {
	m := NewModel()
	x := m.NewVariableWithName(NewBitSetDomain(3), "x")
	y := m.NewVariableWithName(NewBitSetDomain(3), "y")
	m.AddConstraint(forbidEqual{x, y})

	sols, err := NewSolver(m).Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sols, 6)
	for _, s := range sols {
		require.NotEqual(t, s[0], s[1])
	}
}

func TestPruneDecisionClosesNode(t *testing.T) {
	m, vars := permutationModel(3)
	m.SetStrategy(pruneAt{
		Strategy: NewIntVarSearch(InputOrder, ValueMin, vars...),
		v:        vars[0],
		value:    0,
	})

	sols, err := NewSolver(m).Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sols, 4)
	for _, s := range sols {
		require.NotEqual(t, 0, s[0])
	}
}

func TestUncoveredVariablesAreCompleted(t *testing.T) {
	m := NewModel()
	x := m.NewVariableWithName(NewBitSetDomain(2), "x")
	m.NewVariableWithName(NewBitSetDomain(3), "y")
	m.SetStrategy(NewIntVarSearch(InputOrder, ValueMax, x))

	sols, err := NewSolver(m).Solve(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sols, 6)
	require.Equal(t, []int{1, 0}, sols[0], "strategy first (largest x), then completion (smallest y)")
}

func TestSolveWithHandlerStops(t *testing.T) {
	m, _ := permutationModel(4)
	count := 0
	err := NewSolver(m).SolveWith(context.Background(), func([]int) bool {
		count++
		return count < 3
	})
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestSolveNodeLimit(t *testing.T) {
	m, _ := permutationModel(6)
	err := NewSolver(m).SolveWith(context.Background(), func([]int) bool { return true }, WithNodeLimit(5))
	require.ErrorIs(t, err, ErrSearchLimitReached)
}

func TestSolveHonorsCancellation(t *testing.T) {
	m, _ := permutationModel(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSolver(m).Solve(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRestartOnSolution(t *testing.T) {
	m, vars := permutationModel(3)
	m.SetStrategy(NewIntVarSearch(InputOrder, ValueMin, vars...))
	s := NewSolver(m)
	obs := &BasicObserver{}
	s.SetObserver(obs)

	var sols [][]int
	err := s.SolveWith(context.Background(), func(sol []int) bool {
		sols = append(sols, sol)
		return true
	}, WithRestartOnSolution(), WithSolutionLimit(3))
	require.NoError(t, err)

	// Nothing changes between restarts, so the same first leaf comes back.
	require.Equal(t, [][]int{{0, 1, 2}, {0, 1, 2}, {0, 1, 2}}, sols)
	require.EqualValues(t, 2, obs.Restarts.Load())
	require.EqualValues(t, 3, obs.Solutions.Load())
}

func TestObserversSeeSearchEvents(t *testing.T) {
	m, _ := permutationModel(3)
	s := NewSolver(m)
	a, b := &BasicObserver{}, &BasicObserver{}
	s.SetObserver(MultiObserver{a, b})
	monitor := NewSolverMonitor()
	s.SetMonitor(monitor)

	_, err := s.Solve(context.Background(), 0)
	require.NoError(t, err)

	stats := monitor.GetStats()
	require.Equal(t, 6, stats.SolutionsFound)
	require.EqualValues(t, 6, a.Solutions.Load())
	require.Equal(t, a.Nodes.Load(), b.Nodes.Load())
	require.EqualValues(t, stats.NodesExplored, a.Nodes.Load())
	require.Positive(t, stats.Backtracks)
	require.Positive(t, stats.PropagationCount)
	require.Contains(t, stats.String(), "6 solutions")
}
