package fd

import (
	"context"
	"errors"
)

// SolveOptimal finds a solution that optimizes the given objective variable.
//
// Contract:
//   - obj is an FD variable participating in the model. Its domain encodes the
//     objective value (smaller is better when minimize=true).
//   - On success, returns the best solution found (values for all model
//     variables in model order) and the objective value. If the model is
//     infeasible, returns (nil, 0, nil).
//   - If the time limit or ctx expires, returns the best incumbent if any
//     together with ctx.Err(); a node limit yields ErrSearchLimitReached.
//
// Incumbent cutoff is injected by tightening the objective domain at every
// node before propagation:
//
//	minimize: obj ≤ best-1  via RemoveAbove(best-1)
//	maximize: obj ≥ best+1  via RemoveBelow(best+1)
func (s *Solver) SolveOptimal(ctx context.Context, obj *FDVariable, minimize bool, opts ...SearchOption) ([]int, int, error) {
	cfg := newSearchConfig(opts)
	if obj == nil || s.model.GetVariable(obj.ID()) != obj {
		return nil, 0, ErrInvalidConfiguration
	}

	var bestSol []int
	bestVal := 0
	haveIncumbent := false
	reachedTarget := false

	cut := func(st *SolverState) (*SolverState, error) {
		if !haveIncumbent {
			return st, nil
		}
		d := s.GetDomain(st, obj.ID())
		if minimize {
			return s.SetDomain(st, obj.ID(), d.RemoveAbove(bestVal-1))
		}
		return s.SetDomain(st, obj.ID(), d.RemoveBelow(bestVal+1))
	}

	onSolution := func(st *SolverState) bool {
		d := s.GetDomain(st, obj.ID())
		if !d.IsSingleton() {
			return true
		}
		val := d.SingletonValue()
		if haveIncumbent && ((minimize && val >= bestVal) || (!minimize && val <= bestVal)) {
			return true
		}
		bestVal = val
		bestSol = s.extractSolution(st)
		haveIncumbent = true
		if cfg.onImprove != nil {
			cfg.onImprove(bestSol, bestVal)
		}
		if cfg.targetObjective != nil && val == *cfg.targetObjective {
			reachedTarget = true
			return false
		}
		return true
	}

	err := s.search(ctx, cfg, searchHooks{cut: cut, onSolution: onSolution})
	if reachedTarget {
		return bestSol, bestVal, nil
	}
	if err != nil {
		limited := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, ErrSearchLimitReached)
		if limited && haveIncumbent {
			return bestSol, bestVal, err
		}
		return nil, 0, err
	}
	if !haveIncumbent {
		return nil, 0, nil
	}
	return bestSol, bestVal, nil
}
