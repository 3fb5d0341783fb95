package fd

import (
	"context"
	"fmt"
	"time"
)

// SearchOption configures Solve, SolveWith and SolveOptimal.
type SearchOption func(*searchConfig)

type searchConfig struct {
	timeLimit         time.Duration
	nodeLimit         int
	solutionLimit     int
	restartOnSolution bool
	targetObjective   *int
	onImprove         func(solution []int, objective int)
}

// WithTimeLimit sets a hard time limit for the search. When reached, the
// search stops and context.DeadlineExceeded is returned alongside whatever
// was found so far.
func WithTimeLimit(d time.Duration) SearchOption {
	return func(c *searchConfig) { c.timeLimit = d }
}

// WithNodeLimit limits the number of search nodes. When reached, the search
// stops with ErrSearchLimitReached.
func WithNodeLimit(n int) SearchOption {
	return func(c *searchConfig) { c.nodeLimit = n }
}

// WithSolutionLimit stops the search after n solutions. Zero means no limit.
func WithSolutionLimit(n int) SearchOption {
	return func(c *searchConfig) { c.solutionLimit = n }
}

// WithRestartOnSolution restarts the search from the root after every
// accepted solution. State that outlives backtracking (for example a shared
// bound) is then re-read by every propagator at the root.
func WithRestartOnSolution() SearchOption {
	return func(c *searchConfig) { c.restartOnSolution = true }
}

// WithTargetObjective requests early exit from SolveOptimal as soon as a
// solution with objective == target is found.
func WithTargetObjective(target int) SearchOption {
	return func(c *searchConfig) { c.targetObjective = &target }
}

// WithImprovementHandler registers a callback invoked by SolveOptimal each
// time the incumbent improves.
func WithImprovementHandler(fn func(solution []int, objective int)) SearchOption {
	return func(c *searchConfig) { c.onImprove = fn }
}

func newSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{}
	for _, o := range opts {
		if o != nil {
			o(cfg)
		}
	}
	return cfg
}

// SolutionHandler receives each accepted solution as values for all model
// variables in model order. Returning false stops the search.
type SolutionHandler func(solution []int) bool

// Solve finds up to maxSolutions solutions. Zero means all.
// An infeasible model yields an empty result and no error.
func (s *Solver) Solve(ctx context.Context, maxSolutions int) ([][]int, error) {
	solutions := make([][]int, 0)
	err := s.SolveWith(ctx, func(sol []int) bool {
		solutions = append(solutions, sol)
		return true
	}, WithSolutionLimit(maxSolutions))
	return solutions, err
}

// SolveWith runs a depth-first search and reports every accepted leaf to
// handler.
//
// Branching follows the model's Strategy (or the configured default). When
// the strategy has no decision left, variables it does not cover are
// completed with first-fail; a node where every strategy is exhausted is a
// leaf, accepted if no propagator considers it violated.
//
// The returned error is nil when the tree was explored or the handler asked
// to stop, ctx.Err() on cancellation or timeout, ErrSearchLimitReached when
// the node limit was hit, or a non-contradiction error raised by a
// propagator.
func (s *Solver) SolveWith(ctx context.Context, handler SolutionHandler, opts ...SearchOption) error {
	cfg := newSearchConfig(opts)
	return s.search(ctx, cfg, searchHooks{
		onSolution: func(st *SolverState) bool {
			return handler(s.extractSolution(st))
		},
	})
}

// searchHooks let callers layer bounding on the common search loop.
type searchHooks struct {
	// cut tightens a freshly branched state before propagation.
	cut func(st *SolverState) (*SolverState, error)

	// onSolution is called for each accepted leaf; false stops the search.
	onSolution func(st *SolverState) bool
}

type searchFrame struct {
	state    *SolverState
	decision Decision
	refuted  bool
}

func (s *Solver) search(ctx context.Context, cfg *searchConfig, hooks searchHooks) error {
	if err := s.model.Validate(); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	if cfg.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeLimit)
		defer cancel()
	}
	if s.monitor != nil {
		defer s.monitor.FinishSearch()
	}

	strategy := s.model.Strategy()
	if strategy == nil {
		strategy = DefaultStrategy(s.config, s.model.Variables())
	}
	if err := strategy.Init(s); err != nil {
		return err
	}
	defer strategy.Remove()
	completion := NewIntVarSearch(FirstFail, ValueMin, s.model.Variables()...)

	s.baseState = nil
	s.resetQueue()
	root, err := s.propagate(nil, true)
	if err != nil {
		if IsContradiction(err) {
			return nil
		}
		return err
	}
	s.baseState = root

	node, live, err := s.branch(root, nil, hooks)
	if err != nil {
		return err
	}

	var stack []searchFrame
	nodes, solutions, restarts := 0, 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if live {
			nodes++
			if cfg.nodeLimit > 0 && nodes > cfg.nodeLimit {
				return ErrSearchLimitReached
			}
			s.recordNode(len(stack))
			s.logger.LogProgress(ctx, nodes, len(stack))

			d := strategy.Decision(s, node)
			if d == nil {
				d = completion.Decision(s, node)
			}
			if d != nil {
				stack = append(stack, searchFrame{state: node, decision: d})
				if node, live, err = s.branch(node, d.Apply, hooks); err != nil {
					return err
				}
				continue
			}

			if s.entailed(node) {
				solutions++
				s.recordSolution()
				if !hooks.onSolution(node) {
					return nil
				}
				if cfg.solutionLimit > 0 && solutions >= cfg.solutionLimit {
					return nil
				}
				if cfg.restartOnSolution {
					restarts++
					s.recordRestart()
					s.logger.LogRestart(ctx, restarts)
					stack = stack[:0]
					s.resetQueue()
					s.scheduleAll()
					if node, live, err = s.branch(root, nil, hooks); err != nil {
						return err
					}
					if live {
						continue
					}
					return nil
				}
			}
			live = false
		}

		// Backtrack to the deepest decision that still has a right branch.
		for !live {
			if len(stack) == 0 {
				return nil
			}
			s.recordBacktrack()
			top := &stack[len(stack)-1]
			if top.refuted || top.decision.Arity() < 2 {
				stack = stack[:len(stack)-1]
				continue
			}
			top.refuted = true
			if node, live, err = s.branch(top.state, top.decision.Refute, hooks); err != nil {
				return err
			}
		}
	}
}

// branch derives a child of state by op (nil keeps state), applies the cut
// hook and propagates. live is false when the branch failed; a nil child of a
// live branch is the unmodified root.
func (s *Solver) branch(state *SolverState, op func(*Solver, *SolverState) (*SolverState, error), hooks searchHooks) (child *SolverState, live bool, err error) {
	child = state
	if op != nil {
		if child, err = op(s, state); err != nil {
			return s.failed(err)
		}
	}
	if hooks.cut != nil {
		if child, err = hooks.cut(child); err != nil {
			return s.failed(err)
		}
	}
	if child, err = s.propagate(child, false); err != nil {
		return s.failed(err)
	}
	return child, true, nil
}

func (s *Solver) failed(err error) (*SolverState, bool, error) {
	s.resetQueue()
	if IsContradiction(err) {
		return nil, false, nil
	}
	return nil, false, err
}

func (s *Solver) recordNode(depth int) {
	s.observer.RecordNode(depth)
	if s.monitor != nil {
		s.monitor.RecordNode(depth)
	}
}

func (s *Solver) recordBacktrack() {
	s.observer.RecordBacktrack()
	if s.monitor != nil {
		s.monitor.RecordBacktrack()
	}
}

func (s *Solver) recordSolution() {
	s.observer.RecordSolution()
	if s.monitor != nil {
		s.monitor.RecordSolution()
	}
}

func (s *Solver) recordRestart() {
	s.observer.RecordRestart()
	if s.monitor != nil {
		s.monitor.RecordRestart()
	}
}
