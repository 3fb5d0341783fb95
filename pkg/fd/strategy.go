package fd

import (
	"fmt"
	"math"
)

// Decision is a branching choice proposed by a Strategy. The search applies
// it to create the left child and, for arity-2 decisions, refutes it to
// create the right sibling after the left subtree is exhausted.
type Decision interface {
	// Apply returns the state of the left branch.
	Apply(solver *Solver, state *SolverState) (*SolverState, error)

	// Refute returns the state of the right branch. Only called when Arity
	// is 2.
	Refute(solver *Solver, state *SolverState) (*SolverState, error)

	// Arity is the number of branches the decision opens (1 or 2).
	Arity() int

	String() string
}

// AssignDecision branches on x = v, then x ≠ v.
type AssignDecision struct {
	Var   *FDVariable
	Value int
}

// Apply implements Decision.
func (d AssignDecision) Apply(solver *Solver, state *SolverState) (*SolverState, error) {
	return solver.Instantiate(state, d.Var, d.Value)
}

// Refute implements Decision.
func (d AssignDecision) Refute(solver *Solver, state *SolverState) (*SolverState, error) {
	return solver.RemoveValue(state, d.Var, d.Value)
}

// Arity implements Decision.
func (AssignDecision) Arity() int { return 2 }

func (d AssignDecision) String() string {
	return fmt.Sprintf("%s = %d", d.Var.Name(), d.Value)
}

// PruneDecision closes the current node: its single branch always fails.
type PruneDecision struct {
	Reason string
}

// Apply implements Decision.
func (d PruneDecision) Apply(*Solver, *SolverState) (*SolverState, error) {
	return nil, fmt.Errorf("%w: cut: %s", ErrContradiction, d.Reason)
}

// Refute implements Decision. A prune has no right branch.
func (d PruneDecision) Refute(s *Solver, st *SolverState) (*SolverState, error) {
	return d.Apply(s, st)
}

// Arity implements Decision.
func (PruneDecision) Arity() int { return 1 }

func (d PruneDecision) String() string { return "prune: " + d.Reason }

// Strategy proposes the next decision for a search node.
//
// Decision returning nil means the strategy has nothing left to branch on;
// the search then treats the node as a leaf. The search re-runs propagation
// to a fixed point before every call to Decision.
type Strategy interface {
	Init(solver *Solver) error
	Decision(solver *Solver, state *SolverState) Decision
	Remove()
}

// VarSelector picks the next unbound variable among vars, or returns nil.
type VarSelector func(solver *Solver, state *SolverState, vars []*FDVariable) *FDVariable

// ValSelector picks the value to try first for v.
type ValSelector func(solver *Solver, state *SolverState, v *FDVariable) int

// InputOrder selects the first unbound variable in declaration order.
func InputOrder(solver *Solver, state *SolverState, vars []*FDVariable) *FDVariable {
	for _, v := range vars {
		if !solver.IsBound(state, v) {
			return v
		}
	}
	return nil
}

// FirstFail selects the unbound variable with the smallest domain. Ties go to
// the earliest declared variable.
func FirstFail(solver *Solver, state *SolverState, vars []*FDVariable) *FDVariable {
	var best *FDVariable
	bestSize := math.MaxInt
	for _, v := range vars {
		size := solver.GetDomain(state, v.ID()).Count()
		if size > 1 && size < bestSize {
			best, bestSize = v, size
		}
	}
	return best
}

// DomOverWDeg selects the unbound variable minimising domain size divided by
// failure-weighted degree.
func DomOverWDeg(solver *Solver, state *SolverState, vars []*FDVariable) *FDVariable {
	var best *FDVariable
	bestScore := math.Inf(1)
	for _, v := range vars {
		size := solver.GetDomain(state, v.ID()).Count()
		if size <= 1 {
			continue
		}
		score := float64(size) / float64(solver.VariableWeight(state, v))
		if score < bestScore {
			best, bestScore = v, score
		}
	}
	return best
}

// ValueMin selects the smallest remaining value.
func ValueMin(solver *Solver, state *SolverState, v *FDVariable) int {
	return solver.GetDomain(state, v.ID()).Min()
}

// ValueMax selects the largest remaining value.
func ValueMax(solver *Solver, state *SolverState, v *FDVariable) int {
	return solver.GetDomain(state, v.ID()).Max()
}

// IntVarSearch branches x = v / x ≠ v over a fixed set of variables.
type IntVarSearch struct {
	varSel VarSelector
	valSel ValSelector
	vars   []*FDVariable
}

// NewIntVarSearch creates a strategy over vars.
func NewIntVarSearch(varSel VarSelector, valSel ValSelector, vars ...*FDVariable) *IntVarSearch {
	return &IntVarSearch{varSel: varSel, valSel: valSel, vars: vars}
}

// Vars returns the variables the strategy branches on.
func (s *IntVarSearch) Vars() []*FDVariable { return s.vars }

// Init implements Strategy.
func (s *IntVarSearch) Init(*Solver) error {
	if s.varSel == nil || s.valSel == nil {
		return fmt.Errorf("%w: strategy needs a variable and a value selector", ErrInvalidConfiguration)
	}
	return nil
}

// Decision implements Strategy.
func (s *IntVarSearch) Decision(solver *Solver, state *SolverState) Decision {
	v := s.varSel(solver, state, s.vars)
	if v == nil {
		return nil
	}
	return AssignDecision{Var: v, Value: s.valSel(solver, state, v)}
}

// Remove implements Strategy.
func (s *IntVarSearch) Remove() {}

// SequenceStrategy asks each strategy in turn until one proposes a decision.
type SequenceStrategy struct {
	strategies []Strategy
}

// Sequence chains strategies.
func Sequence(strategies ...Strategy) *SequenceStrategy {
	return &SequenceStrategy{strategies: strategies}
}

// Init implements Strategy.
func (s *SequenceStrategy) Init(solver *Solver) error {
	for _, st := range s.strategies {
		if err := st.Init(solver); err != nil {
			return err
		}
	}
	return nil
}

// Decision implements Strategy.
func (s *SequenceStrategy) Decision(solver *Solver, state *SolverState) Decision {
	for _, st := range s.strategies {
		if d := st.Decision(solver, state); d != nil {
			return d
		}
	}
	return nil
}

// Remove implements Strategy.
func (s *SequenceStrategy) Remove() {
	for _, st := range s.strategies {
		st.Remove()
	}
}

// DefaultStrategy builds the strategy described by config over vars.
func DefaultStrategy(config *SolverConfig, vars []*FDVariable) *IntVarSearch {
	if config == nil {
		config = DefaultSolverConfig()
	}
	var varSel VarSelector
	switch config.VariableHeuristic {
	case HeuristicLex:
		varSel = InputOrder
	case HeuristicDomWDeg:
		varSel = DomOverWDeg
	default:
		varSel = FirstFail
	}
	valSel := ValueMin
	if config.ValueHeuristic == ValueOrderDesc {
		valSel = ValueMax
	}
	return NewIntVarSearch(varSel, valSel, vars...)
}
