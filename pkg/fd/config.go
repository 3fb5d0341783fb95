package fd

// VariableOrderingHeuristic selects the branching variable of the default strategy.
type VariableOrderingHeuristic int

const (
	// HeuristicDom picks the variable with the smallest domain (first-fail).
	HeuristicDom VariableOrderingHeuristic = iota
	// HeuristicDomWDeg picks the smallest domain size divided by the failure
	// weighted degree of the variable.
	HeuristicDomWDeg
	// HeuristicLex picks variables in creation order.
	HeuristicLex
)

func (h VariableOrderingHeuristic) String() string {
	switch h {
	case HeuristicDomWDeg:
		return "domwdeg"
	case HeuristicLex:
		return "lex"
	default:
		return "dom"
	}
}

// ValueOrderingHeuristic selects the value tried first for the branching variable.
type ValueOrderingHeuristic int

const (
	// ValueOrderAsc tries the smallest value first.
	ValueOrderAsc ValueOrderingHeuristic = iota
	// ValueOrderDesc tries the largest value first.
	ValueOrderDesc
)

// SolverConfig holds solver parameters.
type SolverConfig struct {
	// VariableHeuristic and ValueHeuristic build the strategy used when the
	// model does not install one.
	VariableHeuristic VariableOrderingHeuristic
	ValueHeuristic    ValueOrderingHeuristic

	// MaxPropagations caps propagator invocations within one fixpoint
	// computation. Zero disables the cap.
	MaxPropagations int
}

// DefaultSolverConfig returns sensible default configuration.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		VariableHeuristic: HeuristicDomWDeg,
		ValueHeuristic:    ValueOrderAsc,
		MaxPropagations:   10_000_000,
	}
}
