package fd

import (
	"fmt"
)

// Model is a problem ready for a Solver: variables with their initial
// domains, trailed cells, the posted constraints and an optional branching
// strategy. It is built by one goroutine and only read once solving starts;
// searches running in parallel each build their own.
type Model struct {
	variables   []*FDVariable
	cells       []*Cell
	constraints []ModelConstraint
	strategy    Strategy
	config      *SolverConfig
}

// ModelConstraint is anything posted on a model. Constraints that filter
// domains also implement PropagationConstraint.
type ModelConstraint interface {
	Variables() []*FDVariable
	Type() string
	String() string
}

// NewModel returns an empty model using DefaultSolverConfig.
func NewModel() *Model {
	return &Model{config: DefaultSolverConfig()}
}

// NewVariable adds a variable with the given initial domain.
func (m *Model) NewVariable(domain Domain) *FDVariable {
	v := NewFDVariable(len(m.variables), domain)
	m.variables = append(m.variables, v)
	return v
}

// NewVariableWithName adds a named variable.
func (m *Model) NewVariableWithName(domain Domain, name string) *FDVariable {
	v := NewFDVariableWithName(len(m.variables), domain, name)
	m.variables = append(m.variables, v)
	return v
}

// NewVariablesWithPrefix adds count variables named prefix_0, prefix_1, ...
func (m *Model) NewVariablesWithPrefix(count int, domain Domain, prefix string) []*FDVariable {
	vars := make([]*FDVariable, count)
	for i := range vars {
		vars[i] = m.NewVariableWithName(domain, fmt.Sprintf("%s_%d", prefix, i))
	}
	return vars
}

// NewCell registers a trailed integer holding initial in the root state.
func (m *Model) NewCell(initial int) *Cell {
	c := &Cell{id: len(m.cells), initial: initial}
	m.cells = append(m.cells, c)
	return c
}

// GetVariable returns the variable with the given ID, or nil.
func (m *Model) GetVariable(id int) *FDVariable {
	if id < 0 || id >= len(m.variables) {
		return nil
	}
	return m.variables[id]
}

// Variables returns the variables in ID order. Callers must not modify it.
func (m *Model) Variables() []*FDVariable { return m.variables }

func (m *Model) VariableCount() int { return len(m.variables) }

func (m *Model) CellCount() int { return len(m.cells) }

// AddConstraint posts c.
func (m *Model) AddConstraint(c ModelConstraint) {
	m.constraints = append(m.constraints, c)
}

// Constraints returns the posted constraints. Callers must not modify it.
func (m *Model) Constraints() []ModelConstraint { return m.constraints }

func (m *Model) ConstraintCount() int { return len(m.constraints) }

// SetStrategy installs the branching strategy. Without one, solvers branch
// with DefaultStrategy over every variable.
func (m *Model) SetStrategy(strategy Strategy) { m.strategy = strategy }

// Strategy returns the installed strategy, or nil.
func (m *Model) Strategy() Strategy { return m.strategy }

// Config returns the configuration solvers of this model start from.
func (m *Model) Config() *SolverConfig { return m.config }

// Validate reports a variable with an empty domain, a constraint over a
// variable of another model, or a constraint that cannot propagate.
func (m *Model) Validate() error {
	for _, v := range m.variables {
		if v.Domain().Count() == 0 {
			return fmt.Errorf("%w: variable %s has empty domain", ErrInvalidConfiguration, v.Name())
		}
	}
	for _, c := range m.constraints {
		for _, v := range c.Variables() {
			if v == nil || m.GetVariable(v.ID()) != v {
				return fmt.Errorf("%w: constraint %s references unknown variable", ErrInvalidConfiguration, c.Type())
			}
		}
		if _, ok := c.(PropagationConstraint); !ok {
			return fmt.Errorf("%w: constraint %s cannot propagate", ErrInvalidConfiguration, c.Type())
		}
	}
	return nil
}
