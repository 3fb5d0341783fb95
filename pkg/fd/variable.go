package fd

import "fmt"

// FDVariable represents a finite-domain decision variable.
//
// FDVariable stores the initial domain. During solving, the Solver uses the
// variable's ID to track current domains in SolverState via copy-on-write.
// This separation enables:
//   - Model immutability (can be shared by read-only observers)
//   - Efficient O(1) state updates (only modified domains are tracked)
//   - Backtracking by discarding state nodes
type FDVariable struct {
	id     int    // Unique identifier within the model
	domain Domain // Initial domain of possible values
	name   string // Optional name for debugging
}

// NewFDVariable creates a new finite-domain variable with the given ID and domain.
func NewFDVariable(id int, domain Domain) *FDVariable {
	return &FDVariable{
		id:     id,
		domain: domain,
		name:   fmt.Sprintf("v%d", id),
	}
}

// NewFDVariableWithName creates a named finite-domain variable for easier debugging.
func NewFDVariableWithName(id int, domain Domain, name string) *FDVariable {
	return &FDVariable{
		id:     id,
		domain: domain,
		name:   name,
	}
}

// ID returns the unique identifier of this variable.
func (v *FDVariable) ID() int {
	return v.id
}

// Domain returns the initial domain of the variable.
func (v *FDVariable) Domain() Domain {
	return v.domain
}

// Name returns the variable's name for debugging.
func (v *FDVariable) Name() string {
	return v.name
}

// String returns a human-readable representation.
func (v *FDVariable) String() string {
	if v.domain.IsSingleton() {
		return fmt.Sprintf("%s=%d", v.name, v.domain.SingletonValue())
	}
	return fmt.Sprintf("%s∈%s", v.name, v.domain.String())
}

// Cell is a trailed integer registered with a model. Its current value lives
// in the SolverState chain, so a write made below a search node is undone
// when the search backtracks above it.
type Cell struct {
	id      int
	initial int
}

// ID returns the cell's index within its model.
func (c *Cell) ID() int { return c.id }

// Initial returns the value the cell holds in the root state.
func (c *Cell) Initial() int { return c.initial }
