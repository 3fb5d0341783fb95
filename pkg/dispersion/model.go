package dispersion

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// Ordering names a branching order over the facility variables.
type Ordering string

const (
	// OrderingLexico branches on facilities in index order, smallest point first.
	OrderingLexico Ordering = "lexico"
	// OrderingDomWDeg branches on the facility with the smallest domain per
	// failure-weighted degree, smallest point first.
	OrderingDomWDeg Ordering = "domwdeg"
	// OrderingFirstFail branches on the facility with the smallest domain.
	OrderingFirstFail Ordering = "firstfail"
)

// ParseOrdering maps a name to an Ordering.
func ParseOrdering(name string) (Ordering, error) {
	switch o := Ordering(strings.ToLower(name)); o {
	case OrderingLexico, OrderingDomWDeg, OrderingFirstFail:
		return o, nil
	case "default", "":
		return OrderingDomWDeg, nil
	}
	return "", fmt.Errorf("%w: unknown ordering %q", fd.ErrInvalidConfiguration, name)
}

// Strategy returns the base branching strategy over vars, trying the
// smallest point first.
func (o Ordering) Strategy(vars []*fd.FDVariable) fd.Strategy {
	return o.strategy(vars, fd.ValueMin)
}

func (o Ordering) strategy(vars []*fd.FDVariable, val fd.ValSelector) fd.Strategy {
	switch o {
	case OrderingLexico:
		return fd.NewIntVarSearch(fd.InputOrder, val, vars...)
	case OrderingFirstFail:
		return fd.NewIntVarSearch(fd.FirstFail, val, vars...)
	default:
		return fd.NewIntVarSearch(fd.DomOverWDeg, val, vars...)
	}
}

// Formulation is a model of a Problem ready to be solved.
type Formulation struct {
	Model      *fd.Model
	Facilities []*fd.FDVariable

	// MinDist is the objective variable of the objective-coupled formulation.
	MinDist *fd.FDVariable

	// Ratchet and Leaf are set by the ratchet-coupled formulation.
	Ratchet *Ratchet
	Leaf    *LeafBranchAndBound
}

// Placement reads the facility points out of a full solution vector.
func (f *Formulation) Placement(solution []int) []int {
	out := make([]int, len(f.Facilities))
	for i, v := range f.Facilities {
		out[i] = solution[v.ID()]
	}
	return out
}

// BuildOptions tunes the formulations.
type BuildOptions struct {
	Ordering Ordering

	// Descending tries the largest point first.
	Descending bool

	// AllDifferent additionally forbids two facilities on the same point.
	AllDifferent bool
}

func (o BuildOptions) strategy(vars []*fd.FDVariable) fd.Strategy {
	if o.Descending {
		return o.Ordering.strategy(vars, fd.ValueMax)
	}
	return o.Ordering.Strategy(vars)
}

// BuildObjective models p with an explicit objective variable minDist over
// {0} ∪ the distinct distances, one ObjectiveDistance per pair, and branching
// on the facilities followed by minDist (largest first).
func BuildObjective(p *Problem, opts BuildOptions) (*Formulation, error) {
	f, err := newFormulation(p, opts)
	if err != nil {
		return nil, err
	}
	values := append([]int{0}, p.Distances.DistinctValues()...)
	f.MinDist = f.Model.NewVariableWithName(fd.NewSparseDomain(slices.Compact(values)), "minDist")

	if err := postPairs(f, p, ObjectiveCoupling{MinDist: f.MinDist, Matrix: p.Distances}); err != nil {
		return nil, err
	}
	f.Model.SetStrategy(fd.Sequence(
		opts.strategy(f.Facilities),
		fd.NewIntVarSearch(fd.InputOrder, fd.ValueMax, f.MinDist),
	))
	return f, nil
}

// BuildRatchet models p with one RatchetDistance per pair sharing r, and the
// ordering wrapped in a LeafBranchAndBound. A nil r gets a fresh Ratchet.
func BuildRatchet(p *Problem, r *Ratchet, opts BuildOptions) (*Formulation, error) {
	f, err := newFormulation(p, opts)
	if err != nil {
		return nil, err
	}
	if r == nil {
		r = &Ratchet{}
	}
	f.Ratchet = r
	if err := postPairs(f, p, RatchetCoupling{Ratchet: r, Matrix: p.Distances}); err != nil {
		return nil, err
	}
	if f.Leaf, err = NewLeafBranchAndBound(f.Facilities, r, p.Distances, opts.strategy(f.Facilities)); err != nil {
		return nil, err
	}
	f.Model.SetStrategy(f.Leaf)
	return f, nil
}

func newFormulation(p *Problem, opts BuildOptions) (*Formulation, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil problem", fd.ErrInvalidConfiguration)
	}
	model := fd.NewModel()
	vars := model.NewVariablesWithPrefix(p.Facilities, fd.NewBitSetDomain(p.Points()), "F")
	if opts.AllDifferent && len(vars) > 1 {
		c, err := fd.NewAllDifferent(vars)
		if err != nil {
			return nil, err
		}
		model.AddConstraint(c)
	}
	return &Formulation{Model: model, Facilities: vars}, nil
}

func postPairs(f *Formulation, p *Problem, c PairCoupling) error {
	for i := 0; i < p.Facilities-1; i++ {
		for j := i + 1; j < p.Facilities; j++ {
			if err := c.Post(f.Model, f.Facilities[i], f.Facilities[j], p.PairBound(i, j)); err != nil {
				return err
			}
		}
	}
	return nil
}
