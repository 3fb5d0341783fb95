package dispersion

import (
	"fmt"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// PairCoupling posts the distance constraint between two facilities. The two
// implementations differ in where the threshold comes from and in which
// variables the resulting propagator watches.
type PairCoupling interface {
	Post(model *fd.Model, f1, f2 *fd.FDVariable, dlb int) error
}

// ObjectiveCoupling posts ObjectiveDistance propagators sharing MinDist.
type ObjectiveCoupling struct {
	MinDist *fd.FDVariable
	Matrix  *DistanceMatrix
}

// Post implements PairCoupling.
func (c ObjectiveCoupling) Post(model *fd.Model, f1, f2 *fd.FDVariable, dlb int) error {
	p, err := NewObjectiveDistance(f1, f2, c.MinDist, c.Matrix, dlb)
	if err != nil {
		return fmt.Errorf("post %s-%s: %w", nameOf(f1), nameOf(f2), err)
	}
	model.AddConstraint(p)
	return nil
}

// RatchetCoupling posts RatchetDistance propagators sharing Ratchet.
type RatchetCoupling struct {
	Ratchet *Ratchet
	Matrix  *DistanceMatrix
}

// Post implements PairCoupling.
func (c RatchetCoupling) Post(model *fd.Model, f1, f2 *fd.FDVariable, dlb int) error {
	p, err := NewRatchetDistance(model, f1, f2, c.Ratchet, c.Matrix, dlb)
	if err != nil {
		return fmt.Errorf("post %s-%s: %w", nameOf(f1), nameOf(f2), err)
	}
	model.AddConstraint(p)
	return nil
}

func nameOf(v *fd.FDVariable) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
