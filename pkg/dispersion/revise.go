package dispersion

import (
	"fmt"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// pair is the filtering core shared by both threshold propagators: two
// facility variables that must be placed at least T apart, where T is
// supplied by the caller on every revise.
type pair struct {
	f1, f2 *fd.FDVariable
	m      *DistanceMatrix
	dlb    int
	sup    *SupportIndex
}

func newPair(f1, f2 *fd.FDVariable, m *DistanceMatrix, dlb int) (pair, error) {
	if m == nil {
		return pair{}, fmt.Errorf("%w: nil distance matrix", fd.ErrInvalidConfiguration)
	}
	if f1 == nil || f2 == nil {
		return pair{}, fmt.Errorf("%w: nil facility variable", fd.ErrInvalidConfiguration)
	}
	if f1 == f2 {
		return pair{}, fmt.Errorf("%w: pair on a single variable %s", fd.ErrInvalidConfiguration, f1.Name())
	}
	for _, f := range []*fd.FDVariable{f1, f2} {
		d := f.Domain()
		if d.Count() > 0 && (d.Min() < 0 || d.Max() >= m.Size()) {
			return pair{}, fmt.Errorf("%w: %s ranges over %s, outside [0, %d)",
				fd.ErrInvalidConfiguration, f.Name(), d, m.Size())
		}
	}
	return pair{f1: f1, f2: f2, m: m, dlb: dlb, sup: m.Support(dlb)}, nil
}

// base is the static threshold dlb+1.
func (p *pair) base() int { return p.dlb + 1 }

// revise removes from each facility the values with no partner at distance
// >= t in the other facility. It reports whether anything was removed.
func (p *pair) revise(s *fd.Solver, st *fd.SolverState, t int) (*fd.SolverState, bool, error) {
	st, c1, err := p.reviseSide(s, st, t, true)
	if err != nil {
		return nil, false, err
	}
	st, c2, err := p.reviseSide(s, st, t, false)
	if err != nil {
		return nil, false, err
	}
	return st, c1 || c2, nil
}

// reviseSide filters F1 against F2 when first is true, F2 against F1 otherwise.
func (p *pair) reviseSide(s *fd.Solver, st *fd.SolverState, t int, first bool) (*fd.SolverState, bool, error) {
	x, y := p.f1, p.f2
	if !first {
		x, y = p.f2, p.f1
	}
	dx := s.GetDomain(st, x.ID())
	dy := s.GetDomain(st, y.ID())
	kept := dx.Filter(func(v int) bool { return p.supported(v, dy, t, first) })
	if kept.Count() == dx.Count() {
		return st, false, nil
	}
	next, err := s.SetDomain(st, x.ID(), kept)
	if err != nil {
		return nil, false, err
	}
	return next, true, nil
}

// supported reports whether v has a partner in other at distance >= t. When
// first is true v is a value of F1 and other is F2's domain.
func (p *pair) supported(v int, other fd.Domain, t int, first bool) bool {
	if t == p.sup.Base() {
		var ok, found bool
		if first {
			found, ok = p.sup.HasLeftSupport(v, other)
		} else {
			found, ok = p.sup.HasRightSupport(v, other)
		}
		if ok {
			return found
		}
	}
	for w := range other.Values() {
		a, b := v, w
		if !first {
			a, b = w, v
		}
		if p.m.At(a, b) >= t {
			return true
		}
	}
	return false
}

// maxDistance is the largest distance between a value of F1 and a value of
// F2 in st, or the realized distance when both are fixed.
func (p *pair) maxDistance(s *fd.Solver, st *fd.SolverState) int {
	d1 := s.GetDomain(st, p.f1.ID())
	d2 := s.GetDomain(st, p.f2.ID())
	if d1.IsSingleton() && d2.IsSingleton() {
		return p.m.At(d1.SingletonValue(), d2.SingletonValue())
	}
	best := 0
	for a := range d1.Values() {
		for b := range d2.Values() {
			best = max(best, p.m.At(a, b))
		}
	}
	return best
}

// entailment classifies the pair against threshold t: Violated if no
// remaining combination reaches t, Satisfied if every one does.
func (p *pair) entailment(s *fd.Solver, st *fd.SolverState, t int) fd.Entailment {
	d1 := s.GetDomain(st, p.f1.ID())
	d2 := s.GetDomain(st, p.f2.ID())
	some, all := false, true
	for a := range d1.Values() {
		for b := range d2.Values() {
			if p.m.At(a, b) >= t {
				some = true
			} else {
				all = false
			}
			if some && !all {
				return fd.Undetermined
			}
		}
	}
	switch {
	case !some:
		return fd.Violated
	case all:
		return fd.Satisfied
	default:
		return fd.Undetermined
	}
}

func (p *pair) describe(kind, extra string) string {
	return fmt.Sprintf("%s(%s, %s%s, dlb=%d)", kind, p.f1.Name(), p.f2.Name(), extra, p.dlb)
}
