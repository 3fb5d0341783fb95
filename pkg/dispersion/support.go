package dispersion

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/gitrdm/pdispersion/pkg/fd"
)

// SupportIndex precomputes, for a pair lower bound dlb, which points are far
// enough apart to satisfy the base threshold dlb+1:
//
//	left[a]  = { b : dist[a][b] >= dlb+1 }
//	right[b] = { a : dist[a][b] >= dlb+1 }
//
// It answers support queries with one word-parallel intersection and is only
// valid while the active threshold equals Base. It is immutable.
type SupportIndex struct {
	base  int
	left  []*bitset.BitSet
	right []*bitset.BitSet
}

// NewSupportIndex builds the index in O(P²) time and bits.
func NewSupportIndex(m *DistanceMatrix, dlb int) *SupportIndex {
	p := m.Size()
	idx := &SupportIndex{
		base:  dlb + 1,
		left:  make([]*bitset.BitSet, p),
		right: make([]*bitset.BitSet, p),
	}
	for a := 0; a < p; a++ {
		idx.left[a] = bitset.New(uint(p))
		idx.right[a] = bitset.New(uint(p))
	}
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			if m.At(a, b) >= idx.base {
				idx.left[a].Set(uint(b))
				idx.right[b].Set(uint(a))
			}
		}
	}
	return idx
}

// Base returns dlb+1, the only threshold the index answers for.
func (s *SupportIndex) Base() int { return s.base }

// Left returns the points supporting a as the first value of a pair.
func (s *SupportIndex) Left(a int) *bitset.BitSet { return s.left[a] }

// Right returns the points supporting b as the second value of a pair.
func (s *SupportIndex) Right(b int) *bitset.BitSet { return s.right[b] }

// HasLeftSupport reports whether some value of dom supports a. The second
// result is false when dom is not bitset-backed and the caller must scan.
func (s *SupportIndex) HasLeftSupport(a int, dom fd.Domain) (supported, ok bool) {
	return intersects(s.left[a], dom)
}

// HasRightSupport reports whether some value of dom supports b.
func (s *SupportIndex) HasRightSupport(b int, dom fd.Domain) (supported, ok bool) {
	return intersects(s.right[b], dom)
}

func intersects(sup *bitset.BitSet, dom fd.Domain) (bool, bool) {
	bd, ok := dom.(*fd.BitSetDomain)
	if !ok {
		return false, false
	}
	return sup.IntersectionCardinality(bd.Bits()) > 0, true
}
