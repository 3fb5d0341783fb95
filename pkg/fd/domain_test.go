package fd

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitSetDomainBasics(t *testing.T) {
	d := NewBitSetDomain(9)
	require.Equal(t, 9, d.Count())
	require.Equal(t, 0, d.Min())
	require.Equal(t, 8, d.Max())
	require.True(t, d.Has(5))
	require.False(t, d.Has(9))
	require.False(t, d.Has(-1))

	d2 := d.Remove(5)
	require.False(t, d2.Has(5))
	require.True(t, d.Has(5), "Remove must not modify the receiver")
	require.Equal(t, 8, d2.Count())
	require.Same(t, d2, d2.Remove(5), "removing an absent value returns the receiver")
}

func TestBitSetDomainBounds(t *testing.T) {
	d := NewBitSetDomainFromValues(10, []int{1, 3, 5, 7, 9, 42})
	require.Equal(t, 5, d.Count())
	require.Equal(t, "{1,3,5,7,9}", d.String())

	above := d.RemoveAbove(5)
	require.Equal(t, []int{1, 3, 5}, slices.Collect(above.Values()))
	below := d.RemoveBelow(4)
	require.Equal(t, []int{5, 7, 9}, slices.Collect(below.Values()))

	require.Same(t, Domain(d), d.RemoveAbove(9))
	require.Same(t, Domain(d), d.RemoveBelow(1))
	require.Equal(t, 0, d.RemoveAbove(0).Count())
}

func TestBitSetDomainSingleton(t *testing.T) {
	d := NewBitSetDomain(4).Filter(func(v int) bool { return v == 2 })
	require.True(t, d.IsSingleton())
	require.Equal(t, 2, d.SingletonValue())
	require.Equal(t, "{2}", d.String())

	require.Panics(t, func() { NewBitSetDomain(4).SingletonValue() })
}

func TestSparseDomain(t *testing.T) {
	d := NewSparseDomain([]int{0, 70, 12, 3000, 12})
	require.Equal(t, 4, d.Count())
	require.Equal(t, 0, d.Min())
	require.Equal(t, 3000, d.Max())
	require.Equal(t, []int{0, 12, 70, 3000}, slices.Collect(d.Values()))

	require.Equal(t, []int{0, 12}, slices.Collect(d.RemoveAbove(69).Values()))
	require.Equal(t, []int{70, 3000}, slices.Collect(d.RemoveBelow(13).Values()))
	require.Equal(t, 0, d.RemoveAbove(-1).Count())
	require.Equal(t, 0, d.RemoveBelow(3001).Count())

	r := d.Remove(70)
	require.False(t, r.Has(70))
	require.True(t, d.Has(70))
}

func TestSparseRangeDomain(t *testing.T) {
	d := NewSparseRangeDomain(3, 7)
	require.Equal(t, 5, d.Count())
	require.Equal(t, "{3..7}", d.String())
	require.Equal(t, 0, NewSparseRangeDomain(5, 4).Count())
}

func TestDomainEqualAcrossRepresentations(t *testing.T) {
	dense := NewBitSetDomainFromValues(10, []int{2, 4, 6})
	sparse := NewSparseDomain([]int{6, 4, 2})

	require.True(t, dense.Equal(sparse))
	require.True(t, sparse.Equal(dense))
	require.False(t, dense.Equal(sparse.Remove(4)))
	require.False(t, dense.Equal(nil))
}

func TestEventBetween(t *testing.T) {
	d := NewBitSetDomain(5)

	tests := []struct {
		name    string
		updated Domain
		want    EventMask
	}{
		{"unchanged", d, 0},
		{"interior", d.Remove(2), EventRemove},
		{"bound", d.Remove(0), EventRemove | EventBound},
		{"instantiate", d.Filter(func(v int) bool { return v == 4 }), EventAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, eventBetween(d, tt.updated))
		})
	}
}
