// Package fd provides a small finite-domain constraint engine: immutable
// domains, variables, trailed copy-on-write solver state, an event-driven
// propagation scheduler, pluggable branching strategies and depth-first
// search with optional branch-and-bound.
//
// This file defines the Domain interface and its two implementations.
package fd

import (
	"fmt"
	"iter"
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
)

// Domain represents a finite set of non-negative integer values that a
// variable can take.
//
// All domain implementations must be immutable: operations return new domains
// rather than modifying in place, so a domain referenced by an ancestor search
// state is never disturbed by work done in a descendant.
//
// Thread safety: Domain implementations are safe for concurrent read access.
type Domain interface {
	// Count returns the number of values in the domain.
	// An empty domain (Count() == 0) represents an inconsistent state.
	Count() int

	// Has returns true if the domain contains the given value.
	Has(value int) bool

	// Remove returns a domain without the specified value.
	// If the value is not present the receiver is returned unchanged.
	Remove(value int) Domain

	// Filter returns a domain holding only the values for which keep
	// returns true. The receiver is returned when nothing is dropped.
	Filter(keep func(value int) bool) Domain

	// RemoveAbove returns a domain with all values > threshold removed.
	RemoveAbove(threshold int) Domain

	// RemoveBelow returns a domain with all values < threshold removed.
	RemoveBelow(threshold int) Domain

	// IsSingleton returns true if the domain contains exactly one value.
	IsSingleton() bool

	// SingletonValue returns the single value if IsSingleton() is true.
	// Panics if the domain is not a singleton.
	SingletonValue() int

	// Min returns the minimum value in the domain, or 0 if empty.
	Min() int

	// Max returns the maximum value in the domain, or 0 if empty.
	Max() int

	// Values yields the domain's values in ascending order.
	Values() iter.Seq[int]

	// Equal returns true if this domain contains exactly the same values as other.
	Equal(other Domain) bool

	// String returns a human-readable representation of the domain.
	String() string
}

// BitSetDomain is a dense Domain over the values [0, size). Each value is one
// bit of a bitset.BitSet, giving O(1) membership and word-parallel set
// operations. It is the representation used for facility variables, whose
// values are point indices.
//
// Memory usage: (size + 63) / 64 * 8 bytes plus a small header.
type BitSetDomain struct {
	size  int
	bits  *bitset.BitSet
	count int
	min   int
	max   int
}

// NewBitSetDomain creates a domain containing all values from 0 to size-1.
func NewBitSetDomain(size int) *BitSetDomain {
	if size <= 0 {
		return sealBitSet(0, bitset.New(0))
	}
	b := bitset.New(uint(size))
	for i := 0; i < size; i++ {
		b.Set(uint(i))
	}
	return sealBitSet(size, b)
}

// NewBitSetDomainFromValues creates a domain over [0, size) containing only
// the specified values. Values outside the range are ignored.
func NewBitSetDomainFromValues(size int, values []int) *BitSetDomain {
	if size <= 0 {
		return sealBitSet(0, bitset.New(0))
	}
	b := bitset.New(uint(size))
	for _, v := range values {
		if v >= 0 && v < size {
			b.Set(uint(v))
		}
	}
	return sealBitSet(size, b)
}

// sealBitSet caches count and bounds. The bitset must not be modified afterwards.
func sealBitSet(size int, b *bitset.BitSet) *BitSetDomain {
	d := &BitSetDomain{size: size, bits: b}
	first := true
	for i, ok := b.NextSet(0); ok && int(i) < size; i, ok = b.NextSet(i + 1) {
		if first {
			d.min = int(i)
			first = false
		}
		d.max = int(i)
		d.count++
	}
	return d
}

// Size returns the exclusive upper limit of representable values.
func (d *BitSetDomain) Size() int { return d.size }

// Bits exposes the underlying bitset for word-parallel queries.
// Callers must not modify it.
func (d *BitSetDomain) Bits() *bitset.BitSet { return d.bits }

// Count returns the number of values in the domain.
func (d *BitSetDomain) Count() int { return d.count }

// Has returns true if the domain contains the value. O(1).
func (d *BitSetDomain) Has(value int) bool {
	if value < 0 || value >= d.size {
		return false
	}
	return d.bits.Test(uint(value))
}

// Remove returns a new domain without the specified value.
func (d *BitSetDomain) Remove(value int) Domain {
	if !d.Has(value) {
		return d
	}
	b := d.bits.Clone()
	b.Clear(uint(value))
	return sealBitSet(d.size, b)
}

// Filter returns a new domain holding the values accepted by keep.
func (d *BitSetDomain) Filter(keep func(value int) bool) Domain {
	var b *bitset.BitSet
	for v := range d.Values() {
		if keep(v) {
			continue
		}
		if b == nil {
			b = d.bits.Clone()
		}
		b.Clear(uint(v))
	}
	if b == nil {
		return d
	}
	return sealBitSet(d.size, b)
}

// RemoveAbove returns a domain with all values > threshold removed.
func (d *BitSetDomain) RemoveAbove(threshold int) Domain {
	if d.count == 0 || threshold >= d.max {
		return d
	}
	return d.Filter(func(v int) bool { return v <= threshold })
}

// RemoveBelow returns a domain with all values < threshold removed.
func (d *BitSetDomain) RemoveBelow(threshold int) Domain {
	if d.count == 0 || threshold <= d.min {
		return d
	}
	return d.Filter(func(v int) bool { return v >= threshold })
}

// IsSingleton returns true if the domain contains exactly one value.
func (d *BitSetDomain) IsSingleton() bool { return d.count == 1 }

// SingletonValue returns the single value in the domain.
// Panics if the domain is not a singleton.
func (d *BitSetDomain) SingletonValue() int {
	if d.count != 1 {
		panic("SingletonValue called on non-singleton domain")
	}
	return d.min
}

// Min returns the minimum value in the domain.
func (d *BitSetDomain) Min() int { return d.min }

// Max returns the maximum value in the domain.
func (d *BitSetDomain) Max() int { return d.max }

// Values yields the values in ascending order.
func (d *BitSetDomain) Values() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, ok := d.bits.NextSet(0); ok && int(i) < d.size; i, ok = d.bits.NextSet(i + 1) {
			if !yield(int(i)) {
				return
			}
		}
	}
}

// Equal returns true if this domain contains exactly the same values as other.
func (d *BitSetDomain) Equal(other Domain) bool {
	if o, ok := other.(*BitSetDomain); ok && o.size == d.size {
		return d.count == o.count && d.bits.Equal(o.bits)
	}
	return sameValues(d, other)
}

// String returns a human-readable representation of the domain.
// Example: "{1,3,5,7,9}" or "{0..99}" for ranges.
func (d *BitSetDomain) String() string { return formatDomain(d) }

// SparseDomain is a Domain over arbitrary non-negative values backed by a
// compressed roaring bitmap. It suits variables whose values are few but
// spread over a wide range, such as an objective ranging over the distinct
// scaled distances of an instance.
type SparseDomain struct {
	rb *roaring.Bitmap
}

// NewSparseDomain creates a domain holding the given values. Values outside
// [0, math.MaxUint32] are ignored.
func NewSparseDomain(values []int) *SparseDomain {
	rb := roaring.New()
	for _, v := range values {
		if v >= 0 && v <= math.MaxUint32 {
			rb.Add(uint32(v))
		}
	}
	rb.RunOptimize()
	return &SparseDomain{rb: rb}
}

// NewSparseRangeDomain creates a domain holding every value in [lo, hi].
func NewSparseRangeDomain(lo, hi int) *SparseDomain {
	rb := roaring.New()
	if lo < 0 {
		lo = 0
	}
	if hi > math.MaxUint32 {
		hi = math.MaxUint32
	}
	if lo <= hi {
		rb.AddRange(uint64(lo), uint64(hi)+1)
	}
	return &SparseDomain{rb: rb}
}

// Count returns the number of values in the domain.
func (d *SparseDomain) Count() int { return int(d.rb.GetCardinality()) }

// Has returns true if the domain contains the value.
func (d *SparseDomain) Has(value int) bool {
	return value >= 0 && value <= math.MaxUint32 && d.rb.Contains(uint32(value))
}

// Remove returns a new domain without the specified value.
func (d *SparseDomain) Remove(value int) Domain {
	if !d.Has(value) {
		return d
	}
	rb := d.rb.Clone()
	rb.Remove(uint32(value))
	return &SparseDomain{rb: rb}
}

// Filter returns a new domain holding the values accepted by keep.
func (d *SparseDomain) Filter(keep func(value int) bool) Domain {
	var rb *roaring.Bitmap
	d.rb.Iterate(func(x uint32) bool {
		if !keep(int(x)) {
			if rb == nil {
				rb = d.rb.Clone()
			}
			rb.Remove(x)
		}
		return true
	})
	if rb == nil {
		return d
	}
	return &SparseDomain{rb: rb}
}

// RemoveAbove returns a domain with all values > threshold removed.
func (d *SparseDomain) RemoveAbove(threshold int) Domain {
	if d.rb.IsEmpty() || threshold >= d.Max() {
		return d
	}
	rb := d.rb.Clone()
	if threshold < 0 {
		rb.Clear()
	} else {
		rb.RemoveRange(uint64(threshold)+1, uint64(d.Max())+1)
	}
	return &SparseDomain{rb: rb}
}

// RemoveBelow returns a domain with all values < threshold removed.
func (d *SparseDomain) RemoveBelow(threshold int) Domain {
	if d.rb.IsEmpty() || threshold <= d.Min() {
		return d
	}
	rb := d.rb.Clone()
	rb.RemoveRange(0, uint64(threshold))
	return &SparseDomain{rb: rb}
}

// IsSingleton returns true if the domain contains exactly one value.
func (d *SparseDomain) IsSingleton() bool { return d.rb.GetCardinality() == 1 }

// SingletonValue returns the single value in the domain.
// Panics if the domain is not a singleton.
func (d *SparseDomain) SingletonValue() int {
	if !d.IsSingleton() {
		panic("SingletonValue called on non-singleton domain")
	}
	return int(d.rb.Minimum())
}

// Min returns the minimum value in the domain, or 0 if empty.
func (d *SparseDomain) Min() int {
	if d.rb.IsEmpty() {
		return 0
	}
	return int(d.rb.Minimum())
}

// Max returns the maximum value in the domain, or 0 if empty.
func (d *SparseDomain) Max() int {
	if d.rb.IsEmpty() {
		return 0
	}
	return int(d.rb.Maximum())
}

// Values yields the values in ascending order.
func (d *SparseDomain) Values() iter.Seq[int] {
	return func(yield func(int) bool) {
		it := d.rb.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}

// Equal returns true if this domain contains exactly the same values as other.
func (d *SparseDomain) Equal(other Domain) bool {
	if o, ok := other.(*SparseDomain); ok {
		return d.rb.Equals(o.rb)
	}
	return sameValues(d, other)
}

// String returns a human-readable representation of the domain.
func (d *SparseDomain) String() string { return formatDomain(d) }

// sameValues compares two domains of possibly different representations.
func sameValues(a, b Domain) bool {
	if b == nil || a.Count() != b.Count() {
		return false
	}
	for v := range a.Values() {
		if !b.Has(v) {
			return false
		}
	}
	return true
}

// formatDomain renders {a..b} for consecutive ranges and a truncated list otherwise.
func formatDomain(d Domain) string {
	count := d.Count()
	if count == 0 {
		return "{}"
	}
	if count == 1 {
		return fmt.Sprintf("{%d}", d.Min())
	}
	if d.Max()-d.Min()+1 == count {
		return fmt.Sprintf("{%d..%d}", d.Min(), d.Max())
	}

	var builder strings.Builder
	builder.WriteString("{")
	i := 0
	for v := range d.Values() {
		if i > 0 {
			builder.WriteString(",")
		}
		if i >= 20 {
			builder.WriteString(fmt.Sprintf("...+%d more", count-20))
			break
		}
		builder.WriteString(fmt.Sprintf("%d", v))
		i++
	}
	builder.WriteString("}")
	return builder.String()
}
