package rangeset

import (
	"slices"
	"sort"
)

// Set is a set of integers stored as ascending, disjoint ranges. No two
// ranges overlap or touch, and no range is empty.
//
// The zero value is an empty set ready to use.
type Set struct {
	ranges List
}

// NewSet returns a set holding the given values.
func NewSet(values ...int) Set {
	var s Set
	for _, v := range values {
		s.Insert(v)
	}
	return s
}

// FromList builds a set from ranges that are already ordered and disjoint.
func FromList(l List) Set {
	var s Set
	for _, r := range l {
		if r.Count <= 0 {
			continue
		}
		if n := len(s.ranges); n > 0 && s.ranges[n-1].End() >= r.Index {
			last := &s.ranges[n-1]
			if r.End() > last.End() {
				last.Count = r.End() - last.Index
			}
			continue
		}
		s.ranges = append(s.ranges, r)
	}
	return s
}

// Ranges returns a copy of the underlying ranges.
func (s Set) Ranges() List { return slices.Clone(s.ranges) }

// Count returns the number of integers in the set.
func (s Set) Count() int { return s.ranges.Total() }

func (s Set) IsEmpty() bool { return len(s.ranges) == 0 }

// First returns the smallest value. The result is undefined for an empty set.
func (s Set) First() int { return s.ranges[0].Index }

// Last returns the largest value. The result is undefined for an empty set.
func (s Set) Last() int { return s.ranges[len(s.ranges)-1].Last() }

// Values returns the members in ascending order.
func (s Set) Values() []int { return s.ranges.Values() }

func (s Set) Clone() Set { return Set{ranges: slices.Clone(s.ranges)} }

func (s *Set) Clear() { s.ranges = nil }

func (s Set) Contains(i int) bool { return s.rangeFor(i) >= 0 }

func (s Set) Equal(o Set) bool { return slices.Equal(s.ranges, o.ranges) }

// rangeFor returns the position of the range holding i, or -1.
func (s Set) rangeFor(i int) int {
	// Index of the first range starting after i.
	n := sort.Search(len(s.ranges), func(k int) bool { return s.ranges[k].Index > i })
	if n == 0 {
		return -1
	}
	if s.ranges[n-1].Contains(i) {
		return n - 1
	}
	return -1
}

// Insert adds i and reports whether the set changed.
func (s *Set) Insert(i int) bool {
	if len(s.ranges) == 0 {
		s.ranges = List{{Index: i, Count: 1}}
		return true
	}

	first := &s.ranges[0]
	if i < first.Index {
		if i == first.Index-1 {
			first.Index--
			first.Count++
		} else {
			s.ranges = slices.Insert(s.ranges, 0, Range{Index: i, Count: 1})
		}
		return true
	}

	lastPos := len(s.ranges) - 1
	last := &s.ranges[lastPos]
	if i >= last.Index {
		switch end := last.End(); {
		case i < end:
			return false
		case i == end:
			last.Count++
		default:
			s.ranges = append(s.ranges, Range{Index: i, Count: 1})
		}
		return true
	}

	// i lies between the start of the first range and the start of the
	// last one: find low with low.Index <= i < high.Index.
	high := sort.Search(len(s.ranges), func(k int) bool { return s.ranges[k].Index > i })
	low := high - 1
	lr, hr := &s.ranges[low], &s.ranges[high]

	switch end := lr.End(); {
	case i < end:
		return false
	case i == end && i == hr.Index-1:
		lr.Count += 1 + hr.Count
		s.ranges = slices.Delete(s.ranges, high, high+1)
	case i == end:
		lr.Count++
	case i == hr.Index-1:
		hr.Index--
		hr.Count++
	default:
		s.ranges = slices.Insert(s.ranges, high, Range{Index: i, Count: 1})
	}
	return true
}

// Remove deletes i and reports whether it was present. Removing a value from
// the middle of a range splits it.
func (s *Set) Remove(i int) bool {
	pos := s.rangeFor(i)
	if pos < 0 {
		return false
	}
	s.removeAt(pos, i-s.ranges[pos].Index)
	return true
}

// removeAt deletes the value at offset within range pos and returns the
// position of the range holding the next larger value.
func (s *Set) removeAt(pos, offset int) int {
	r := &s.ranges[pos]
	switch {
	case offset == 0 && r.Count > 1:
		r.Index++
		r.Count--
		return pos
	case offset == 0:
		s.ranges = slices.Delete(s.ranges, pos, pos+1)
		return pos
	case offset == r.Count-1:
		r.Count--
		return pos + 1
	default:
		tail := Range{Index: r.Index + offset + 1, Count: r.Count - offset - 1}
		r.Count = offset
		s.ranges = slices.Insert(s.ranges, pos+1, tail)
		return pos + 1
	}
}

// Union returns the integers present in a or b.
func Union(a, b Set) Set {
	var sum Set
	i, j := 0, 0
	ra, rb := a.ranges, b.ranges

	for i < len(ra) || j < len(rb) {
		if i == len(ra) {
			sum.ranges = append(sum.ranges, rb[j:]...)
			break
		}
		if j == len(rb) {
			sum.ranges = append(sum.ranges, ra[i:]...)
			break
		}

		index := min(ra[i].Index, rb[j].Index)
		count := 0
		for {
			advanced := false
			if i < len(ra) && ra[i].Index <= index+count {
				count = max(count, ra[i].End()-index)
				i++
				advanced = true
			}
			if j < len(rb) && rb[j].Index <= index+count {
				count = max(count, rb[j].End()-index)
				j++
				advanced = true
			}
			if !advanced {
				break
			}
		}
		sum.ranges = append(sum.ranges, Range{Index: index, Count: count})
	}
	return sum
}

// SymmetricDifference returns the integers present in exactly one of a and b.
//
// Every range start and end toggles membership, so the result can be read off
// the merged, sorted list of boundaries. A boundary that occurs in both sets
// cancels out.
func SymmetricDifference(a, b Set) Set {
	bounds := make([]int, 0, 2*(len(a.ranges)+len(b.ranges)))
	for _, r := range a.ranges {
		bounds = append(bounds, r.Index, r.End())
	}
	mid := len(bounds)
	for _, r := range b.ranges {
		bounds = append(bounds, r.Index, r.End())
	}
	bounds = mergeSorted(bounds[:mid], bounds[mid:])

	var result Set
	for k := 0; k < len(bounds); {
		begin := bounds[k]
		k++
		if bounds[k] == begin {
			// Both sets start a range here.
			k++
			continue
		}

		var end int
		for {
			end = bounds[k]
			k++
			if k == len(bounds) || bounds[k] != end {
				break
			}
			// One range ends where the other starts; keep going.
			k++
		}
		result.ranges = append(result.ranges, Range{Index: begin, Count: end - begin})
	}
	return result
}

func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if b[j] < a[i] {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// IsValid reports whether the ranges are ascending, non-empty and neither
// overlap nor touch.
func (s Set) IsValid() bool {
	for k, r := range s.ranges {
		if r.Count <= 0 {
			return false
		}
		if k > 0 && s.ranges[k-1].End() >= r.Index {
			return false
		}
	}
	return true
}
