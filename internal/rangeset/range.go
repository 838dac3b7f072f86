// Package rangeset holds the range types used to describe changes to an
// ordered item sequence.
package rangeset

import "fmt"

// Range is a contiguous band of positions starting at Index.
type Range struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// End returns one past the last position of the range.
func (r Range) End() int { return r.Index + r.Count }

// Last returns the last position of the range.
func (r Range) Last() int { return r.Index + r.Count - 1 }

func (r Range) Contains(i int) bool { return i >= r.Index && i < r.End() }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Index, r.End()) }

// List is an ordered list of ranges as used in change notifications.
type List []Range

// FromSortedSequence converts an ascending sequence into the minimal list of
// ranges. Duplicates collapse into the current range.
func FromSortedSequence(seq []int) List {
	var out List
	if len(seq) == 0 {
		return out
	}

	cur := Range{Index: seq[0], Count: 1}
	prev := seq[0]
	for _, v := range seq[1:] {
		switch {
		case v == prev:
			continue
		case v == prev+1:
			cur.Count++
		default:
			out = append(out, cur)
			cur = Range{Index: v, Count: 1}
		}
		prev = v
	}
	return append(out, cur)
}

// Total is the sum of all range counts.
func (l List) Total() int {
	n := 0
	for _, r := range l {
		n += r.Count
	}
	return n
}

// Values expands the list into its positions.
func (l List) Values() []int {
	out := make([]int, 0, l.Total())
	for _, r := range l {
		for i := r.Index; i < r.End(); i++ {
			out = append(out, i)
		}
	}
	return out
}

// Reverse reverses the list in place and returns it.
func (l List) Reverse() List {
	for i, j := 0, len(l)-1; i < j; i, j = i+1, j-1 {
		l[i], l[j] = l[j], l[i]
	}
	return l
}

// Single returns a one-range list, or nil for an empty range.
func Single(index, count int) List {
	if count <= 0 {
		return nil
	}
	return List{{Index: index, Count: count}}
}
