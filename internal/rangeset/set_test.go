package rangeset

import (
	"math/rand"
	"slices"
	"sort"
	"testing"
)

func keysOf(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func TestSet_InsertMergesAdjacentRanges(t *testing.T) {
	var s Set
	for _, v := range []int{5, 3, 4, 10, 11, 9, -2} {
		if !s.Insert(v) {
			t.Fatalf("insert %d: expected change", v)
		}
	}
	want := List{{Index: -2, Count: 1}, {Index: 3, Count: 3}, {Index: 9, Count: 3}}
	if got := s.Ranges(); !slices.Equal(got, want) {
		t.Fatalf("ranges: got %v want %v", got, want)
	}
	if !s.IsValid() {
		t.Fatalf("expected valid set: %v", s.Ranges())
	}

	// Closing the gap between two ranges merges them.
	s.Insert(6)
	s.Insert(7)
	s.Insert(8)
	want = List{{Index: -2, Count: 1}, {Index: 3, Count: 9}}
	if got := s.Ranges(); !slices.Equal(got, want) {
		t.Fatalf("ranges after merge: got %v want %v", got, want)
	}
}

func TestSet_InsertExistingIsNoop(t *testing.T) {
	s := NewSet(1, 2, 3, 7)
	before := s.Count()
	for _, v := range []int{1, 2, 3, 7} {
		if s.Insert(v) {
			t.Fatalf("insert %d: expected no change", v)
		}
	}
	if s.Count() != before {
		t.Fatalf("count changed: %d -> %d", before, s.Count())
	}
}

func TestSet_RemoveSplitsRange(t *testing.T) {
	s := NewSet(1, 2, 3, 4, 5)
	if !s.Remove(3) {
		t.Fatalf("expected 3 to be removed")
	}
	want := List{{Index: 1, Count: 2}, {Index: 4, Count: 2}}
	if got := s.Ranges(); !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if s.Remove(3) {
		t.Fatalf("removing an absent value must report false")
	}
	if s.Remove(100) || s.Remove(-100) {
		t.Fatalf("removing out-of-range values must report false")
	}
	if !slices.Equal(s.Ranges(), want) {
		t.Fatalf("set changed after failed removes: %v", s.Ranges())
	}
}

func TestIterator_EraseWhileWalking(t *testing.T) {
	s := NewSet(0, 1, 2, 3, 4, 5, 6, 10, 11)
	it := s.Iter()
	var kept []int
	for it.Valid() {
		if it.Value()%2 == 1 {
			it.Erase()
			continue
		}
		kept = append(kept, it.Value())
		it.Next()
	}
	if want := []int{0, 2, 4, 6, 10}; !slices.Equal(kept, want) {
		t.Fatalf("walked %v want %v", kept, want)
	}
	if got := s.Values(); !slices.Equal(got, []int{0, 2, 4, 6, 10}) {
		t.Fatalf("set after erase %v", got)
	}
	if !s.IsValid() {
		t.Fatalf("invalid after erase: %v", s.Ranges())
	}
}

func TestSymmetricDifference_Examples(t *testing.T) {
	cases := []struct {
		name string
		a, b []int
		want []int
	}{
		{name: "shared start", a: []int{1, 2, 3, 4}, b: []int{1, 2}, want: []int{3, 4}},
		{name: "bridging gap", a: []int{1, 2, 3, 4, 8, 9, 10}, b: []int{5, 6, 7}, want: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{name: "equal sets", a: []int{3, 4, 9}, b: []int{3, 4, 9}, want: nil},
		{name: "one empty", a: nil, b: []int{-1, 0}, want: []int{-1, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SymmetricDifference(NewSet(tc.a...), NewSet(tc.b...))
			if !got.IsValid() {
				t.Fatalf("invalid result %v", got.Ranges())
			}
			if !slices.Equal(got.Values(), tc.want) && !(len(tc.want) == 0 && got.IsEmpty()) {
				t.Fatalf("got %v want %v", got.Values(), tc.want)
			}
		})
	}
}

func TestSet_RandomOpsMatchReference(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		var a, b Set
		refA, refB := map[int]bool{}, map[int]bool{}
		for op := 0; op < 60; op++ {
			v := r.Intn(40) - 10
			if r.Intn(3) == 0 {
				if a.Remove(v) != refA[v] {
					t.Fatalf("round %d: remove(%d) disagrees with reference", round, v)
				}
				delete(refA, v)
			} else {
				if a.Insert(v) == refA[v] {
					t.Fatalf("round %d: insert(%d) disagrees with reference", round, v)
				}
				refA[v] = true
			}
			w := r.Intn(40) - 10
			b.Insert(w)
			refB[w] = true
			if !a.IsValid() || !b.IsValid() {
				t.Fatalf("round %d: invalid set %v / %v", round, a.Ranges(), b.Ranges())
			}
		}

		if got, want := a.Values(), keysOf(refA); !slices.Equal(got, want) {
			t.Fatalf("round %d: values %v want %v", round, got, want)
		}
		for v := -12; v < 32; v++ {
			if a.Contains(v) != refA[v] {
				t.Fatalf("round %d: contains(%d) mismatch", round, v)
			}
		}

		union, xor := map[int]bool{}, map[int]bool{}
		for k := range refA {
			union[k] = true
			if !refB[k] {
				xor[k] = true
			}
		}
		for k := range refB {
			union[k] = true
			if !refA[k] {
				xor[k] = true
			}
		}
		u := Union(a, b)
		if !u.IsValid() || !slices.Equal(u.Values(), keysOf(union)) {
			t.Fatalf("round %d: union %v want %v", round, u.Values(), keysOf(union))
		}
		x := SymmetricDifference(a, b)
		if !x.IsValid() || !slices.Equal(x.Values(), keysOf(xor)) {
			t.Fatalf("round %d: xor %v want %v", round, x.Values(), keysOf(xor))
		}

		// Round trip through a sorted sequence reproduces the minimal form.
		if got := FromSortedSequence(a.Values()); !slices.Equal(got, a.Ranges()) && !(len(got) == 0 && a.IsEmpty()) {
			t.Fatalf("round %d: round trip %v want %v", round, got, a.Ranges())
		}
	}
}
