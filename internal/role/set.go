package role

import (
	"maps"
	"slices"
)

// Set is a set of role names.
type Set map[string]struct{}

func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s Set) Clone() Set { return maps.Clone(s) }

func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for n := range s {
		if !o.Has(n) {
			return false
		}
	}
	return true
}

// Sorted returns the names in ascending order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// SymmetricDifference returns the names present in exactly one of a and b.
func SymmetricDifference(a, b Set) Set {
	out := Set{}
	for n := range a {
		if !b.Has(n) {
			out[n] = struct{}{}
		}
	}
	for n := range b {
		if !a.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}
