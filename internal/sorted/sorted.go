// Package sorted implements a sorted set of unique ints backed by a slice.
package sorted

import (
	"fmt"
	"slices"
)

// Set is a sorted slice of unique ints. The zero value is an empty set.
type Set []int

// Contains reports whether v is in the set.
func (s Set) Contains(v int) bool {
	_, ok := slices.BinarySearch(s, v)
	return ok
}

// Insert adds v, returning false if it was already present.
func (s *Set) Insert(v int) bool {
	i, ok := slices.BinarySearch(*s, v)
	if ok {
		return false
	}
	*s = slices.Insert(*s, i, v)
	return true
}

// Erase removes v, returning false if it was not present.
func (s *Set) Erase(v int) bool {
	i, ok := slices.BinarySearch(*s, v)
	if !ok {
		return false
	}
	*s = slices.Delete(*s, i, i+1)
	return true
}

// MustInsert panics if v is already present.
func (s *Set) MustInsert(v int) {
	if !s.Insert(v) {
		panic(fmt.Sprintf("sorted: duplicate value %d", v))
	}
}

// MustErase panics unless exactly one v was removed.
func (s *Set) MustErase(v int) {
	if !s.Erase(v) {
		panic(fmt.Sprintf("sorted: missing value %d", v))
	}
}

// Clone returns a copy that shares no storage with s.
func (s Set) Clone() Set {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}
