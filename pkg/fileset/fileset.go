// Package fileset provides a sorted-on-demand string set used for the
// per-package path list and the transaction engine's protected file-set.
package fileset

import "sort"

// Set is a sorted-on-demand string set: items accumulate in whatever order
// Add sees them, and the slice is sorted lazily the first time Contains,
// Remove, or Sorted needs an order after a mutation. Contains and Remove
// are then O(log n) via sort.SearchStrings on the sorted slice; Add first
// checks Contains (which sorts if needed) to skip duplicates, then appends
// and flips the dirty flag. Grounded on the shape of the
// teacher's pkg/set.Set (same Add/Contains/Remove surface) but backed by
// a slice instead of a map, since the protected file-set is also walked
// in order when the engine diffs an old .list against a new one.
type Set struct {
	items  []string
	sorted bool
}

// New creates an empty Set.
func New() *Set {
	return &Set{}
}

// FromSlice builds a Set from an existing slice of paths.
func FromSlice(paths []string) *Set {
	s := New()
	for _, p := range paths {
		s.Add(p)
	}

	return s
}

// Add inserts value into the set. No-op if already present.
func (s *Set) Add(value string) {
	if s.Contains(value) {
		return
	}

	s.items = append(s.items, value)
	s.sorted = false
}

// Remove deletes value from the set.
func (s *Set) Remove(value string) {
	s.ensureSorted()

	i := sort.SearchStrings(s.items, value)
	if i < len(s.items) && s.items[i] == value {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// Contains reports whether value is present, sorting lazily if needed.
func (s *Set) Contains(value string) bool {
	s.ensureSorted()

	i := sort.SearchStrings(s.items, value)

	return i < len(s.items) && s.items[i] == value
}

func (s *Set) ensureSorted() {
	if !s.sorted {
		sort.Strings(s.items)

		s.sorted = true
	}
}

// Sorted returns the set's contents in sorted order, sorting in place the
// first time it is called after a mutation.
func (s *Set) Sorted() []string {
	s.ensureSorted()

	return s.items
}

// Len returns the number of elements in the set.
func (s *Set) Len() int {
	return len(s.items)
}

// Union adds every element of other into s.
func (s *Set) Union(other *Set) {
	for _, v := range other.Sorted() {
		s.Add(v)
	}
}

// Difference returns the elements of s not present in other, sorted.
func (s *Set) Difference(other *Set) []string {
	sorted := s.Sorted()

	out := make([]string, 0, len(sorted))

	for _, v := range sorted {
		if !other.Contains(v) {
			out = append(out, v)
		}
	}

	return out
}
