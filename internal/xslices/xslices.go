// Package xslices holds small ordered-set helpers used when building
// an OutputSet during route compute, grounded on the slices/maps-style
// helpers already present in the teacher's indirect dependency graph
// (golang.org/x/exp/slices).
package xslices

import "golang.org/x/exp/slices"

// ContainsInt reports whether v appears in s.
func ContainsInt(s []int, v int) bool {
	return slices.Contains(s, v)
}

// DedupInt returns a copy of s with duplicate values removed,
// preserving first-occurrence order.
func DedupInt(s []int) []int {
	out := make([]int, 0, len(s))
	seen := make(map[int]bool, len(s))
	for _, v := range s {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// InsertSortedInt inserts v into the ascending-sorted slice s if not
// already present, returning the updated slice.
func InsertSortedInt(s []int, v int) []int {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}
