// Package ranking orders municipality records by population.
package ranking

import "github.com/popreader/popreader/pkg/types"

// MergeSort sorts s in place with a top-down merge sort. During a merge the
// left element is taken whenever takeLeft(left, right) holds, so a takeLeft
// that is true on ties keeps equal elements in their original order.
func MergeSort[T any](s []T, takeLeft func(l, r T) bool) {
	if len(s) <= 1 {
		return
	}
	mid := len(s) / 2
	MergeSort(s[:mid], takeLeft)
	MergeSort(s[mid:], takeLeft)
	merge(s, mid, takeLeft)
}

// merge combines the sorted runs s[:mid] and s[mid:] back into s.
func merge[T any](s []T, mid int, takeLeft func(l, r T) bool) {
	left := make([]T, mid)
	right := make([]T, len(s)-mid)
	copy(left, s[:mid])
	copy(right, s[mid:])

	i, j, k := 0, 0, 0
	for i < len(left) && j < len(right) {
		if takeLeft(left[i], right[j]) {
			s[k] = left[i]
			i++
		} else {
			s[k] = right[j]
			j++
		}
		k++
	}
	k += copy(s[k:], left[i:])
	copy(s[k:], right[j:])
}

// ByPopulation sorts records by population, largest first. Records with equal
// population keep their relative order.
func ByPopulation(records []types.Municipality) {
	MergeSort(records, func(l, r types.Municipality) bool {
		return l.Population >= r.Population
	})
}

// IsRanked reports whether records are in non-increasing population order.
func IsRanked(records []types.Municipality) bool {
	for i := 1; i < len(records); i++ {
		if records[i-1].Population < records[i].Population {
			return false
		}
	}
	return true
}

// Top returns at most n records from an already ranked slice. A non-positive
// n returns every record.
func Top(records []types.Municipality, n int) []types.Municipality {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
