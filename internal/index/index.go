// Package index provides the identifier index for point lookups over a store.
package index

import "github.com/popreader/popreader/pkg/types"

// Index maps municipality identifiers to records. It is a derived view over
// a store: it can be rebuilt at any time and is not updated when the store is
// reordered, since reordering does not change membership.
type Index struct {
	byID       map[int32]types.Municipality
	duplicates int
}

// Build indexes records in order. When two records share an identifier the
// later one wins.
func Build(records []types.Municipality) *Index {
	idx := &Index{byID: make(map[int32]types.Municipality, len(records))}
	for _, m := range records {
		if _, ok := idx.byID[m.ID]; ok {
			idx.duplicates++
		}
		idx.byID[m.ID] = m
	}
	return idx
}

// Lookup returns the record with the given identifier. A miss is reported
// with ok == false and is not an error.
func (idx *Index) Lookup(id int32) (m types.Municipality, ok bool) {
	m, ok = idx.byID[id]
	return m, ok
}

// Len returns the number of distinct identifiers.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// Duplicates returns how many records were shadowed by a later record with
// the same identifier.
func (idx *Index) Duplicates() int {
	return idx.duplicates
}
