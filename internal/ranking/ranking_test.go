package ranking

import (
	"slices"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/popreader/popreader/pkg/types"
)

func ids(records []types.Municipality) []int32 {
	out := make([]int32, len(records))
	for i, m := range records {
		out[i] = m.ID
	}
	return out
}

func TestByPopulation_Basic(t *testing.T) {
	records := []types.Municipality{
		{ID: 1, Name: "A", Province: "P1", Department: "D1", Population: 500},
		{ID: 2, Name: "B", Province: "P1", Department: "D2", Population: 300},
		{ID: 3, Name: "C", Province: "P2", Department: "D1", Population: 800},
	}
	ByPopulation(records)
	assert.Equal(t, []int32{3, 1, 2}, ids(records))
	assert.True(t, IsRanked(records))
}

func TestByPopulation_TiesKeepOrder(t *testing.T) {
	records := []types.Municipality{
		{ID: 1, Population: 10},
		{ID: 2, Population: 20},
		{ID: 3, Population: 10},
		{ID: 4, Population: 20},
		{ID: 5, Population: 10},
	}
	ByPopulation(records)
	assert.Equal(t, []int32{2, 4, 1, 3, 5}, ids(records))
}

func TestByPopulation_AllEqual(t *testing.T) {
	records := make([]types.Municipality, 9)
	for i := range records {
		records[i] = types.Municipality{ID: int32(i), Population: 42}
	}
	ByPopulation(records)
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8}, ids(records))
}

func TestByPopulation_EmptyAndSingle(t *testing.T) {
	var empty []types.Municipality
	ByPopulation(empty)
	assert.Empty(t, empty)

	one := []types.Municipality{{ID: 9, Population: 1}}
	ByPopulation(one)
	assert.Equal(t, []int32{9}, ids(one))
}

func TestMergeSort_Ints(t *testing.T) {
	s := []int{5, 2, 9, 1, 5, 6, 0, -3}
	MergeSort(s, func(l, r int) bool { return l <= r })
	assert.Equal(t, []int{-3, 0, 1, 2, 5, 5, 6, 9}, s)
}

func TestIsRanked(t *testing.T) {
	assert.True(t, IsRanked(nil))
	assert.True(t, IsRanked([]types.Municipality{{Population: 3}, {Population: 3}, {Population: 1}}))
	assert.False(t, IsRanked([]types.Municipality{{Population: 1}, {Population: 2}}))
}

func TestTop(t *testing.T) {
	records := []types.Municipality{{ID: 1}, {ID: 2}, {ID: 3}}
	assert.Len(t, Top(records, 2), 2)
	assert.Len(t, Top(records, 0), 3)
	assert.Len(t, Top(records, 10), 3)
}

// TestProperty_RankingMatchesStableSort checks the merge sort against the
// standard library's stable sort: same permutation, descending, stable on ties.
func TestProperty_RankingMatchesStableSort(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	build := func(pops []int32) []types.Municipality {
		records := make([]types.Municipality, len(pops))
		for i, p := range pops {
			records[i] = types.Municipality{ID: int32(i), Population: p}
		}
		return records
	}

	properties.Property("ranking is a stable descending permutation", prop.ForAll(
		func(pops []int32) bool {
			got := build(pops)
			ByPopulation(got)

			want := build(pops)
			sort.SliceStable(want, func(i, j int) bool {
				return want[i].Population > want[j].Population
			})
			return IsRanked(got) && slices.Equal(got, want)
		},
		gen.SliceOf(gen.Int32Range(0, 50)),
	))

	properties.Property("ranking is idempotent", prop.ForAll(
		func(pops []int32) bool {
			once := build(pops)
			ByPopulation(once)
			twice := slices.Clone(once)
			ByPopulation(twice)
			return slices.Equal(once, twice)
		},
		gen.SliceOf(gen.Int32Range(0, 50)),
	))

	properties.TestingRun(t)
}
