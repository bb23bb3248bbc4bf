// Package aggregator computes province and department population totals.
package aggregator

import (
	"slices"

	"github.com/popreader/popreader/pkg/types"
)

// Group is one (province, department) total.
type Group struct {
	Province   string
	Department string
	Population int64
}

// Summary holds population totals keyed by province, then department.
// Keys are matched exactly, case included.
type Summary struct {
	totals map[string]map[string]int64
}

// Aggregate sums the population of records per province and department.
// Totals use 64-bit accumulators so a province cannot overflow int32.
func Aggregate(records []types.Municipality) *Summary {
	s := &Summary{totals: make(map[string]map[string]int64)}
	for _, m := range records {
		s.Add(m)
	}
	return s
}

// Add accumulates a single record.
func (s *Summary) Add(m types.Municipality) {
	depts, ok := s.totals[m.Province]
	if !ok {
		depts = make(map[string]int64)
		s.totals[m.Province] = depts
	}
	depts[m.Department] += int64(m.Population)
}

// Provinces returns the province names in lexicographic order.
func (s *Summary) Provinces() []string {
	provinces := make([]string, 0, len(s.totals))
	for p := range s.totals {
		provinces = append(provinces, p)
	}
	slices.Sort(provinces)
	return provinces
}

// Departments returns the departments of province in lexicographic order.
func (s *Summary) Departments(province string) []string {
	depts := s.totals[province]
	out := make([]string, 0, len(depts))
	for d := range depts {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Total returns the population of one department of one province.
func (s *Summary) Total(province, department string) int64 {
	return s.totals[province][department]
}

// ProvinceTotal returns the sum over all departments of province.
func (s *Summary) ProvinceTotal(province string) int64 {
	var sum int64
	for _, v := range s.totals[province] {
		sum += v
	}
	return sum
}

// GrandTotal returns the sum over every province.
func (s *Summary) GrandTotal() int64 {
	var sum int64
	for p := range s.totals {
		sum += s.ProvinceTotal(p)
	}
	return sum
}

// Groups flattens the summary into rows ordered by province, then department.
func (s *Summary) Groups() []Group {
	var groups []Group
	for _, p := range s.Provinces() {
		for _, d := range s.Departments(p) {
			groups = append(groups, Group{Province: p, Department: d, Population: s.totals[p][d]})
		}
	}
	return groups
}

// Len returns the number of provinces.
func (s *Summary) Len() int {
	return len(s.totals)
}
