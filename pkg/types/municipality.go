// Package types provides core data types for popreader.
package types

import "fmt"

// Municipality is one row of the census dataset.
type Municipality struct {
	// ID is the municipality code (INE code in the census export)
	ID int32 `json:"id" yaml:"id"`

	// Name is the municipality name
	Name string `json:"name" yaml:"name"`

	// Province is the first level of the administrative hierarchy
	Province string `json:"province" yaml:"province"`

	// Department is the second level, scoped to Province
	Department string `json:"department" yaml:"department"`

	// Population is the head count reported for the municipality
	Population int32 `json:"population" yaml:"population"`
}

// String returns a compact single-line representation, used in logs.
func (m Municipality) String() string {
	return fmt.Sprintf("%d %s (%s/%s) pop=%d", m.ID, m.Name, m.Province, m.Department, m.Population)
}
