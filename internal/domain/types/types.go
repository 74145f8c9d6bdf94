// Package types contains common types used across the application
package types

// Entry is one row of a ranked score sheet.
type Entry struct {
	Rank  int     `json:"rank"`
	Key   string  `json:"key"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Ranking is a slice of entries ordered by rank.
type Ranking []Entry
