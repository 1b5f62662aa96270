package store

import (
	"strings"

	"golang.org/x/text/cases"
)

type Op int

const (
	// OpEq is an exact match.
	OpEq Op = iota
	// OpContainsFold is a case-insensitive literal substring match on a text field.
	OpContainsFold
)

// Condition names a field by its storage name (snake_case).
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter []Condition

// Split separates exact conditions, which every backend can push down, from
// case-folded ones.
func (f Filter) Split() (exact, folded Filter) {
	for _, cond := range f {
		if cond.Op == OpContainsFold {
			folded = append(folded, cond)
		} else {
			exact = append(exact, cond)
		}
	}
	return exact, folded
}

func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

func ContainsFold(field, substr string) Condition {
	return Condition{Field: field, Op: OpContainsFold, Value: substr}
}

type SortField struct {
	Field string
	Desc  bool
}

func Asc(field string) SortField  { return SortField{Field: field} }
func Desc(field string) SortField { return SortField{Field: field, Desc: true} }

type Query struct {
	Filter Filter
	Sort   []SortField
}

// FoldContains reports whether substr occurs in text under Unicode case
// folding. The SQL store and the client-side filters both match with it.
func FoldContains(text, substr string) bool {
	if substr == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(text), fold.String(substr))
}
