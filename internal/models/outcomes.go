package models

import "fmt"

// OutcomeTable maps a 1-based draw slot to a human readable outcome label.
// It is read-only once built.
type OutcomeTable struct {
	labels []string
}

// NewOutcomeTable builds a table whose slot i (1-based) holds labels[i-1].
func NewOutcomeTable(labels ...string) OutcomeTable {
	cp := make([]string, len(labels))
	copy(cp, labels)
	return OutcomeTable{labels: cp}
}

// Size returns N, the number of slots in the table.
func (t OutcomeTable) Size() int {
	return len(t.labels)
}

// LabelFor returns the label for slot in 1..Size(). Any other slot is a
// programming error and panics.
func (t OutcomeTable) LabelFor(slot int) string {
	if slot < 1 || slot > len(t.labels) {
		panic(fmt.Sprintf("outcome slot %d out of range 1..%d", slot, len(t.labels)))
	}
	return t.labels[slot-1]
}

// Contains reports whether label is one of the table's outcomes.
func (t OutcomeTable) Contains(label string) bool {
	for _, l := range t.labels {
		if l == label {
			return true
		}
	}
	return false
}

// DefaultOutcomeTables returns the fixed outcome tables for every category.
// A fresh map is returned on each call so callers cannot share mutations.
func DefaultOutcomeTables() map[Category]OutcomeTable {
	return map[Category]OutcomeTable{
		CategoryWildcard: NewOutcomeTable("Skip", "Freeze", "Guess the points"),
		CategoryPenalty:  NewOutcomeTable("any 2 members out for 10 min", "5 min whole team out"),
	}
}
