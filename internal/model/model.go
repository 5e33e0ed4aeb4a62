// Package model defines core data structures for proforma: the parsed Term
// and the batch report built around it.
package model

import "strconv"

// Notation is a single notation string and where it came from.
type Notation struct {
	Text   string
	Source string // file path relative to the root, or "-e" for arguments
	Line   int
}

// ID returns a stable "source:line" identifier for the notation.
func (n Notation) ID() string {
	return n.Source + ":" + strconv.Itoa(n.Line)
}

// Entry is a notation together with its parse outcome. Exactly one of Term
// and Err is set.
type Entry struct {
	Notation
	Term *Term
	Err  string
}

// Valid reports whether the notation parsed.
func (e *Entry) Valid() bool {
	return e.Term != nil
}

// ModUsage aggregates every occurrence of one (key, value) descriptor.
type ModUsage struct {
	Key     DescriptorKey
	Value   string
	Count   int
	Entries []string
}

// Report is the complete batch result, ready for serialization.
type Report struct {
	Name          string
	Entries       []Entry
	Modifications []ModUsage
}

// Invalid returns the number of entries that failed to parse.
func (r *Report) Invalid() int {
	n := 0
	for i := range r.Entries {
		if !r.Entries[i].Valid() {
			n++
		}
	}
	return n
}
