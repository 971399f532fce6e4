// Package index holds word frequency tables and the vocabulary index built
// from them: a ranked, bounded word to id mapping with a framed on-disk
// format.
package index

import (
	"fmt"
	"strings"
)

// Entry is one vocabulary slot.
type Entry struct {
	Word string `json:"w"`
	ID   int    `json:"i"`
}

// Index maps the most frequent words to contiguous ids 0..Len()-1 by rank.
type Index struct {
	entries []Entry
	ids     map[string]int
}

// Build selects the maxSize most frequent words of global and numbers them
// by rank. Ties keep the global mapping's first-seen order. A maxSize of
// zero or less yields an empty index.
func Build(global *Counts, maxSize int) *Index {
	if maxSize <= 0 {
		return newIndex(nil)
	}
	ranked := global.MostCommon(maxSize)
	entries := make([]Entry, len(ranked))
	for i, wc := range ranked {
		entries[i] = Entry{Word: wc.Word, ID: i}
	}
	return newIndex(entries)
}

func newIndex(entries []Entry) *Index {
	ids := make(map[string]int, len(entries))
	for _, e := range entries {
		ids[e.Word] = e.ID
	}
	return &Index{entries: entries, ids: ids}
}

// FromEntries rebuilds an index from stored entries in any order. Words must
// be unique and ids must be exactly 0..len(entries)-1.
func FromEntries(entries []Entry) (*Index, error) {
	ordered := make([]Entry, len(entries))
	filled := make([]bool, len(entries))
	words := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.ID < 0 || e.ID >= len(entries) {
			return nil, fmt.Errorf("id %d for %q out of range [0,%d)", e.ID, e.Word, len(entries))
		}
		if filled[e.ID] {
			return nil, fmt.Errorf("duplicate id %d", e.ID)
		}
		if _, dup := words[e.Word]; dup {
			return nil, fmt.Errorf("duplicate word %q", e.Word)
		}
		filled[e.ID] = true
		words[e.Word] = struct{}{}
		ordered[e.ID] = e
	}
	return newIndex(ordered), nil
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

// ID returns the id assigned to word.
func (ix *Index) ID(word string) (int, bool) {
	id, ok := ix.ids[word]
	return id, ok
}

// Word returns the word with the given id.
func (ix *Index) Word(id int) (string, bool) {
	if id < 0 || id >= len(ix.entries) {
		return "", false
	}
	return ix.entries[id].Word, true
}

// Entries returns a copy of the entries in id order.
func (ix *Index) Entries() []Entry {
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Equal reports whether both indexes assign the same ids to the same words.
func (ix *Index) Equal(other *Index) bool {
	if ix.Len() != other.Len() {
		return false
	}
	for i, e := range ix.entries {
		if other.entries[i] != e {
			return false
		}
	}
	return true
}

// String lists the entries in id order, one "id<TAB>word" per line.
func (ix *Index) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Index(size=%d)\n", len(ix.entries))
	for _, e := range ix.entries {
		fmt.Fprintf(&b, "%d\t%s\n", e.ID, e.Word)
	}
	return b.String()
}
