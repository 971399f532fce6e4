package index

import (
	"encoding/json"
	"fmt"
	"iter"
	"sort"
)

// WordCount pairs a word with its frequency.
type WordCount struct {
	Word  string `json:"w"`
	Count int    `json:"c"`
}

// Counts is a word frequency table that remembers the order in which each
// word was first added. That order is the tie-break for equal counts, so
// results do not depend on map iteration.
type Counts struct {
	order []string
	freq  map[string]int
}

func NewCounts() *Counts {
	return &Counts{freq: make(map[string]int)}
}

// Add increments word by n. n must not be negative.
func (c *Counts) Add(word string, n int) {
	if n < 0 {
		panic(fmt.Sprintf("index: negative count %d for %q", n, word))
	}
	if _, ok := c.freq[word]; !ok {
		c.order = append(c.order, word)
	}
	c.freq[word] += n
}

// Inc increments word by one.
func (c *Counts) Inc(word string) {
	c.Add(word, 1)
}

func (c *Counts) Get(word string) int {
	return c.freq[word]
}

// Len returns the number of distinct words.
func (c *Counts) Len() int {
	return len(c.order)
}

// Total returns the sum of all counts.
func (c *Counts) Total() int {
	total := 0
	for _, n := range c.freq {
		total += n
	}
	return total
}

// All iterates words in first-seen order.
func (c *Counts) All() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, w := range c.order {
			if !yield(w, c.freq[w]) {
				return
			}
		}
	}
}

// Map returns a copy of the table as a plain map.
func (c *Counts) Map() map[string]int {
	m := make(map[string]int, len(c.freq))
	for w, n := range c.freq {
		m[w] = n
	}
	return m
}

// Update adds every count in other, in other's first-seen order.
func (c *Counts) Update(other *Counts) {
	for w, n := range other.All() {
		c.Add(w, n)
	}
}

// MostCommon returns up to n entries by descending count. Equal counts keep
// first-seen order. n < 0 returns every entry.
func (c *Counts) MostCommon(n int) []WordCount {
	ranked := make([]WordCount, 0, len(c.order))
	for _, w := range c.order {
		ranked = append(ranked, WordCount{Word: w, Count: c.freq[w]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// MarshalJSON encodes the table as an ordered array so first-seen order
// survives a trip through a worker process.
func (c *Counts) MarshalJSON() ([]byte, error) {
	entries := make([]WordCount, 0, len(c.order))
	for w, n := range c.All() {
		entries = append(entries, WordCount{Word: w, Count: n})
	}
	return json.Marshal(entries)
}

func (c *Counts) UnmarshalJSON(data []byte) error {
	var entries []WordCount
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	fresh := NewCounts()
	for _, e := range entries {
		if e.Count < 0 {
			return fmt.Errorf("negative count %d for %q", e.Count, e.Word)
		}
		fresh.Add(e.Word, e.Count)
	}
	*c = *fresh
	return nil
}

// Merge sums the mappings in the order given into a new global mapping.
// Nil mappings are skipped.
func Merge(mappings []*Counts) *Counts {
	global := NewCounts()
	for _, m := range mappings {
		if m == nil {
			continue
		}
		global.Update(m)
	}
	return global
}
