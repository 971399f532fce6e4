// Package tokenizer filters pre-tokenised review text. Words are compared
// literally: there is no case folding and punctuation is only dropped
// when the stopword set lists it.
package tokenizer

import (
	"iter"
	"sort"
)

// DefaultStopwords carry little information about review quality. "not"
// and "!" are deliberately absent since negation and emphasis matter.
var DefaultStopwords = []string{
	".", "i", "a", "and", "the", "to", "was", "it", "of", "for", "in", "my",
	"that", "so", "do", "our", ",", "we", "you", "are", "is", "be", "me",
}

// Stopwords is an immutable set of tokens excluded from counting. The
// zero value is an empty set.
type Stopwords struct {
	set map[string]struct{}
}

// NewStopwords builds a set from the given words. Duplicates are ignored.
func NewStopwords(words ...string) Stopwords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return Stopwords{set: set}
}

// Default returns the built-in stopword set.
func Default() Stopwords {
	return NewStopwords(DefaultStopwords...)
}

func (s Stopwords) Contains(word string) bool {
	_, ok := s.set[word]
	return ok
}

func (s Stopwords) Len() int {
	return len(s.set)
}

// Words returns the set's members in lexical order.
func (s Stopwords) Words() []string {
	words := make([]string, 0, len(s.set))
	for w := range s.set {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Filter lazily yields the words that are not stopwords, in input order.
func (s Stopwords) Filter(words []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, w := range words {
			if s.Contains(w) {
				continue
			}
			if !yield(w) {
				return
			}
		}
	}
}
