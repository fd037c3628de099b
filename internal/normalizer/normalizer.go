// Package normalizer converts raw text into the canonical token form used by
// both the index and the query path: lowercase, letters a-z only, stopwords
// removed, stemmed, joined by single spaces.
//
// A Normalizer is built once at process start and shared by reference; it
// holds no mutable state after construction and is safe for concurrent use.
package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
)

// maxStemPasses bounds the re-stemming loop that makes Normalize a fixed
// point. Real stemmers converge in two passes.
const maxStemPasses = 8

// revision changes whenever a word list or stemming rule changes, so text
// normalized by an older build is recognisably stale.
const revision = 2

// Normalizer owns the stopword set and stemmer.
type Normalizer struct {
	stopwords map[string]struct{}
	stemmer   Stemmer
	signature string
}

// New loads the Indonesian and English stopword lists plus any configured
// extra words, and selects the configured stemmer.
func New(cfg config.NormalizerConfig) (*Normalizer, error) {
	stopwords := make(map[string]struct{}, 1100)
	for _, path := range []string{"stopwords/id.txt", "stopwords/en.txt"} {
		if err := loadWordList(path, stopwords); err != nil {
			return nil, err
		}
	}
	var extra []string
	for _, w := range cfg.ExtraStopwords {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			stopwords[w] = struct{}{}
			extra = append(extra, w)
		}
	}
	stemmerName := cfg.Stemmer
	if stemmerName == "" {
		stemmerName = StemmerIndonesian
	}
	stemmer, err := NewStemmer(stemmerName)
	if err != nil {
		return nil, fmt.Errorf("creating normalizer: %w", err)
	}
	return &Normalizer{
		stopwords: stopwords,
		stemmer:   stemmer,
		signature: signature(stemmerName, extra),
	}, nil
}

// NewWithStemmer builds a Normalizer around a caller-supplied stemmer.
func NewWithStemmer(stemmer Stemmer, stopwords ...string) *Normalizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[w] = struct{}{}
	}
	return &Normalizer{
		stopwords: set,
		stemmer:   stemmer,
		signature: signature(fmt.Sprintf("%T", stemmer), stopwords),
	}
}

// Signature identifies the settings that determine Normalize's output. Two
// normalizers with equal signatures produce identical text.
func (n *Normalizer) Signature() string {
	return n.signature
}

func signature(stemmer string, extra []string) string {
	extra = append([]string(nil), extra...)
	sort.Strings(extra)
	return fmt.Sprintf("r%d;stemmer=%s;stopwords=%s", revision, stemmer, strings.Join(extra, ","))
}

// Normalize returns the canonical form of raw. An empty result means the text
// has no indexable content.
func (n *Normalizer) Normalize(raw string) string {
	return strings.Join(n.Tokens(raw), " ")
}

// NormalizeValue treats anything that is not a string as empty text.
func (n *Normalizer) NormalizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return n.Normalize(s)
}

// Tokens returns the normalized token sequence of raw.
func (n *Normalizer) Tokens(raw string) []string {
	words := strings.Fields(clean(raw))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if n.IsStopword(word) {
			continue
		}
		stemmed := n.stem(word)
		if stemmed == "" || n.IsStopword(stemmed) {
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}

// IsStopword reports whether word is in the stopword set.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

func (n *Normalizer) stem(word string) string {
	for i := 0; i < maxStemPasses; i++ {
		next := n.stemmer.Stem(word)
		if next == word {
			break
		}
		word = next
	}
	return word
}

// clean lowercases s and drops every rune that is neither a-z nor whitespace.
func clean(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
			b.WriteRune(r)
		}
	}
	return b.String()
}
