package normalizer

import (
	"fmt"
	"strings"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
)

// Stemmer reduces a single lowercase token to its root form. Implementations
// must be deterministic and safe for concurrent use.
type Stemmer interface {
	Stem(word string) string
}

// Stemmer names accepted by NewStemmer.
const (
	StemmerIndonesian = "indonesian"
	StemmerEnglish    = "english"
	StemmerSuffix     = "suffix"
	StemmerNone       = "none"
)

// NewStemmer returns the stemmer registered under name.
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case StemmerIndonesian, "":
		return newIndonesianStemmer()
	case StemmerEnglish:
		return englishStemmer{}, nil
	case StemmerSuffix:
		return suffixStemmer{}, nil
	case StemmerNone:
		return noopStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

type noopStemmer struct{}

func (noopStemmer) Stem(word string) string { return word }

// englishStemmer runs the Snowball English algorithm.
type englishStemmer struct{}

func (englishStemmer) Stem(word string) string {
	env := snowballstem.NewEnv(word)
	english.Stem(env)
	return env.Current()
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// suffixRules are tried in order; the first rule whose suffix matches and
// whose result is at least minLen long wins.
var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// suffixStemmer is a cheap rule-based English suffix stripper.
type suffixStemmer struct{}

func (suffixStemmer) Stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stemmed) >= rule.minLen {
				return stemmed
			}
		}
	}
	return word
}
