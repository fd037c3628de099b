package normalizer

import "strings"

const (
	maxPrefixDepth = 3
	minStemLen     = 3
)

var (
	particles        = []string{"lah", "kah", "tah", "pun"}
	possessives      = []string{"nya", "ku", "mu"}
	derivationalSufs = []string{"kan", "an", "i"}
)

// indonesianStemmer is a confix-stripping stemmer in the Nazief-Adriani
// family. Candidate stems are checked against an embedded root-word list;
// a word with no known root is returned unchanged, so loanwords and English
// terms pass through intact.
type indonesianStemmer struct {
	roots map[string]struct{}
}

func newIndonesianStemmer() (*indonesianStemmer, error) {
	roots := make(map[string]struct{})
	if err := loadWordList("dict/id_roots.txt", roots); err != nil {
		return nil, err
	}
	return &indonesianStemmer{roots: roots}, nil
}

func (s *indonesianStemmer) isRoot(word string) bool {
	_, ok := s.roots[word]
	return ok
}

func (s *indonesianStemmer) Stem(word string) string {
	if len(word) <= minStemLen || s.isRoot(word) {
		return word
	}
	base := removeInflection(word)
	if s.isRoot(base) {
		return base
	}

	for _, suf := range derivationalSufs {
		rest, ok := trimSuffix(base, suf)
		if !ok {
			continue
		}
		if s.isRoot(rest) {
			return rest
		}
		for _, cand := range prefixChain(rest) {
			if s.isRoot(cand) {
				return cand
			}
		}
	}
	for _, cand := range prefixChain(base) {
		if s.isRoot(cand) {
			return cand
		}
	}
	return word
}

func removeInflection(word string) string {
	for _, p := range particles {
		if rest, ok := trimSuffix(word, p); ok {
			word = rest
			break
		}
	}
	for _, p := range possessives {
		if rest, ok := trimSuffix(word, p); ok {
			word = rest
			break
		}
	}
	return word
}

func trimSuffix(word, suffix string) (string, bool) {
	if !strings.HasSuffix(word, suffix) {
		return word, false
	}
	rest := word[:len(word)-len(suffix)]
	if len(rest) < minStemLen {
		return word, false
	}
	return rest, true
}

// prefixChain returns every form reachable by removing up to maxPrefixDepth
// derivational prefixes, in breadth-first order.
func prefixChain(word string) []string {
	var out []string
	frontier := []string{word}
	for depth := 0; depth < maxPrefixDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, w := range frontier {
			for _, v := range prefixVariants(w) {
				out = append(out, v)
				next = append(next, v)
			}
		}
		frontier = next
	}
	return out
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// prefixVariants lists the stems produced by removing one prefix from word,
// including the morphophonemic recodings of the me- and pe- families.
func prefixVariants(word string) []string {
	var out []string
	add := func(s string) {
		if len(s) >= minStemLen {
			out = append(out, s)
		}
	}
	hasRest := func(prefix string) (string, bool) {
		if !strings.HasPrefix(word, prefix) || len(word) <= len(prefix) {
			return "", false
		}
		return word[len(prefix):], true
	}

	for _, p := range []string{"di", "ke", "se"} {
		if rest, ok := hasRest(p); ok {
			add(rest)
		}
	}
	if rest, ok := hasRest("ter"); ok {
		add(rest)
	}
	if rest, ok := hasRest("ber"); ok {
		add(rest)
	} else if rest, ok := hasRest("bel"); ok && rest == "ajar" {
		add(rest)
	} else if rest, ok := hasRest("be"); ok {
		add(rest)
	}
	nasalVariants(word, "me", add)
	nasalVariants(word, "pe", add)
	if rest, ok := hasRest("per"); ok {
		add(rest)
	} else if rest, ok := hasRest("pel"); ok && rest == "ajar" {
		add(rest)
	}
	return out
}

// nasalVariants handles me-/pe- prefixes whose nasal assimilates the first
// consonant of the root (menulis -> tulis, memukul -> pukul).
func nasalVariants(word, head string, add func(string)) {
	if !strings.HasPrefix(word, head) || len(word) <= len(head)+1 {
		return
	}
	tail := word[len(head):]
	switch {
	case strings.HasPrefix(tail, "ng") && len(tail) > 2:
		rest := tail[2:]
		add(rest)
		if isVowel(rest[0]) {
			add("k" + rest)
		}
	case strings.HasPrefix(tail, "ny") && len(tail) > 2:
		add("s" + tail[2:])
	case tail[0] == 'm' && len(tail) > 1:
		rest := tail[1:]
		switch {
		case strings.ContainsRune("bfvp", rune(rest[0])):
			add(rest)
		case isVowel(rest[0]):
			add("p" + rest)
			add("m" + rest)
		}
	case tail[0] == 'n' && len(tail) > 1:
		rest := tail[1:]
		switch {
		case strings.ContainsRune("cdjzst", rune(rest[0])):
			add(rest)
		case isVowel(rest[0]):
			add("t" + rest)
			add("n" + rest)
		}
	case strings.ContainsRune("lrwy", rune(tail[0])):
		add(tail)
	case head == "pe" && !isVowel(tail[0]):
		add(tail)
	}
}
