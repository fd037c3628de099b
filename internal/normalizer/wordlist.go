package normalizer

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
)

//go:embed stopwords/*.txt dict/*.txt
var wordLists embed.FS

// loadWordList reads one embedded word-per-line file into set. Blank lines
// and lines starting with '#' are ignored.
func loadWordList(path string, set map[string]struct{}) error {
	f, err := wordLists.Open(path)
	if err != nil {
		return fmt.Errorf("opening word list %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		set[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading word list %s: %w", path, err)
	}
	return nil
}
