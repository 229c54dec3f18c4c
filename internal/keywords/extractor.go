// Package keywords extracts normalized keyword sets from chunk and query text.
// The same extraction runs at index time (stored per chunk) and at query time
// (to mark lexical vs. pure-semantic hits), so both sides agree on what counts
// as a keyword.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

// MinLength is the exclusive lower bound on keyword length; tokens of three or
// fewer runes carry too little retrieval signal.
const MinLength = 3

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// Extract tokenizes text, lowercases it, drops stop words and short tokens,
// and returns the deduplicated keywords sorted for deterministic storage.
func Extract(text string) []string {
	tokens := wordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) <= MinLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		seen[tok] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Match returns the subset of keywords literally present in text,
// case-insensitively, preserving the order of the keywords slice.
func Match(keywords []string, text string) []string {
	if len(keywords) == 0 || text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}
