package retriever

import (
	"regexp"
	"strings"
)

// datePatterns covers the date formats seen in scanned records, checked in
// order of how often they appear.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`),
	regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
	regexp.MustCompile(`\b\d{1,2} (?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`),
}

// dateNearKeyword returns the first date found within windowSize characters
// of the keyword's occurrence in text, or "" when the keyword or a date is
// absent.
func dateNearKeyword(text, keyword string, windowSize int) string {
	keywordPos := strings.Index(strings.ToLower(text), strings.ToLower(keyword))
	if keywordPos == -1 {
		return ""
	}

	start := keywordPos - windowSize
	if start < 0 {
		start = 0
	}
	end := keywordPos + len(keyword) + windowSize
	if end > len(text) {
		end = len(text)
	}
	window := text[start:end]

	for _, pattern := range datePatterns {
		if match := pattern.FindString(window); match != "" {
			return match
		}
	}
	return ""
}
