package segmenter

import (
	"regexp"
	"strings"
)

var titleHeaderRe = regexp.MustCompile(`^[A-Z][a-z]+:`)

// isSectionHeader reports whether a window is a section label rather than
// content: either all-uppercase text or a "Title:" style opener.
func isSectionHeader(window string) bool {
	if titleHeaderRe.MatchString(window) {
		return true
	}
	hasLetter := false
	for _, r := range window {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || r > 127 {
			hasLetter = true
		}
	}
	return hasLetter && strings.ToUpper(window) == window
}

// contextWindow is the bounded deque of recent windows that enriches a chunk's
// embedding input. It holds at most cap windows and is reset whenever a new
// section header is detected, so context never leaks across sections.
type contextWindow struct {
	entries  []string
	capacity int
}

func newContextWindow(capacity int) *contextWindow {
	return &contextWindow{capacity: capacity}
}

// Reset clears the buffer and seeds it with the new section's header.
func (c *contextWindow) Reset(header string) {
	c.entries = c.entries[:0]
	if header != "" {
		c.entries = append(c.entries, header)
	}
}

// Push appends a window, evicting the oldest entry once at capacity.
func (c *contextWindow) Push(window string) {
	c.entries = append(c.entries, window)
	if len(c.entries) > c.capacity {
		c.entries = c.entries[1:]
	}
}

// Text joins the buffered windows into one embedding input string.
func (c *contextWindow) Text() string {
	return strings.Join(c.entries, " ")
}
