package segmenter

import "strings"

// DefaultSeparators is the ordered separator hierarchy used to split page text:
// paragraph breaks first, then lines, sentence-ending punctuation, words, and
// finally individual characters. Separators are kept with the preceding piece
// so sentence boundaries survive into the windows.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ",", " ", ""}

// Splitter produces overlapping character windows from free text by walking a
// separator hierarchy recursively: a piece still longer than the window size is
// re-split with the next separator down.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter returns a Splitter targeting windows of size characters with the
// given overlap. Non-positive arguments fall back to the 2000/200 defaults.
func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = 2000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Splitter{size: size, overlap: overlap, separators: DefaultSeparators}
}

// Split returns the overlapping windows of text. Windows are trimmed of
// surrounding whitespace; empty windows are dropped.
func (s *Splitter) Split(text string) []string {
	pieces := s.split(text, s.separators)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.size {
		return []string{text}
	}

	// Pick the first separator present in the text; the empty separator is
	// the character-level last resort.
	sep := separators[len(separators)-1]
	rest := separators
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	parts := splitKeepSeparator(text, sep)

	// Re-split any part that is still too long using the finer separators.
	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) > s.size && len(rest) > 0 {
			pieces = append(pieces, s.split(part, rest)...)
		} else {
			pieces = append(pieces, part)
		}
	}

	return s.merge(pieces)
}

// merge packs consecutive pieces into windows no longer than the target size,
// carrying roughly overlap characters of trailing pieces into the next window.
func (s *Splitter) merge(pieces []string) []string {
	var (
		windows []string
		current []string
		total   int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		windows = append(windows, strings.Join(current, ""))
		// Retain trailing pieces as the overlap seed for the next window.
		for total > s.overlap && len(current) > 0 {
			total -= len(current[0])
			current = current[1:]
		}
	}

	for _, piece := range pieces {
		if total+len(piece) > s.size && total > 0 {
			flush()
		}
		current = append(current, piece)
		total += len(piece)
	}
	if total > 0 {
		windows = append(windows, strings.Join(current, ""))
	}
	return windows
}

// splitKeepSeparator splits text on sep, keeping the separator attached to the
// end of each piece. An empty separator splits into individual characters
// bounded by the caller's window size.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		return strings.Split(text, "")
	}
	segments := strings.SplitAfter(text, sep)
	// SplitAfter yields a trailing empty string when text ends with sep.
	if n := len(segments); n > 0 && segments[n-1] == "" {
		segments = segments[:n-1]
	}
	return segments
}
