// Package segmenter splits raw document text into page-estimated,
// section-aware overlapping chunks ready for embedding and indexing.
//
// Segmentation proceeds in two stages: page estimation (explicit page-break
// markers when present, a words-per-page heuristic otherwise) and per-page
// windowing through a recursive separator hierarchy. Windows matching known
// boilerplate are dropped, all-uppercase or "Title:" windows become section
// labels, and remaining windows inherit the current section plus a rolling
// context buffer used to enrich their embedding input.
package segmenter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"docvec/pkg/types"
)

// Config carries the segmenter's tunable constants. The defaults mirror the
// values tuned on the original corpus; none of them is assumed to generalize,
// which is why they are configuration rather than constants.
type Config struct {
	WindowSize      int // target window length in characters
	WindowOverlap   int // characters carried between adjacent windows
	WordsPerPage    int // synthetic page length when no markers are found
	MinContentChars int // windows shorter than this are skipped
	ContextWindows  int // rolling context buffer depth

	// BoilerplatePatterns are case-insensitive regexes; a window matching any
	// of them is dropped before indexing. Empty means DefaultBoilerplate.
	BoilerplatePatterns []string
}

// DefaultBoilerplate rejects the instructional/template text observed in the
// corpus, plus bracketed placeholders and empty or digit-only windows.
var DefaultBoilerplate = []string{
	`Please index all documents you have reviewed`,
	`This should include medical records`,
	`VA benefit records`,
	`transcripts`,
	`MEDICAL RECORD REVIEW`,
	`Record Index`,
	`\[.*?\]`,
	`^\s*$`,
	`^\s*\d+\s*$`,
}

func (c *Config) applyDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 2000
	}
	if c.WindowOverlap <= 0 {
		c.WindowOverlap = 200
	}
	if c.WordsPerPage <= 0 {
		c.WordsPerPage = 500
	}
	if c.MinContentChars <= 0 {
		c.MinContentChars = 50
	}
	if c.ContextWindows <= 0 {
		c.ContextWindows = 3
	}
	if len(c.BoilerplatePatterns) == 0 {
		c.BoilerplatePatterns = DefaultBoilerplate
	}
}

// Segmenter turns raw document text into ordered chunk drafts. It never
// touches files; the text-extraction collaborator supplies the input.
type Segmenter struct {
	cfg         Config
	splitter    *Splitter
	boilerplate []*regexp.Regexp
}

var (
	pageMarkerLineRe = regexp.MustCompile(`(?i)^\s*page\s+\d+\s*$`)
	bareNumberLineRe = regexp.MustCompile(`^\s*\d+\s*$`)
	datePatternRe    = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

	// Ordered page-reference patterns for refining a window's page number
	// from its own text.
	pageRefRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpage\s+(\d+)`),
		regexp.MustCompile(`(?i)\bp\.\s*(\d+)`),
		regexp.MustCompile(`(?m)^\s*(\d+)\s*$`),
	}
)

// New builds a Segmenter, compiling the boilerplate pattern set.
func New(cfg Config) (*Segmenter, error) {
	cfg.applyDefaults()
	patterns := make([]*regexp.Regexp, 0, len(cfg.BoilerplatePatterns))
	for _, p := range cfg.BoilerplatePatterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid boilerplate pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &Segmenter{
		cfg:         cfg,
		splitter:    NewSplitter(cfg.WindowSize, cfg.WindowOverlap),
		boilerplate: patterns,
	}, nil
}

// Segment returns the ordered chunk drafts for a document. Drafts carry page,
// section, content, context, and extracted date; IDs, keywords, and vectors
// are assigned downstream. An empty document yields no chunks; any other
// document yields at least the full-text fallback chunk.
func (s *Segmenter) Segment(doc *types.Document) []types.Chunk {
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		chunks  []types.Chunk
		section = "main"
		ctx     = newContextWindow(s.cfg.ContextWindows)
	)

	for _, page := range s.paginate(text) {
		for _, window := range s.splitter.Split(page.text) {
			if s.isBoilerplate(window) {
				continue
			}

			if isSectionHeader(window) {
				section = window
				ctx.Reset(window)
				continue
			}
			ctx.Push(window)

			if len(strings.TrimSpace(window)) < s.cfg.MinContentChars {
				continue
			}

			pageNumber := page.number
			if ref := extractPageRef(window); ref > 0 {
				pageNumber = ref
			}

			chunks = append(chunks, types.Chunk{
				DocumentName:  doc.Name,
				ChunkIndex:    len(chunks),
				PageNumber:    pageNumber,
				Section:       section,
				Content:       window,
				Context:       ctx.Text(),
				ExtractedDate: extractDate(window),
			})
		}
	}

	if len(chunks) == 0 {
		// Nothing met the criteria; index the whole document as one chunk
		// rather than losing it.
		chunks = append(chunks, types.Chunk{
			DocumentName:  doc.Name,
			PageNumber:    1,
			Section:       "main",
			Content:       text,
			Context:       text,
			ExtractedDate: extractDate(text),
		})
	}

	return chunks
}

type pagePart struct {
	text   string
	number int
}

/// paginate splits text at explicit page-break markers: "Page N" lines, form
// feeds, and bare-number lines followed by content. Parts are numbered
// sequentially. When no marker splits the text, pages are estimated with the
// words-per-page heuristic instead.
func (s *Segmenter) paginate(text string) []pagePart {
	text = strings.ReplaceAll(text, "\f", "\n\f\n")
	lines := strings.Split(text, "\n")

	var (
		parts   []pagePart
		current []string
	)
	closePart := func() {
		part := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if part != "" {
			parts = append(parts, pagePart{text: part, number: len(parts) + 1})
		}
	}

	for i, line := range lines {
		switch {
		case line == "\f" || pageMarkerLineRe.MatchString(line):
			closePart()
		case bareNumberLineRe.MatchString(line) && hasContentAfter(lines, i):
			closePart()
		default:
			current = append(current, line)
		}
	}
	closePart()

	if len(parts) > 1 {
		return parts
	}

	// No usable markers; estimate pages by word count.
	words := strings.Fields(text)
	parts = parts[:0]
	for i := 0; i < len(words); i += s.cfg.WordsPerPage {
		end := i + s.cfg.WordsPerPage
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, pagePart{
			text:   strings.Join(words[i:end], " "),
			number: i/s.cfg.WordsPerPage + 1,
		})
	}
	return parts
}

// hasContentAfter reports whether the bare-number line at idx reads as a page
// break: the next non-blank line must start flush at column zero. Indented
// continuations and trailing numbers at end of text do not break pages.
func hasContentAfter(lines []string, idx int) bool {
	for _, line := range lines[idx+1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(line)
		return !unicode.IsSpace(r)
	}
	return false
}

func (s *Segmenter) isBoilerplate(window string) bool {
	for _, re := range s.boilerplate {
		if re.MatchString(window) {
			return true
		}
	}
	return false
}

// extractPageRef returns a page number referenced inside the window's own
// text, or 0 when none is present. An explicit reference overrides the page
// assigned during pagination.
func extractPageRef(window string) int {
	for _, re := range pageRefRes {
		if m := re.FindStringSubmatch(window); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// extractDate returns the first M/D/YY or M/D/YYYY date in the text, or "".
func extractDate(text string) string {
	return datePatternRe.FindString(text)
}
