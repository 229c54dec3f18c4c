package types

import "strings"

// Document represents the extracted text of one source document, one string
// per page as delivered by the text-extraction collaborator. Pages may be
// empty when extraction found nothing on a physical page.
type Document struct {
	Name  string
	Pages []string
}

// Text returns the document's pages joined with blank lines, the form the
// segmenter consumes when no per-page structure is needed.
func (d *Document) Text() string {
	return strings.Join(d.Pages, "\n\n")
}

// Empty reports whether the document contains no non-whitespace text.
func (d *Document) Empty() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

// DocumentStat summarizes one distinct document held in an index: the number
// of chunks stored for it and the highest page number observed. Aggregates may
// lag writes by one backend refresh interval.
type DocumentStat struct {
	Name    string `json:"document_name"`
	Chunks  int    `json:"chunks"`
	MaxPage int    `json:"total_pages"`
}
