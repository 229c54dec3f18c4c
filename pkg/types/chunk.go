package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Chunk represents one indexed span of document text. Chunks are produced
// during ingestion, are immutable once indexed, and are destroyed only by a
// full index delete+recreate.
type Chunk struct {
	// Identification
	ID           string `json:"id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`

	// Attribution
	PageNumber int    `json:"page_number"`
	Section    string `json:"section"`

	// Content is the window text itself; Context is the rolling section
	// context (up to the last three windows) used as embedding input.
	Content string `json:"content"`
	Context string `json:"context"`

	// Metadata
	Keywords      []string `json:"keywords"`
	ExtractedDate string   `json:"extracted_date,omitempty"`

	// Vector is the dense embedding of Context. Its length must equal the
	// active index's configured dimension.
	Vector []float32 `json:"-"`
}

// NewChunkID returns a fresh unique chunk identifier.
func NewChunkID() string {
	return uuid.NewString()
}

// Validate checks the chunk's structural invariants before indexing.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return fmt.Errorf("%w: chunk content is empty", ErrEmptyInput)
	}
	if c.DocumentName == "" {
		return errors.New("chunk has no owning document")
	}
	if c.PageNumber < 1 {
		return fmt.Errorf("page number must be >= 1, got %d", c.PageNumber)
	}
	return nil
}

// EmbeddingInput returns the text to embed for this chunk: the section context
// when present, otherwise the content itself.
func (c *Chunk) EmbeddingInput() string {
	if c.Context != "" {
		return c.Context
	}
	return c.Content
}

// SearchHit is one nearest-neighbor result: a chunk reference with its
// similarity score and the query keywords found literally in its content.
// Backends fill Chunk and Score; the retriever adds FoundKeywords, where an
// empty set marks a pure-semantic match.
type SearchHit struct {
	Chunk         Chunk    `json:"chunk"`
	Score         float32  `json:"score"`
	FoundKeywords []string `json:"found_keywords,omitempty"`
}

// Query is a retrieval request: free text plus the number of hits wanted.
// The vector is derived by the encoder before the index is consulted.
type Query struct {
	Text   string
	Vector []float32
	TopK   int
}
