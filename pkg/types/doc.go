// Package types provides shared type definitions for the docvec pipeline.
//
// This package defines the domain types used across the ingestion and retrieval
// components: documents, chunks, search hits, and the error taxonomy.
//
// # Core Types
//
// Document represents extracted text, one string per page, supplied by an
// external text-extraction collaborator:
//
//	doc := &types.Document{
//	    Name:  "progress-notes.docx",
//	    Pages: []string{pageOne, pageTwo},
//	}
//
// Chunk is a bounded span of document text attributed to one page and section,
// carrying its own keyword set and embedding:
//
//	chunk := &types.Chunk{
//	    DocumentName: "progress-notes.docx",
//	    PageNumber:   2,
//	    Section:      "ASSESSMENT",
//	    Content:      windowText,
//	    Context:      rollingSectionContext,
//	}
//
// # Validation
//
// Chunks validate their structural invariants before being written:
//
//	if err := chunk.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Taxonomy
//
// Sentinel errors classify failures by how callers should react: input errors
// fail fast, dimension mismatches are fatal configuration errors, and backend
// unavailability is surfaced only after bounded retries. Match with errors.Is:
//
//	if errors.Is(err, types.ErrInvalidVector) {
//	    // reject the write, nothing was persisted
//	}
package types
