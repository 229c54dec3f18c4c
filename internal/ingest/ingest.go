// Package ingest wires the segmenter, keyword extractor, encoder, and index
// store into the document ingestion pipeline.
//
// Embeddings for a document's chunks are computed in parallel, but writes
// happen sequentially in chunk-index order so the stored sequence is
// deterministic regardless of encode completion order. A chunk whose encode
// fails is skipped and logged; the rest of the document still lands.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"docvec/internal/index"
	"docvec/internal/keywords"
	"docvec/pkg/types"
)

const defaultWorkers = 4

// Segmenter produces ordered chunk drafts from a document.
type Segmenter interface {
	Segment(doc *types.Document) []types.Chunk
}

// Encoder produces dense vectors for chunk context text.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Pipeline runs documents through segmentation, keyword extraction, encoding,
// and indexing.
type Pipeline struct {
	segmenter Segmenter
	encoder   Encoder
	store     index.Store
	workers   int
}

// New creates a Pipeline. workers bounds the number of concurrent encoder
// calls per document; non-positive means the default.
func New(segmenter Segmenter, encoder Encoder, store index.Store, workers int) *Pipeline {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Pipeline{
		segmenter: segmenter,
		encoder:   encoder,
		store:     store,
		workers:   workers,
	}
}

// DocumentResult reports what one document contributed to the index.
type DocumentResult struct {
	DocumentName  string `json:"document_name"`
	ChunksIndexed int    `json:"chunks_indexed"`
	ChunksSkipped int    `json:"chunks_skipped"`
}

// RunResult summarizes a bulk ingestion run.
type RunResult struct {
	Processed []string         `json:"processed"`
	Indexed   int              `json:"indexed"`
	Failed    map[string]error `json:"-"`
}

// EnsureIndex creates the index sized to the encoder's dimension if it does
// not exist yet.
func (p *Pipeline) EnsureIndex(ctx context.Context) error {
	return p.store.CreateIndex(ctx, p.encoder.Dimension())
}

// IngestDocument segments, encodes, and indexes one document. Chunks whose
// encoding fails are skipped; any other failure aborts the document.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *types.Document) (*DocumentResult, error) {
	if doc == nil || doc.Empty() {
		return nil, fmt.Errorf("%w: document has no text", types.ErrEmptyInput)
	}

	chunks := p.segmenter.Segment(doc)
	for i := range chunks {
		chunks[i].ID = types.NewChunkID()
		chunks[i].Keywords = keywords.Extract(chunks[i].Context)
	}

	vectors, skipped, err := p.encodeAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// Writes go out strictly in chunk-index order.
	result := &DocumentResult{DocumentName: doc.Name}
	for i := range chunks {
		if skipped[i] != nil {
			log.Printf("skipping chunk %d of %s: %v", chunks[i].ChunkIndex, doc.Name, skipped[i])
			result.ChunksSkipped++
			continue
		}
		chunks[i].Vector = vectors[i]
		if err := p.store.Upsert(ctx, &chunks[i]); err != nil {
			return result, fmt.Errorf("failed to index chunk %d of %s: %w", chunks[i].ChunkIndex, doc.Name, err)
		}
		result.ChunksIndexed++
	}
	return result, nil
}

// encodeAll embeds every chunk's context with bounded parallelism. Encoding
// failures are recorded per chunk rather than aborting; any other failure
// cancels the group.
func (p *Pipeline) encodeAll(ctx context.Context, chunks []types.Chunk) ([][]float32, []error, error) {
	vectors := make([][]float32, len(chunks))
	skipped := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range chunks {
		i := i
		g.Go(func() error {
			v, err := p.encoder.Embed(gctx, chunks[i].EmbeddingInput())
			if err != nil {
				if errors.Is(err, types.ErrEncoding) {
					skipped[i] = err
					return nil
				}
				return err
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectors, skipped, nil
}

// IngestAll runs the pipeline over a batch of documents with per-document
// isolation: a failing document is recorded and the rest proceed. An
// unavailable backend aborts the whole run.
func (p *Pipeline) IngestAll(ctx context.Context, docs []*types.Document) (*RunResult, error) {
	result := &RunResult{
		Processed: make([]string, 0, len(docs)),
		Failed:    make(map[string]error),
	}

	for _, doc := range docs {
		docResult, err := p.IngestDocument(ctx, doc)
		if err != nil {
			if errors.Is(err, types.ErrBackendUnavailable) {
				return result, fmt.Errorf("aborting run: %w", err)
			}
			log.Printf("failed to ingest %s: %v", doc.Name, err)
			result.Failed[doc.Name] = err
			continue
		}
		result.Processed = append(result.Processed, doc.Name)
		result.Indexed += docResult.ChunksIndexed
	}
	return result, nil
}

// Reindex destroys the index and recreates it with the given dimension, or
// the encoder's dimension when non-positive. This is the only path that
// deletes chunks. Delete and recreate are not atomic; callers must quiesce
// writers and searchers for the duration.
func (p *Pipeline) Reindex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		dimension = p.encoder.Dimension()
	}
	if err := p.store.DeleteIndex(ctx); err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	if err := p.store.CreateIndex(ctx, dimension); err != nil {
		return fmt.Errorf("failed to recreate index: %w", err)
	}
	return nil
}
