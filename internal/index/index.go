package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docvec/pkg/types"
)

// ErrNotFound is returned when a requested chunk doesn't exist.
var ErrNotFound = errors.New("not found")

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Store persists chunks with their vectors and answers similarity queries.
// Implementations must order equal-score results deterministically.
type Store interface {
	// CreateIndex ensures the index exists with the given vector dimension.
	// Creating an index that already exists with the same dimension is a
	// no-op; a different dimension fails with ErrDimensionMismatch.
	CreateIndex(ctx context.Context, dimension int) error

	// DeleteIndex removes the index and all stored chunks.
	DeleteIndex(ctx context.Context) error

	// Upsert inserts the chunk or replaces the stored version with the same
	// ID. A vector that is missing, non-finite, or of the wrong length fails
	// with ErrInvalidVector. Nothing is written on failure.
	Upsert(ctx context.Context, chunk *types.Chunk) error

	// Search returns up to topK chunks ranked by cosine similarity to
	// vector, highest first.
	Search(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error)

	// ListDocuments aggregates stored chunks per document, ordered by
	// document name.
	ListDocuments(ctx context.Context) ([]types.DocumentStat, error)

	// Get returns the chunk with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*types.Chunk, error)

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	// SQLite backend
	Path string

	// Qdrant backend
	URL        string
	Collection string
	APIKey     string
	Timeout    time.Duration
}

// Open creates the configured Store. Connectivity is probed with bounded
// retries; a backend that stays unreachable fails with ErrBackendUnavailable.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return NewSQLiteStore(ctx, cfg.Path)
	case BackendQdrant:
		return NewQdrantStore(ctx, QdrantConfig{
			URL:        cfg.URL,
			Collection: cfg.Collection,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", types.ErrInvalidInput, cfg.Backend)
	}
}
