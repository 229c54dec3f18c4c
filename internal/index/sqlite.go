package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"docvec/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite. Vectors are stored
// as little-endian float32 blobs and similarity is computed in Go, so the
// store works with both drivers without extensions.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: sqlite path not set", types.ErrInvalidInput)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", types.ErrBackendUnavailable, err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to apply migrations: %v", types.ErrBackendUnavailable, err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateIndex records the vector dimension. Calling it again with the same
// dimension is a no-op.
func (s *SQLiteStore) CreateIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrInvalidInput, dimension)
	}

	existing, ok, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if ok {
		if existing != dimension {
			return fmt.Errorf("%w: index has dimension %d, requested %d",
				types.ErrDimensionMismatch, existing, dimension)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO index_meta (id, dimension) VALUES (1, ?)", dimension)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// DeleteIndex removes all chunks and the index metadata.
func (s *SQLiteStore) DeleteIndex(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("failed to delete index metadata: %w", err)
	}
	return tx.Commit()
}

// Upsert inserts or replaces a chunk. Validation happens before any write, so
// a rejected chunk leaves the store unchanged.
func (s *SQLiteStore) Upsert(ctx context.Context, chunk *types.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	dim, ok, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: index not created", types.ErrInvalidInput)
	}
	if err := validateVector(chunk.Vector, dim); err != nil {
		return err
	}

	keywords, err := json.Marshal(chunk.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	query := `
		INSERT INTO chunks (
			id, document_name, chunk_index, page_number, section,
			content, context, keywords, extracted_date, vector,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_name = excluded.document_name,
			chunk_index = excluded.chunk_index,
			page_number = excluded.page_number,
			section = excluded.section,
			content = excluded.content,
			context = excluded.context,
			keywords = excluded.keywords,
			extracted_date = excluded.extracted_date,
			vector = excluded.vector,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		chunk.ID, chunk.DocumentName, chunk.ChunkIndex, chunk.PageNumber, chunk.Section,
		chunk.Content, chunk.Context, string(keywords), chunk.ExtractedDate,
		serializeVector(chunk.Vector), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

// Search scans all stored vectors, computes cosine similarity in Go, and
// returns the topK closest chunks. Ties break by insertion order.
func (s *SQLiteStore) Search(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error) {
	dim, ok, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: index not created", types.ErrInvalidInput)
	}
	if err := validateVector(vector, dim); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []types.SearchHit{}, nil
	}

	query := `
		SELECT id, document_name, chunk_index, page_number, section,
		       content, context, keywords, extracted_date, vector
		FROM chunks
		ORDER BY rowid
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.SearchHit, 0, 256)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, types.SearchHit{
			Chunk: *chunk,
			Score: float32(cosineSimilarity(vector, chunk.Vector)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort keeps rowid order for equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

// ListDocuments aggregates stored chunks per document.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]types.DocumentStat, error) {
	query := `
		SELECT document_name, COUNT(*), MAX(page_number)
		FROM chunks
		GROUP BY document_name
		ORDER BY document_name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make([]types.DocumentStat, 0)
	for rows.Next() {
		var stat types.DocumentStat
		if err := rows.Scan(&stat.Name, &stat.Chunks, &stat.MaxPage); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// Get returns the chunk with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Chunk, error) {
	query := `
		SELECT id, document_name, chunk_index, page_number, section,
		       content, context, keywords, extracted_date, vector
		FROM chunks
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// dimension returns the configured vector dimension and whether the index
// exists.
func (s *SQLiteStore) dimension(ctx context.Context) (int, bool, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM index_meta WHERE id = 1").Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return dim, true, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*types.Chunk, error) {
	var chunk types.Chunk
	var keywords string
	var blob []byte

	err := row.Scan(
		&chunk.ID, &chunk.DocumentName, &chunk.ChunkIndex, &chunk.PageNumber, &chunk.Section,
		&chunk.Content, &chunk.Context, &keywords, &chunk.ExtractedDate, &blob,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(keywords), &chunk.Keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
	}
	chunk.Vector = deserializeVector(blob)
	return &chunk, nil
}
