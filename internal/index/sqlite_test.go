package index

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvec/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testChunk(doc string, idx, page int, vector []float32) *types.Chunk {
	return &types.Chunk{
		ID:           types.NewChunkID(),
		DocumentName: doc,
		ChunkIndex:   idx,
		PageNumber:   page,
		Section:      "assessment",
		Content:      "patient reports improvement since last visit",
		Context:      "assessment patient reports improvement since last visit",
		Keywords:     []string{"patient", "improvement", "visit"},
		Vector:       vector,
	}
}

func TestSQLiteStore_CreateIndexIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateIndex(ctx, 4))
	require.NoError(t, store.CreateIndex(ctx, 4))

	err := store.CreateIndex(ctx, 8)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	chunk := testChunk("visit-2024.txt", 0, 3, []float32{0.1, 0.2, 0.3, 0.4})
	chunk.ExtractedDate = "3/15/2024"
	require.NoError(t, store.Upsert(ctx, chunk))

	got, err := store.Get(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.DocumentName, got.DocumentName)
	assert.Equal(t, chunk.ChunkIndex, got.ChunkIndex)
	assert.Equal(t, chunk.PageNumber, got.PageNumber)
	assert.Equal(t, chunk.Section, got.Section)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, chunk.Context, got.Context)
	assert.Equal(t, chunk.Keywords, got.Keywords)
	assert.Equal(t, chunk.ExtractedDate, got.ExtractedDate)
	assert.Equal(t, chunk.Vector, got.Vector)
}

func TestSQLiteStore_GetUnknownID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	_, err := store.Get(ctx, types.NewChunkID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_UpsertReplacesByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	chunk := testChunk("notes.txt", 0, 1, []float32{1, 0, 0, 0})
	require.NoError(t, store.Upsert(ctx, chunk))

	chunk.Content = "revised content"
	chunk.Vector = []float32{0, 1, 0, 0}
	require.NoError(t, store.Upsert(ctx, chunk))

	got, err := store.Get(ctx, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, "revised content", got.Content)
	assert.Equal(t, []float32{0, 1, 0, 0}, got.Vector)

	stats, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Chunks)
}

func TestSQLiteStore_UpsertRejectsWrongLengthVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	chunk := testChunk("notes.txt", 0, 1, []float32{1, 0, 0})
	err := store.Upsert(ctx, chunk)
	assert.ErrorIs(t, err, types.ErrInvalidVector)

	// Nothing was written.
	_, err = store.Get(ctx, chunk.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_UpsertRejectsInvalidVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	missing := testChunk("notes.txt", 0, 1, nil)
	assert.ErrorIs(t, store.Upsert(ctx, missing), types.ErrInvalidVector)

	nan := testChunk("notes.txt", 1, 1, []float32{1, float32(math.NaN()), 0, 0})
	assert.ErrorIs(t, store.Upsert(ctx, nan), types.ErrInvalidVector)
}

func TestSQLiteStore_UpsertBeforeCreateIndex(t *testing.T) {
	store := newTestStore(t)

	chunk := testChunk("notes.txt", 0, 1, []float32{1, 0, 0, 0})
	err := store.Upsert(context.Background(), chunk)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSQLiteStore_SearchOrdersByScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	exact := testChunk("a.txt", 0, 1, []float32{1, 0, 0, 0})
	near := testChunk("a.txt", 1, 1, []float32{0.9, 0.1, 0, 0})
	far := testChunk("b.txt", 0, 1, []float32{0, 0, 1, 0})
	for _, c := range []*types.Chunk{far, near, exact} {
		require.NoError(t, store.Upsert(ctx, c))
	}

	hits, err := store.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, exact.ID, hits[0].Chunk.ID)
	assert.Equal(t, near.ID, hits[1].Chunk.ID)
	assert.Equal(t, far.ID, hits[2].Chunk.ID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestSQLiteStore_SearchTieBreaksByInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	first := testChunk("a.txt", 0, 1, []float32{1, 0, 0, 0})
	second := testChunk("a.txt", 1, 1, []float32{1, 0, 0, 0})
	require.NoError(t, store.Upsert(ctx, first))
	require.NoError(t, store.Upsert(ctx, second))

	hits, err := store.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, first.ID, hits[0].Chunk.ID)
	assert.Equal(t, second.ID, hits[1].Chunk.ID)
}

func TestSQLiteStore_SearchTopKBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	require.NoError(t, store.Upsert(ctx, testChunk("a.txt", 0, 1, []float32{1, 0, 0, 0})))
	require.NoError(t, store.Upsert(ctx, testChunk("a.txt", 1, 1, []float32{0, 1, 0, 0})))

	hits, err := store.Search(ctx, []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = store.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = store.Search(ctx, []float32{1, 0, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteStore_SearchRejectsWrongLengthVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	_, err := store.Search(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, types.ErrInvalidVector)
}

func TestSQLiteStore_ListDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	require.NoError(t, store.Upsert(ctx, testChunk("b-report.txt", 0, 2, []float32{1, 0, 0, 0})))
	require.NoError(t, store.Upsert(ctx, testChunk("b-report.txt", 1, 5, []float32{0, 1, 0, 0})))
	require.NoError(t, store.Upsert(ctx, testChunk("a-notes.txt", 0, 1, []float32{0, 0, 1, 0})))

	stats, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, types.DocumentStat{Name: "a-notes.txt", Chunks: 1, MaxPage: 1}, stats[0])
	assert.Equal(t, types.DocumentStat{Name: "b-report.txt", Chunks: 2, MaxPage: 5}, stats[1])
}

func TestSQLiteStore_DeleteIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, 4))

	chunk := testChunk("a.txt", 0, 1, []float32{1, 0, 0, 0})
	require.NoError(t, store.Upsert(ctx, chunk))
	require.NoError(t, store.DeleteIndex(ctx))

	_, err := store.Get(ctx, chunk.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Upsert(ctx, chunk)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	// A fresh index may use a different dimension.
	require.NoError(t, store.CreateIndex(ctx, 8))
}
