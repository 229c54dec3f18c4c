package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"docvec/pkg/types"
)

// fakeQdrant serves the subset of the Qdrant REST API the store talks to.
// Responses are canned per endpoint; counters record what the store sent.
type fakeQdrant struct {
	mu sync.Mutex

	// dimension of the existing collection; 0 means no collection yet.
	dimension int

	// upsertFailures is the number of 503 responses to serve before
	// accepting point writes.
	upsertFailures int
	upsertCalls    int

	createBody  string
	searchBody  string
	scrollPages []string
	scrollCalls int
	points      map[string]string
}

func (f *fakeQdrant) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		switch key {
		case "GET /collections":
			fmt.Fprint(w, `{"result":{"collections":[]}}`)
		case "GET /collections/chunks":
			if f.dimension == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `{"result":{"config":{"params":{"vectors":{"size":%d}}}}}`, f.dimension)
		case "PUT /collections/chunks":
			body, _ := io.ReadAll(r.Body)
			f.createBody = string(body)
			var req struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			}
			_ = json.Unmarshal(body, &req)
			f.dimension = req.Vectors.Size
			fmt.Fprint(w, `{"result":true}`)
		case "DELETE /collections/chunks":
			if f.dimension == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			f.dimension = 0
			fmt.Fprint(w, `{"result":true}`)
		case "PUT /collections/chunks/points":
			f.upsertCalls++
			if f.upsertFailures > 0 {
				f.upsertFailures--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"result":{"status":"completed"}}`)
		case "POST /collections/chunks/points/search":
			fmt.Fprint(w, f.searchBody)
		case "POST /collections/chunks/points/scroll":
			page := f.scrollPages[f.scrollCalls]
			f.scrollCalls++
			fmt.Fprint(w, page)
		default:
			if r.Method == http.MethodGet {
				if body, ok := f.points[r.URL.Path]; ok {
					fmt.Fprint(w, body)
					return
				}
			}
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeQdrant) upsertAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertCalls
}

func newQdrantTestStore(t *testing.T, fake *fakeQdrant) *QdrantStore {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	store, err := NewQdrantStore(context.Background(), QdrantConfig{URL: srv.URL})
	require.NoError(t, err)
	store.backoff = time.Millisecond
	return store
}

func TestQdrantStore_CreateIndexCreatesCollection(t *testing.T) {
	fake := &fakeQdrant{}
	store := newQdrantTestStore(t, fake)

	require.NoError(t, store.CreateIndex(context.Background(), 4))
	assert.Contains(t, fake.createBody, `"size":4`)
	assert.Contains(t, fake.createBody, `"distance":"Cosine"`)
}

func TestQdrantStore_CreateIndexIdempotent(t *testing.T) {
	fake := &fakeQdrant{dimension: 4}
	store := newQdrantTestStore(t, fake)
	ctx := context.Background()

	require.NoError(t, store.CreateIndex(ctx, 4))
	assert.Empty(t, fake.createBody)

	err := store.CreateIndex(ctx, 8)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestQdrantStore_UpsertRetriesTransientFailure(t *testing.T) {
	fake := &fakeQdrant{dimension: 4, upsertFailures: 1}
	store := newQdrantTestStore(t, fake)

	chunk := testChunk("visit-2024.txt", 0, 1, []float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, store.Upsert(context.Background(), chunk))
	assert.Equal(t, 2, fake.upsertAttempts())
}

func TestQdrantStore_UpsertExhaustsRetries(t *testing.T) {
	fake := &fakeQdrant{dimension: 4, upsertFailures: 100}
	store := newQdrantTestStore(t, fake)

	chunk := testChunk("visit-2024.txt", 0, 1, []float32{0.1, 0.2, 0.3, 0.4})
	err := store.Upsert(context.Background(), chunk)
	assert.ErrorIs(t, err, types.ErrBackendUnavailable)
	assert.Equal(t, store.attempts, fake.upsertAttempts())
}

func TestQdrantStore_UpsertRejectsWrongLengthVector(t *testing.T) {
	fake := &fakeQdrant{dimension: 4}
	store := newQdrantTestStore(t, fake)

	chunk := testChunk("visit-2024.txt", 0, 1, []float32{0.1, 0.2, 0.3})
	err := store.Upsert(context.Background(), chunk)
	assert.ErrorIs(t, err, types.ErrInvalidVector)
	assert.Zero(t, fake.upsertAttempts())
}

func TestQdrantStore_UpsertBeforeCreateIndex(t *testing.T) {
	fake := &fakeQdrant{}
	store := newQdrantTestStore(t, fake)

	chunk := testChunk("visit-2024.txt", 0, 1, []float32{0.1, 0.2, 0.3, 0.4})
	err := store.Upsert(context.Background(), chunk)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestQdrantStore_ConcurrentUpserts(t *testing.T) {
	fake := &fakeQdrant{dimension: 4}
	store := newQdrantTestStore(t, fake)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		idx := i
		g.Go(func() error {
			return store.Upsert(ctx, testChunk("visit-2024.txt", idx, 1, []float32{0.1, 0.2, 0.3, 0.4}))
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 8, fake.upsertAttempts())
}

func TestQdrantStore_SearchDecodesHits(t *testing.T) {
	fake := &fakeQdrant{
		dimension: 4,
		searchBody: `{"result":[
			{"id":"id-1","score":0.91,"payload":{"document_name":"a.txt","chunk_index":0,"page_number":2,"section":"plan","content":"first","context":"plan first","keywords":["first"]}},
			{"id":"id-2","score":0.42,"payload":{"document_name":"b.txt","chunk_index":3,"page_number":1,"content":"second"}}
		]}`,
	}
	store := newQdrantTestStore(t, fake)

	hits, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "id-1", hits[0].Chunk.ID)
	assert.InDelta(t, 0.91, float64(hits[0].Score), 1e-6)
	assert.Equal(t, "a.txt", hits[0].Chunk.DocumentName)
	assert.Equal(t, 2, hits[0].Chunk.PageNumber)
	assert.Equal(t, "plan", hits[0].Chunk.Section)
	assert.Equal(t, []string{"first"}, hits[0].Chunk.Keywords)

	assert.Equal(t, "id-2", hits[1].Chunk.ID)
	assert.Equal(t, "b.txt", hits[1].Chunk.DocumentName)
}

func TestQdrantStore_SearchRejectsWrongLengthVector(t *testing.T) {
	fake := &fakeQdrant{dimension: 4}
	store := newQdrantTestStore(t, fake)

	_, err := store.Search(context.Background(), []float32{1, 0}, 5)
	assert.ErrorIs(t, err, types.ErrInvalidVector)
}

func TestQdrantStore_ListDocumentsAggregatesScroll(t *testing.T) {
	fake := &fakeQdrant{
		dimension: 4,
		scrollPages: []string{
			`{"result":{"points":[
				{"payload":{"document_name":"notes.txt","page_number":1}},
				{"payload":{"document_name":"notes.txt","page_number":3}},
				{"payload":{"document_name":"labs.txt","page_number":1}}
			],"next_page_offset":"cursor-1"}}`,
			`{"result":{"points":[
				{"payload":{"document_name":"notes.txt","page_number":2}}
			],"next_page_offset":null}}`,
		},
	}
	store := newQdrantTestStore(t, fake)

	stats, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, types.DocumentStat{Name: "labs.txt", Chunks: 1, MaxPage: 1}, stats[0])
	assert.Equal(t, types.DocumentStat{Name: "notes.txt", Chunks: 3, MaxPage: 3}, stats[1])
	assert.Equal(t, 2, fake.scrollCalls)
}

func TestQdrantStore_Get(t *testing.T) {
	fake := &fakeQdrant{
		dimension: 4,
		points: map[string]string{
			"/collections/chunks/points/id-1": `{"result":{"id":"id-1","vector":[0.1,0.2,0.3,0.4],"payload":{"document_name":"notes.txt","chunk_index":1,"page_number":2,"section":"plan","content":"follow up in two weeks","keywords":["follow","weeks"],"extracted_date":"3/15/2024"}}}`,
		},
	}
	store := newQdrantTestStore(t, fake)

	got, err := store.Get(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", got.DocumentName)
	assert.Equal(t, 2, got.PageNumber)
	assert.Equal(t, "follow up in two weeks", got.Content)
	assert.Equal(t, "3/15/2024", got.ExtractedDate)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, got.Vector)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQdrantStore_DeleteIndexMissingCollection(t *testing.T) {
	fake := &fakeQdrant{}
	store := newQdrantTestStore(t, fake)

	assert.NoError(t, store.DeleteIndex(context.Background()))
}
