package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"docvec/pkg/types"
)

const (
	defaultQdrantTimeout    = 15 * time.Second
	defaultQdrantCollection = "chunks"

	defaultQdrantAttempts = 3
	defaultQdrantBackoff  = 500 * time.Millisecond

	scrollPageSize = 256
)

// QdrantConfig configures the Qdrant REST client.
type QdrantConfig struct {
	URL        string
	Collection string
	APIKey     string
	Timeout    time.Duration
}

// QdrantStore implements the Store interface against a Qdrant server over its
// REST API. Collections use cosine distance; chunk fields travel in the point
// payload.
type QdrantStore struct {
	url        string
	collection string
	apiKey     string
	client     *http.Client
	attempts   int
	backoff    time.Duration

	// dimension is cached after CreateIndex or the first lookup.
	mu        sync.Mutex
	dimension int
}

// NewQdrantStore creates a Qdrant store and probes connectivity. A server
// that stays unreachable after bounded retries fails with
// ErrBackendUnavailable.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant URL not set", types.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultQdrantCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultQdrantTimeout
	}

	s := &QdrantStore{
		url:        cfg.URL,
		collection: cfg.Collection,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: cfg.Timeout},
		attempts:   defaultQdrantAttempts,
		backoff:    defaultQdrantBackoff,
	}

	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}
		if lastErr = s.ping(ctx); lastErr == nil {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: qdrant unreachable at %s: %v", types.ErrBackendUnavailable, cfg.URL, lastErr)
}

// Close is a no-op; the HTTP client holds no persistent connections worth
// tearing down explicitly.
func (s *QdrantStore) Close() error { return nil }

func (s *QdrantStore) ping(ctx context.Context) error {
	_, status, err := s.do(ctx, http.MethodGet, s.url+"/collections", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("qdrant returned status %d", status)
	}
	return nil
}

// CreateIndex ensures the collection exists with cosine distance and the
// given dimension.
func (s *QdrantStore) CreateIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrInvalidInput, dimension)
	}

	existing, ok, err := s.collectionDimension(ctx)
	if err != nil {
		return err
	}
	if ok {
		if existing != dimension {
			return fmt.Errorf("%w: collection has dimension %d, requested %d",
				types.ErrDimensionMismatch, existing, dimension)
		}
		s.setDimension(dimension)
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	resp, status, err := s.call(ctx, http.MethodPut, s.collectionURL(), body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("failed to create collection: status %d: %s", status, resp)
	}
	s.setDimension(dimension)
	return nil
}

// DeleteIndex drops the collection. A missing collection is not an error.
func (s *QdrantStore) DeleteIndex(ctx context.Context) error {
	resp, status, err := s.call(ctx, http.MethodDelete, s.collectionURL(), nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("failed to delete collection: status %d: %s", status, resp)
	}
	s.setDimension(0)
	return nil
}

// Upsert writes one point with wait=true so the write is visible to
// subsequent searches.
func (s *QdrantStore) Upsert(ctx context.Context, chunk *types.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	dim, err := s.knownDimension(ctx)
	if err != nil {
		return err
	}
	if err := validateVector(chunk.Vector, dim); err != nil {
		return err
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      chunk.ID,
				"vector":  chunk.Vector,
				"payload": chunkPayload(chunk),
			},
		},
	}
	resp, status, err := s.call(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("failed to upsert point: status %d: %s", status, resp)
	}
	return nil
}

// Search queries the collection for the topK nearest points.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]types.SearchHit, error) {
	dim, err := s.knownDimension(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateVector(vector, dim); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []types.SearchHit{}, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	resp, status, err := s.call(ctx, http.MethodPost, s.collectionURL()+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("search failed: status %d: %s", status, resp)
	}

	var out struct {
		Result []struct {
			ID      string          `json:"id"`
			Score   float32         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]types.SearchHit, 0, len(out.Result))
	for _, r := range out.Result {
		chunk, err := chunkFromPayload(r.ID, r.Payload)
		if err != nil {
			return nil, err
		}
		hits = append(hits, types.SearchHit{Chunk: *chunk, Score: r.Score})
	}
	return hits, nil
}

// ListDocuments scrolls all points and aggregates per document client-side;
// Qdrant has no server-side GROUP BY.
func (s *QdrantStore) ListDocuments(ctx context.Context) ([]types.DocumentStat, error) {
	type docAgg struct {
		chunks  int
		maxPage int
	}
	aggregates := make(map[string]*docAgg)

	var offset any
	for {
		body := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": map[string]any{"include": []string{"document_name", "page_number"}},
		}
		if offset != nil {
			body["offset"] = offset
		}
		resp, status, err := s.call(ctx, http.MethodPost, s.collectionURL()+"/points/scroll", body)
		if err != nil {
			return nil, err
		}
		if status >= 300 {
			return nil, fmt.Errorf("scroll failed: status %d: %s", status, resp)
		}

		var out struct {
			Result struct {
				Points []struct {
					Payload struct {
						DocumentName string `json:"document_name"`
						PageNumber   int    `json:"page_number"`
					} `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := json.Unmarshal(resp, &out); err != nil {
			return nil, fmt.Errorf("failed to decode scroll response: %w", err)
		}

		for _, p := range out.Result.Points {
			agg := aggregates[p.Payload.DocumentName]
			if agg == nil {
				agg = &docAgg{}
				aggregates[p.Payload.DocumentName] = agg
			}
			agg.chunks++
			if p.Payload.PageNumber > agg.maxPage {
				agg.maxPage = p.Payload.PageNumber
			}
		}

		if out.Result.NextPageOffset == nil {
			break
		}
		offset = out.Result.NextPageOffset
	}

	stats := make([]types.DocumentStat, 0, len(aggregates))
	for name, agg := range aggregates {
		stats = append(stats, types.DocumentStat{Name: name, Chunks: agg.chunks, MaxPage: agg.maxPage})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

// Get fetches one point by ID, including its vector.
func (s *QdrantStore) Get(ctx context.Context, id string) (*types.Chunk, error) {
	resp, status, err := s.call(ctx, http.MethodGet, s.collectionURL()+"/points/"+id, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status >= 300 {
		return nil, fmt.Errorf("failed to get point: status %d: %s", status, resp)
	}

	var out struct {
		Result struct {
			ID      string          `json:"id"`
			Payload json.RawMessage `json:"payload"`
			Vector  []float32       `json:"vector"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return nil, fmt.Errorf("failed to decode point response: %w", err)
	}

	chunk, err := chunkFromPayload(out.Result.ID, out.Result.Payload)
	if err != nil {
		return nil, err
	}
	chunk.Vector = out.Result.Vector
	return chunk, nil
}

// knownDimension returns the cached collection dimension, fetching it from
// the server on first use.
func (s *QdrantStore) knownDimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	if dim > 0 {
		return dim, nil
	}

	dim, ok, err := s.collectionDimension(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: index not created", types.ErrInvalidInput)
	}
	s.setDimension(dim)
	return dim, nil
}

func (s *QdrantStore) setDimension(dim int) {
	s.mu.Lock()
	s.dimension = dim
	s.mu.Unlock()
}

// collectionDimension reads the vector size from collection info.
func (s *QdrantStore) collectionDimension(ctx context.Context) (int, bool, error) {
	resp, status, err := s.call(ctx, http.MethodGet, s.collectionURL(), nil)
	if err != nil {
		return 0, false, err
	}
	if status == http.StatusNotFound {
		return 0, false, nil
	}
	if status >= 300 {
		return 0, false, fmt.Errorf("failed to read collection info: status %d: %s", status, resp)
	}

	var out struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return 0, false, fmt.Errorf("failed to decode collection info: %w", err)
	}
	return out.Result.Config.Params.Vectors.Size, true, nil
}

func (s *QdrantStore) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// call executes a request with bounded exponential backoff, retrying
// transport failures and 5xx responses. ErrBackendUnavailable is surfaced
// only once the attempts are exhausted; any other status is returned to the
// caller unretried.
func (s *QdrantStore) call(ctx context.Context, method, url string, body any) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(s.backoff << (attempt - 1)):
			}
		}
		data, status, err := s.do(ctx, method, url, body)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= 500 {
			lastErr = fmt.Errorf("qdrant returned status %d: %s", status, data)
			continue
		}
		return data, status, nil
	}
	return nil, 0, fmt.Errorf("%w: %v", types.ErrBackendUnavailable, lastErr)
}

// do executes one request and returns the body and status.
func (s *QdrantStore) do(ctx context.Context, method, url string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("qdrant request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// chunkPayload maps a chunk's fields into a Qdrant point payload.
func chunkPayload(chunk *types.Chunk) map[string]any {
	return map[string]any{
		"document_name":  chunk.DocumentName,
		"chunk_index":    chunk.ChunkIndex,
		"page_number":    chunk.PageNumber,
		"section":        chunk.Section,
		"content":        chunk.Content,
		"context":        chunk.Context,
		"keywords":       chunk.Keywords,
		"extracted_date": chunk.ExtractedDate,
	}
}

// chunkFromPayload rebuilds a chunk from a point payload. The vector is not
// part of the payload; callers fill it when the API returns one.
func chunkFromPayload(id string, payload json.RawMessage) (*types.Chunk, error) {
	var p struct {
		DocumentName  string   `json:"document_name"`
		ChunkIndex    int      `json:"chunk_index"`
		PageNumber    int      `json:"page_number"`
		Section       string   `json:"section"`
		Content       string   `json:"content"`
		Context       string   `json:"context"`
		Keywords      []string `json:"keywords"`
		ExtractedDate string   `json:"extracted_date"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode point payload: %w", err)
	}
	return &types.Chunk{
		ID:            id,
		DocumentName:  p.DocumentName,
		ChunkIndex:    p.ChunkIndex,
		PageNumber:    p.PageNumber,
		Section:       p.Section,
		Content:       p.Content,
		Context:       p.Context,
		Keywords:      p.Keywords,
		ExtractedDate: p.ExtractedDate,
	}, nil
}
