// Package encoder converts text into fixed-dimension dense vectors by
// mean-pooling token-level hidden states from a model-serving collaborator.
//
// Input longer than the model's context limit is windowed into word-level
// sub-chunks at 80% of the limit, with the trailing 20% of words carried into
// the next sub-chunk as overlap; each sub-chunk is mean-pooled and the
// resulting vectors are averaged elementwise with uniform weight. Given fixed
// model weights the output is deterministic for identical input.
package encoder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"docvec/pkg/types"
)

const defaultCacheSize = 10000

// Encoder produces embeddings through a ModelClient, caching results by
// content hash so repeated chunks and queries are encoded once.
type Encoder struct {
	model ModelClient
	cache *lru.Cache[string, []float32]
	retry RetryConfig
}

// New creates an Encoder backed by the given model client.
func New(model ModelClient) *Encoder {
	// lru.New only fails on a non-positive size.
	cache, _ := lru.New[string, []float32](defaultCacheSize)
	return &Encoder{
		model: model,
		cache: cache,
		retry: DefaultRetryConfig(),
	}
}

// Dimension returns the width of produced vectors.
func (e *Encoder) Dimension() int { return e.model.Dimension() }

// Embed returns the dense vector for text. Blank input fails with
// ErrEmptyInput; if no sub-chunk yields a usable vector the call fails with
// ErrEncoding and the caller should skip the chunk.
func (e *Encoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyInput
	}

	hash := contentHash(text)
	if cached, ok := e.cache.Get(hash); ok {
		out := make([]float32, len(cached))
		copy(out, cached)
		return out, nil
	}

	maxLen := e.model.MaxLength()
	var vector []float32
	if len(text) > maxLen {
		subChunks := splitForContext(text, maxLen)
		pooled := make([][]float32, 0, len(subChunks))
		for _, sub := range subChunks {
			if strings.TrimSpace(sub) == "" {
				continue
			}
			v, err := e.poolOne(ctx, sub)
			if err != nil {
				continue
			}
			pooled = append(pooled, v)
		}
		if len(pooled) == 0 {
			return nil, fmt.Errorf("%w: all %d sub-chunks failed", types.ErrEncoding, len(subChunks))
		}
		vector = average(pooled)
	} else {
		v, err := e.poolOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrEncoding, err)
		}
		vector = v
	}

	stored := make([]float32, len(vector))
	copy(stored, vector)
	e.cache.Add(hash, stored)
	return vector, nil
}

// poolOne fetches token states for one sub-chunk, retrying transient model
// failures, and mean-pools them into a single vector.
func (e *Encoder) poolOne(ctx context.Context, text string) ([]float32, error) {
	states, err := retryWithBackoff(ctx, e.retry, isTransient, func() ([][]float32, error) {
		return e.model.TokenStates(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return meanPool(states, e.model.Dimension())
}

// splitForContext splits text into word-level sub-chunks at 80% of maxLen
// characters, retaining the trailing 20% of each sub-chunk's words as the
// overlap seed for the next one.
func splitForContext(text string, maxLen int) []string {
	budget := maxLen * 8 / 10
	words := strings.Fields(text)

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, word := range words {
		wordLen := len(word) + 1
		if length+wordLen > budget && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			keep := len(current) * 2 / 10
			overlap := make([]string, keep)
			copy(overlap, current[len(current)-keep:])
			current = overlap
			length = 0
			for _, w := range current {
				length += len(w) + 1
			}
		}
		current = append(current, word)
		length += wordLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// meanPool collapses per-token hidden states into one vector by averaging
// across the sequence dimension.
func meanPool(states [][]float32, dimension int) ([]float32, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("model returned no token states")
	}
	out := make([]float32, dimension)
	for _, state := range states {
		if len(state) != dimension {
			return nil, fmt.Errorf("token state has dimension %d, want %d", len(state), dimension)
		}
		for i, v := range state {
			out[i] += v
		}
	}
	n := float32(len(states))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// average combines sub-chunk vectors elementwise with uniform weight.
func average(vectors [][]float32) []float32 {
	out := make([]float32, len(vectors[0]))
	for _, v := range vectors {
		for i := range out {
			out[i] += v[i]
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// contentHash returns the SHA-256 hex digest used as the cache key.
func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
