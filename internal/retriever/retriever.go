// Package retriever answers free-text queries against an index store,
// grouping nearest-neighbor hits by owning document and annotating each hit
// with the query keywords found literally in its content. Hits with no
// literal keyword overlap are pure-semantic matches.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"docvec/internal/index"
	"docvec/internal/keywords"
	"docvec/pkg/types"
)

const (
	summaryWords   = 10
	dateWindowSize = 100
)

// Encoder turns query text into a dense vector.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one retrieved chunk annotated for presentation.
type Match struct {
	ChunkID       string   `json:"chunk_id"`
	PageNumber    int      `json:"page_number"`
	Section       string   `json:"section"`
	Content       string   `json:"content"`
	Summary       string   `json:"summary"`
	Score         float32  `json:"score"`
	FoundKeywords []string `json:"found_keywords,omitempty"`
	MatchedDate   string   `json:"matched_date,omitempty"`
}

// Retriever orchestrates encode, search, and annotation.
type Retriever struct {
	encoder Encoder
	store   index.Store
}

// New creates a Retriever over the given encoder and store.
func New(encoder Encoder, store index.Store) *Retriever {
	return &Retriever{encoder: encoder, store: store}
}

// Retrieve encodes the query, searches the index, and returns hits grouped by
// document name with each document's list sorted by descending score. Zero
// hits yield an empty map, not an error.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, topK int) (map[string][]Match, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query is empty", types.ErrEmptyInput)
	}

	query := types.Query{Text: queryText, TopK: topK}
	if query.TopK <= 0 {
		query.TopK = 5
	}

	var err error
	query.Vector, err = r.encoder.Embed(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	hits, err := r.store.Search(ctx, query.Vector, query.TopK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	queryKeywords := keywords.Extract(query.Text)

	grouped := make(map[string][]Match)
	for i := range hits {
		hits[i].FoundKeywords = keywords.Match(queryKeywords, hits[i].Chunk.Content)
		grouped[hits[i].Chunk.DocumentName] = append(grouped[hits[i].Chunk.DocumentName], r.annotate(hits[i]))
	}
	for name := range grouped {
		matches := grouped[name]
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
		grouped[name] = matches
	}
	return grouped, nil
}

// annotate builds the presentation view of one hit from its keyword-match
// annotations: a short summary and the date nearest a matched keyword.
func (r *Retriever) annotate(hit types.SearchHit) Match {
	var summary, matchedDate string
	if len(hit.FoundKeywords) > 0 {
		summary = keywordSummary(hit.Chunk.Content, hit.FoundKeywords[0], summaryWords)
		matchedDate = dateNearKeyword(hit.Chunk.Content, hit.FoundKeywords[0], dateWindowSize)
	} else {
		summary = leadingWords(hit.Chunk.Content, summaryWords)
	}
	if matchedDate == "" {
		matchedDate = hit.Chunk.ExtractedDate
	}

	return Match{
		ChunkID:       hit.Chunk.ID,
		PageNumber:    hit.Chunk.PageNumber,
		Section:       hit.Chunk.Section,
		Content:       hit.Chunk.Content,
		Summary:       summary,
		Score:         hit.Score,
		FoundKeywords: hit.FoundKeywords,
		MatchedDate:   matchedDate,
	}
}

// keywordSummary returns a window of maxWords words centered on the first
// word containing keyword, shifted at text boundaries so the window stays
// full when possible.
func keywordSummary(text, keyword string, maxWords int) string {
	words := strings.Fields(text)
	keywordLower := strings.ToLower(keyword)

	keywordIdx := -1
	for i, word := range words {
		if strings.Contains(strings.ToLower(word), keywordLower) {
			keywordIdx = i
			break
		}
	}
	if keywordIdx == -1 {
		return "Summary for " + keyword
	}

	before := (maxWords - 1) / 2
	after := maxWords - 1 - before

	start := keywordIdx - before
	end := keywordIdx + after + 1
	if start < 0 {
		start = 0
		end = maxWords
	} else if end > len(words) {
		end = len(words)
		start = len(words) - maxWords
	}
	if start < 0 {
		start = 0
	}
	if end > len(words) {
		end = len(words)
	}

	return strings.Join(words[start:end], " ")
}

// leadingWords returns the first maxWords words of text.
func leadingWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
