// Package batcher packs ordered content items into token-budgeted batches for
// downstream summarization calls.
//
// Partitioning is greedy and order-preserving: items join the current batch
// while the running token count stays within the budget. An item that alone
// exceeds the budget forms its own oversized batch rather than being dropped
// or split; the downstream model truncates it. This is a documented
// relaxation, not a bug.
package batcher

// CharsPerToken is the heuristic divisor for estimating tokens (chars/4).
const CharsPerToken = 4

// Item is one unit of content with its precomputed token count. Counting
// happens once, at construction, so batch boundaries are reproducible for
// identical input.
type Item struct {
	Content string
	Tokens  int
}

// NewItem builds an Item, counting tokens with the fixed estimator.
func NewItem(content string) Item {
	return Item{Content: content, Tokens: EstimateTokens(content)}
}

// Batch is an ordered run of items whose summed token count respects the
// budget, except for a single oversized item forming its own batch.
type Batch struct {
	Items  []Item
	Tokens int
}

// EstimateTokens estimates the number of tokens in a string. Average English
// words run about four characters, so chars/4 is close enough for budgeting.
func EstimateTokens(text string) int {
	return len(text) / CharsPerToken
}

// Partition splits items into ordered batches whose token sums stay within
// maxTokens. Concatenating the batches reproduces the input sequence exactly.
func Partition(items []Item, maxTokens int) []Batch {
	if len(items) == 0 {
		return nil
	}

	var (
		batches []Batch
		current Batch
	)
	flush := func() {
		if len(current.Items) > 0 {
			batches = append(batches, current)
			current = Batch{}
		}
	}

	for _, item := range items {
		if len(current.Items) > 0 && current.Tokens+item.Tokens > maxTokens {
			flush()
		}
		current.Items = append(current.Items, item)
		current.Tokens += item.Tokens

		// An oversized item always stands alone.
		if item.Tokens > maxTokens {
			flush()
		}
	}
	flush()
	return batches
}
