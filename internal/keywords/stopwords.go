package keywords

// stopWords is the English stop-word list used by the extractor. Entries of
// three runes or fewer are omitted since the length gate already drops them.
var stopWords = map[string]struct{}{}

func init() {
	list := []string{
		"about", "above", "after", "again", "against", "aren't", "because",
		"been", "before", "being", "below", "between", "both", "cannot",
		"could", "couldn't", "didn't", "does", "doesn't", "doing", "don't",
		"down", "during", "each", "from", "further", "hadn't", "hasn't",
		"have", "haven't", "having", "he'd", "he'll", "he's", "here",
		"here's", "hers", "herself", "him", "himself", "his", "how's",
		"i'll", "i've", "into", "isn't", "it's", "itself", "let's", "more",
		"most", "mustn't", "myself", "once", "only", "other", "ought",
		"ours", "ourselves", "over", "same", "shan't", "she'd", "she'll",
		"she's", "should", "shouldn't", "some", "such", "than", "that",
		"that's", "their", "theirs", "them", "themselves", "then", "there",
		"there's", "these", "they", "they'd", "they'll", "they're",
		"they've", "this", "those", "through", "under", "until", "very",
		"wasn't", "we'd", "we'll", "we're", "we've", "were", "weren't",
		"what", "what's", "when", "when's", "where", "where's", "which",
		"while", "who's", "whom", "why's", "with", "won't", "would",
		"wouldn't", "you'd", "you'll", "you're", "you've", "your", "yours",
		"yourself", "yourselves",
	}
	for _, w := range list {
		stopWords[w] = struct{}{}
	}
}
