package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleWindow(t *testing.T) {
	s := NewSplitter(2000, 200)
	got := s.Split("A short paragraph that fits in one window.")

	require.Len(t, got, 1)
	assert.Equal(t, "A short paragraph that fits in one window.", got[0])
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	s := NewSplitter(100, 10)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("  \n\n\t  "))
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 10)
	para2 := strings.Repeat("beta ", 10)
	s := NewSplitter(70, 10)

	got := s.Split(para1 + "\n\n" + para2)

	require.GreaterOrEqual(t, len(got), 2)
	assert.Contains(t, got[0], "alpha")
	assert.Contains(t, got[len(got)-1], "beta")
}

func TestSplit_WindowsRespectSizeBound(t *testing.T) {
	text := strings.Repeat("one two three four five. ", 100)
	s := NewSplitter(120, 20)

	for _, w := range s.Split(text) {
		assert.LessOrEqual(t, len(w), 120)
	}
}

func TestSplit_OverlapCarriesTrailingText(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here. Fourth sentence here."
	s := NewSplitter(50, 25)

	got := s.Split(text)
	require.GreaterOrEqual(t, len(got), 2)

	// Adjacent windows share text carried over as the overlap seed.
	overlapFound := false
	for i := 1; i < len(got); i++ {
		words := strings.Fields(got[i])
		if len(words) > 0 && strings.Contains(got[i-1], words[0]) {
			overlapFound = true
		}
	}
	assert.True(t, overlapFound, "expected overlapping content between windows")
}

func TestSplit_ContentPreserved(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet. ", 50)
	s := NewSplitter(100, 10)

	joined := strings.Join(s.Split(text), " ")
	for _, word := range []string{"lorem", "ipsum", "dolor", "amet"} {
		assert.Contains(t, joined, word)
	}
}

func TestSplit_OversizedWordFallsBackToCharacters(t *testing.T) {
	text := strings.Repeat("x", 500)
	s := NewSplitter(100, 10)

	got := s.Split(text)
	require.NotEmpty(t, got)
	for _, w := range got {
		assert.LessOrEqual(t, len(w), 100)
	}
}
