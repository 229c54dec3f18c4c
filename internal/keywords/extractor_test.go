package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_NormalizesAndDeduplicates(t *testing.T) {
	got := Extract("Chest PAIN and chest pain, with radiating discomfort.")

	assert.Equal(t, []string{"chest", "discomfort", "pain", "radiating"}, got)
}

func TestExtract_DropsStopWordsAndShortTokens(t *testing.T) {
	got := Extract("he was in the ER and they could not find a cause")

	// "cause" and "find" survive; stop words and <=3 rune tokens do not.
	assert.NotContains(t, got, "they")
	assert.NotContains(t, got, "could")
	assert.NotContains(t, got, "was")
	assert.NotContains(t, got, "the")
	assert.Contains(t, got, "cause")
	assert.Contains(t, got, "find")
}

func TestExtract_EmptyText(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("   \n\t"))
}

func TestExtract_Deterministic(t *testing.T) {
	a := Extract("hypertension diabetes asthma hypertension")
	b := Extract("hypertension diabetes asthma hypertension")
	assert.Equal(t, a, b)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		text     string
		want     []string
	}{
		{
			name:     "literal matches case insensitive",
			keywords: []string{"chest", "pain"},
			text:     "Patient reports CHEST pain on exertion.",
			want:     []string{"chest", "pain"},
		},
		{
			name:     "no matches",
			keywords: []string{"chest", "pain"},
			text:     "Pressure behind the sternum radiating to the jaw.",
			want:     nil,
		},
		{
			name:     "partial overlap keeps keyword order",
			keywords: []string{"asthma", "chest", "pain"},
			text:     "pain in the chest",
			want:     []string{"chest", "pain"},
		},
		{
			name:     "empty text",
			keywords: []string{"chest"},
			text:     "",
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.keywords, tt.text))
		})
	}
}
