package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	assert.Empty(t, Split("", DefaultOptions()))
	assert.Empty(t, Split("   \n\n  ", DefaultOptions()))
	assert.Empty(t, Split("\t\n\n\n\t ", DefaultOptions()))
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("Hello world.\n\nSecond paragraph.", DefaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello world.\n\nSecond paragraph.", chunks[0])
}

func TestSplitGroupsParagraphsUpToLimit(t *testing.T) {
	para := strings.Repeat("word ", 59) + "word" // 299 chars
	text := para + "\n\n" + para + "\n\n" + para

	chunks := Split(text, Options{ChunkSize: 800})
	// Two paragraphs fit (299+299+2=600), the third starts a new chunk.
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "\n\n")
	assert.Equal(t, para, chunks[1])
}

func TestSplitLongParagraphAtWordBoundaries(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 200) // 2200-char paragraph
	chunks := Split(text, Options{ChunkSize: 800})
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 800)
		for _, w := range strings.Fields(c) {
			assert.Equal(t, "abcdefghij", w, "word split mid-way")
		}
	}
}

func TestSplitRoundTripLosesNoText(t *testing.T) {
	text := "First   paragraph with  extra spaces.\n\n\n\n\nSecond one.\n\n" +
		strings.Repeat("filler ", 300) + "end."

	normalized := Normalize(text)
	chunks := Split(text, Options{ChunkSize: 800})

	strip := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}
	assert.Equal(t, strip(normalized), strip(strings.Join(chunks, " ")))
}

func TestNormalize(t *testing.T) {
	got := Normalize("a  b\t\tc\n\n\n\n\nd  ")
	assert.Equal(t, "a b c\n\nd", got)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "What is Bitcoin?", []string{"what", "is", "bitcoin"}},
		{"drops single ascii chars", "a B see", []string{"see"}},
		{"keeps single han ideograph", "学 Go", []string{"学", "go"}},
		{"keeps digit runs", "error 404 page", []string{"error", "404", "page"}},
		{"empty", "!?!...", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "Bitcoin network fees. Bitcoin mining uses the network. " +
		"Fees are paid in bitcoin. 12345 is not a keyword."

	kws := ExtractKeywords(text, 10)
	require.NotEmpty(t, kws)
	assert.Equal(t, "bitcoin", kws[0], "most frequent term first")
	assert.NotContains(t, kws, "the")
	assert.NotContains(t, kws, "is")
	assert.NotContains(t, kws, "12345")
}

func TestExtractKeywordsCapped(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu"
	kws := ExtractKeywords(text, 5)
	assert.Len(t, kws, 5)
}
