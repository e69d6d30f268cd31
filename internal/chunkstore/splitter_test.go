package chunkstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("short text", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitEmpty(t *testing.T) {
	assert.Nil(t, Split("", 1000, 200))
	assert.Nil(t, Split("   \n ", 1000, 200))
	assert.Nil(t, Split("text", 0, 200))
}

func TestSplitRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := Split(text, 500, 100)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 500)
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	text := strings.Repeat("abcdefghij", 300) // no natural boundaries
	chunks := Split(text, 1000, 200)
	require.Greater(t, len(chunks), 1)

	// the tail of each chunk reappears at the head of the next one
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-50:]
		assert.True(t, strings.HasPrefix(chunks[i], tail[:10]) || strings.Contains(chunks[i][:200], tail[:10]))
	}
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("sentence one. sentence two. ", 15) // ~420 chars
	text := para + "\n\n" + para + "\n\n" + para
	chunks := Split(text, 500, 50)
	require.Greater(t, len(chunks), 1)

	// the first chunk should end at a natural boundary, not mid-word
	first := chunks[0]
	last := first[len(first)-1]
	assert.True(t, last == '.' || last == ' ' || strings.HasSuffix(first, "two."),
		"chunk ends mid-word: %q", first[len(first)-20:])
}

func TestSplitOverlapLargerThanSizeIsClamped(t *testing.T) {
	text := strings.Repeat("x", 5000)
	chunks := Split(text, 100, 100)
	assert.NotEmpty(t, chunks)
	// must terminate and cover the text
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	assert.GreaterOrEqual(t, total, len(text)/2)
}

func TestSplitCoversAllContent(t *testing.T) {
	text := strings.Repeat("the quick brown fox. ", 200)
	chunks := Split(text, 300, 60)
	joined := strings.Join(chunks, "")
	// every distinct word survives chunking
	assert.Contains(t, joined, "quick")
	assert.Contains(t, chunks[len(chunks)-1], "fox.")
}
