// pkg/chunk/chunk_test.go
package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	chunks := Split("Маржа за вчера: 120 000 ₽", DefaultLimit)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Маржа за вчера: 120 000 ₽", chunks[0])
}

func TestSplit_EmptyTextYieldsNoChunks(t *testing.T) {
	assert.Empty(t, Split("", DefaultLimit))
}

func TestSplit_ConcatenationRestoresOriginal(t *testing.T) {
	text := strings.Repeat("Продажи растут, ДРР под контролем. ", 300)

	chunks := Split(text, DefaultLimit)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk)
		assert.LessOrEqual(t, len([]rune(chunk)), DefaultLimit)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_CyrillicBoundaries(t *testing.T) {
	text := strings.Repeat("й", DefaultLimit+1)

	chunks := Split(text, DefaultLimit)
	require.Len(t, chunks, 2)
	assert.Equal(t, DefaultLimit, len([]rune(chunks[0])))
	assert.Equal(t, "й", chunks[1])
	assert.True(t, strings.HasPrefix(chunks[0], "й"))
}

func TestSplit_CustomLimit(t *testing.T) {
	chunks := Split(strings.Repeat("а", 25), 10)
	require.Len(t, chunks, 3)
	assert.Equal(t, 10, len([]rune(chunks[0])))
	assert.Equal(t, 10, len([]rune(chunks[1])))
	assert.Equal(t, 5, len([]rune(chunks[2])))
}

func TestSplit_NonPositiveLimitUsesDefault(t *testing.T) {
	chunks := Split("короткий ответ", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "короткий ответ", chunks[0])
}
